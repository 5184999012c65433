package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cosmetics-shop-api/internal/middleware"
	"cosmetics-shop-api/internal/service"
	"cosmetics-shop-api/pkg/apierror"
	"cosmetics-shop-api/pkg/response"
	"cosmetics-shop-api/pkg/uid"
)

// PurchaseHandler handles ledger requests for the signed-in user.
type PurchaseHandler struct {
	ledger *service.LedgerService
}

// NewPurchaseHandler creates a new purchase handler.
func NewPurchaseHandler(ledger *service.LedgerService) *PurchaseHandler {
	return &PurchaseHandler{ledger: ledger}
}

// CosmeticRequest represents the body of purchase and refund requests.
type CosmeticRequest struct {
	CosmeticID string `json:"cosmetic_id"`
}

func decodeCosmeticID(r *http.Request) (string, error) {
	var req CosmeticRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", apierror.BadRequest("invalid request body")
	}
	defer r.Body.Close()

	id := strings.TrimSpace(req.CosmeticID)
	if id == "" {
		return "", apierror.ValidationError("cosmetic_id is required",
			apierror.FieldError{Field: "cosmetic_id", Message: "is required"})
	}
	return id, nil
}

// Purchase handles POST /api/v1/purchases
func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := decodeCosmeticID(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	result, err := h.ledger.Purchase(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		if result != nil {
			response.Declined(w, err, result)
			return
		}
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// Refund handles POST /api/v1/purchases/refund
func (h *PurchaseHandler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := decodeCosmeticID(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	result, err := h.ledger.Refund(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		if result != nil {
			response.Declined(w, err, result)
			return
		}
		response.Error(w, err)
		return
	}
	response.OK(w, result)
}

// MyCosmetics handles GET /api/v1/purchases/my-cosmetics
func (h *PurchaseHandler) MyCosmetics(w http.ResponseWriter, r *http.Request) {
	owned, err := h.ledger.Owned(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, owned)
}

// History handles GET /api/v1/purchases/history
func (h *PurchaseHandler) History(w http.ResponseWriter, r *http.Request) {
	history, err := h.ledger.History(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, history)
}

// Balance handles GET /api/v1/purchases/balance
func (h *PurchaseHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]int{"balance": balance})
}

// Owns handles GET /api/v1/purchases/owns/{cosmetic_id}
func (h *PurchaseHandler) Owns(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "cosmetic_id")
	if id == "" {
		response.Error(w, apierror.BadRequest("cosmetic_id is required"))
		return
	}

	owns, err := h.ledger.Owns(r.Context(), middleware.GetUserID(r.Context()), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"cosmetic_id": id,
		"owned":       owns,
	})
}

// Profile handles GET /api/v1/users/{user_id}/profile
func (h *PurchaseHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if !uid.IsValid(userID) {
		response.Error(w, apierror.ValidationError("invalid user_id",
			apierror.FieldError{Field: "user_id", Message: "must be a UUID"}))
		return
	}

	profile, err := h.ledger.Profile(r.Context(), userID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, profile)
}
