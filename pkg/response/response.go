package response

import (
	"encoding/json"
	"net/http"

	"cosmetics-shop-api/pkg/apierror"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{
		Success: true,
		Data:    data,
	}

	_ = json.NewEncoder(w).Encode(response)
}

// JSONWithMeta sends a JSON response with pagination metadata.
func JSONWithMeta(w http.ResponseWriter, statusCode int, data interface{}, page, limit int, total int64) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// Error sends an error response. Domain errors are mapped to their status;
// anything else becomes a 500.
func Error(w http.ResponseWriter, err error) {
	apiErr := apierror.FromDomain(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)
	w.Write(apiErr.ToJSON())
}

// declined is the body of a rejected ledger operation.
type declined struct {
	Success bool                   `json:"success"`
	Error   map[string]interface{} `json:"error"`
	Data    interface{}            `json:"data,omitempty"`
}

// Declined sends a business-rule rejection together with its result, so
// clients still get the remaining balance.
func Declined(w http.ResponseWriter, err error, data interface{}) {
	apiErr := apierror.FromDomain(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)

	_ = json.NewEncoder(w).Encode(declined{
		Success: false,
		Error: map[string]interface{}{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
		Data: data,
	})
}

// Created sends a 201 Created response with the created resource.
func Created(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusCreated, data)
}

// OK sends a 200 OK response.
func OK(w http.ResponseWriter, data interface{}) {
	JSON(w, http.StatusOK, data)
}
