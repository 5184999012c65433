package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/metrics"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
)

// Ledger operations, as labelled in metrics.
const (
	opPurchase = "purchase"
	opRefund   = "refund"
)

// LedgerService handles purchases, refunds and ownership queries.
type LedgerService struct {
	repo     repository.LedgerRepository
	accounts repository.AccountRepository
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(repo repository.LedgerRepository, accounts repository.AccountRepository, log logrus.FieldLogger) *LedgerService {
	return &LedgerService{
		repo:     repo,
		accounts: accounts,
		log:      log.WithField("component", "ledger"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// IsDeclined reports whether err is a business-rule rejection rather than a
// system failure.
func IsDeclined(err error) bool {
	return errors.Is(err, model.ErrNotFound) ||
		errors.Is(err, model.ErrAlreadyOwned) ||
		errors.Is(err, model.ErrInsufficientFunds) ||
		errors.Is(err, model.ErrBundleChildNotRefundable)
}

// Purchase buys a cosmetic for a user. A bundle purchase also grants every
// contained item the user does not already own, at price 0.
//
// Declined purchases return a result with Success=false alongside the
// domain error. Store failures return a nil result and an error wrapping
// model.ErrPersistence; nothing is written in either case.
func (s *LedgerService) Purchase(ctx context.Context, userID, cosmeticID string) (*model.PurchaseResult, error) {
	var (
		balance int
		item    *model.CosmeticItem
		granted []string
	)

	err := s.repo.WithinLedgerTx(ctx, func(tx repository.LedgerTx) error {
		account, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		balance = account.Balance

		item, err = tx.GetCosmetic(ctx, cosmeticID)
		if err != nil {
			return err
		}

		existing, err := tx.GetOwnership(ctx, userID, cosmeticID)
		if err != nil {
			return err
		}
		if existing != nil && existing.Active() {
			return model.ErrAlreadyOwned
		}
		if account.Balance < item.Price {
			return model.ErrInsufficientFunds
		}

		remaining, err := tx.Debit(ctx, userID, item.Price)
		if err != nil {
			return err
		}

		now := s.now()
		if item.IsBundle {
			granted, err = s.grantContents(ctx, tx, userID, item, now)
			if err != nil {
				return err
			}
		}

		own := model.Ownership{
			UserID:        userID,
			CosmeticID:    cosmeticID,
			PurchasePrice: item.Price,
			PurchasedAt:   now,
		}
		if existing != nil {
			err = tx.ReactivateOwnership(ctx, own)
		} else {
			err = tx.InsertOwnership(ctx, own)
		}
		if err != nil {
			return err
		}

		balance = remaining
		return nil
	})

	log := s.log.WithFields(logrus.Fields{"user_id": userID, "cosmetic_id": cosmeticID})
	if err != nil {
		if IsDeclined(err) {
			metrics.RecordLedgerOp(opPurchase, declineCode(err))
			log.WithError(err).Info("Purchase declined")
			return &model.PurchaseResult{
				Success:          false,
				Message:          purchaseDeclinedMessage(err),
				RemainingBalance: balance,
			}, err
		}
		metrics.RecordLedgerOp(opPurchase, "error")
		log.WithError(err).Error("Purchase failed")
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	metrics.RecordLedgerOp(opPurchase, "ok")
	log.WithFields(logrus.Fields{
		"price":   item.Price,
		"granted": len(granted),
		"balance": balance,
	}).Info("Purchase completed")

	summary := item.Summary()
	return &model.PurchaseResult{
		Success:          true,
		Message:          fmt.Sprintf("Purchased %s", item.Name),
		RemainingBalance: balance,
		Cosmetic:         &summary,
		GrantedItemIDs:   granted,
	}, nil
}

// grantContents writes a zero-price row for each contained item, skipping
// items the user actively owns and reviving refunded rows.
func (s *LedgerService) grantContents(ctx context.Context, tx repository.LedgerTx, userID string, bundle *model.CosmeticItem, now time.Time) ([]string, error) {
	ids := make([]string, 0, len(bundle.ContainedItemIDs))
	seen := make(map[string]bool, len(bundle.ContainedItemIDs))
	for _, id := range bundle.ContainedItemIDs {
		if id == "" || id == bundle.ID || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	exists, err := tx.ExistingCosmeticIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	parent := bundle.ID
	var granted []string
	for _, id := range ids {
		if !exists[id] {
			s.log.WithFields(logrus.Fields{"bundle_id": bundle.ID, "cosmetic_id": id}).
				Warn("Bundle content missing from catalog, not granted")
			continue
		}

		existing, err := tx.GetOwnership(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.Active() {
			continue
		}

		own := model.Ownership{
			UserID:         userID,
			CosmeticID:     id,
			PurchasePrice:  0,
			PurchasedAt:    now,
			ParentBundleID: &parent,
		}
		if existing != nil {
			err = tx.ReactivateOwnership(ctx, own)
		} else {
			err = tx.InsertOwnership(ctx, own)
		}
		if err != nil {
			return nil, err
		}
		granted = append(granted, id)
	}
	return granted, nil
}

// Refund returns a purchase. Refunding a bundle revokes every item it
// granted; items granted by a bundle cannot be refunded on their own.
func (s *LedgerService) Refund(ctx context.Context, userID, cosmeticID string) (*model.RefundResult, error) {
	var (
		balance  int
		refunded int
		revoked  []string
	)

	err := s.repo.WithinLedgerTx(ctx, func(tx repository.LedgerTx) error {
		account, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		balance = account.Balance

		own, err := tx.GetOwnership(ctx, userID, cosmeticID)
		if err != nil {
			return err
		}
		if own == nil || !own.Active() {
			return model.ErrNotFound
		}
		if own.FromBundle() {
			return model.ErrBundleChildNotRefundable
		}

		now := s.now()
		if err := tx.MarkRefunded(ctx, userID, cosmeticID, now); err != nil {
			return err
		}

		children, err := tx.ListActiveByBundle(ctx, userID, cosmeticID)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			if _, err := tx.MarkRefundedByBundle(ctx, userID, cosmeticID, now); err != nil {
				return err
			}
			for _, child := range children {
				revoked = append(revoked, child.CosmeticID)
			}
		}

		remaining, err := tx.Credit(ctx, userID, own.PurchasePrice)
		if err != nil {
			return err
		}
		balance = remaining
		refunded = own.PurchasePrice
		return nil
	})

	log := s.log.WithFields(logrus.Fields{"user_id": userID, "cosmetic_id": cosmeticID})
	if err != nil {
		if IsDeclined(err) {
			metrics.RecordLedgerOp(opRefund, declineCode(err))
			log.WithError(err).Info("Refund declined")
			return &model.RefundResult{
				Success:          false,
				Message:          refundDeclinedMessage(err),
				RemainingBalance: balance,
			}, err
		}
		metrics.RecordLedgerOp(opRefund, "error")
		log.WithError(err).Error("Refund failed")
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	metrics.RecordLedgerOp(opRefund, "ok")
	log.WithFields(logrus.Fields{
		"amount":  refunded,
		"revoked": len(revoked),
		"balance": balance,
	}).Info("Refund completed")

	return &model.RefundResult{
		Success:          true,
		Message:          fmt.Sprintf("Refunded %d", refunded),
		RefundedAmount:   refunded,
		RemainingBalance: balance,
		RevokedItemIDs:   revoked,
	}, nil
}

// Owned lists the cosmetics a user currently owns, newest first.
func (s *LedgerService) Owned(ctx context.Context, userID string) ([]model.OwnedCosmetic, error) {
	if _, err := s.account(ctx, userID); err != nil {
		return nil, err
	}
	owned, err := s.repo.ListOwned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return owned, nil
}

// History lists every purchase including refunded ones. TotalSpent sums the
// active rows and TotalRefunded the refunded ones.
func (s *LedgerService) History(ctx context.Context, userID string) (*model.PurchaseHistory, error) {
	if _, err := s.account(ctx, userID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	history := &model.PurchaseHistory{Entries: entries}
	for _, e := range entries {
		if e.Refunded {
			history.TotalRefunded += e.PurchasePrice
		} else {
			history.TotalSpent += e.PurchasePrice
		}
	}
	return history, nil
}

// Balance returns the user's current balance.
func (s *LedgerService) Balance(ctx context.Context, userID string) (int, error) {
	account, err := s.account(ctx, userID)
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Owns reports whether the user actively owns a cosmetic.
func (s *LedgerService) Owns(ctx context.Context, userID, cosmeticID string) (bool, error) {
	own, err := s.repo.GetOwnership(ctx, userID, cosmeticID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return own != nil && own.Active(), nil
}

// Profile returns the public view of a user with what they own.
func (s *LedgerService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	account, err := s.account(ctx, userID)
	if err != nil {
		return nil, err
	}
	owned, err := s.repo.ListOwned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return &model.UserProfile{
		ID:         account.ID,
		Username:   account.Username,
		Balance:    account.Balance,
		CreatedAt:  account.CreatedAt,
		OwnedCount: len(owned),
		Owned:      owned,
	}, nil
}

func (s *LedgerService) account(ctx context.Context, userID string) (*model.UserAccount, error) {
	account, err := s.accounts.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}
	return account, nil
}

func declineCode(err error) string {
	var de *model.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "declined"
}

func purchaseDeclinedMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrAlreadyOwned):
		return "You already own this item"
	case errors.Is(err, model.ErrInsufficientFunds):
		return "Not enough balance for this purchase"
	case errors.Is(err, model.ErrNotFound):
		return "Item or user not found"
	}
	return err.Error()
}

func refundDeclinedMessage(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "You do not own this item or it was already refunded"
	case errors.Is(err, model.ErrBundleChildNotRefundable):
		return "Items granted by a bundle can only be refunded with the bundle"
	}
	return err.Error()
}
