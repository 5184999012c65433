package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cosmetics-shop-api/internal/model"

	"github.com/jmoiron/sqlx"
)

const accountColumns = `id, username, password_hash, balance, created_at`

// CreateAccount inserts a new account. A duplicate username fails with
// model.ErrUsernameTaken.
func (s *Store) CreateAccount(ctx context.Context, account *model.UserAccount) error {
	query := s.db.Rebind(`INSERT INTO accounts (` + accountColumns + `) VALUES (?, ?, ?, ?, ?)`)
	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.Username, account.PasswordHash, account.Balance, account.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrUsernameTaken
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*model.UserAccount, error) {
	return getAccount(ctx, s.db, "id", id)
}

// GetAccountByUsername retrieves an account by username.
func (s *Store) GetAccountByUsername(ctx context.Context, username string) (*model.UserAccount, error) {
	return getAccount(ctx, s.db, "username", username)
}

func getAccount(ctx context.Context, q sqlx.ExtContext, column, value string) (*model.UserAccount, error) {
	var account model.UserAccount
	query := q.Rebind(`SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = ?`)
	if err := sqlx.GetContext(ctx, q, &account, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account %s: %w", value, model.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}
