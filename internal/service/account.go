package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
	"cosmetics-shop-api/pkg/uid"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLen = 72
)

// AccountService handles registration and login.
type AccountService struct {
	repo            repository.AccountRepository
	tokens          *TokenService
	startingBalance int
	log             logrus.FieldLogger
}

// NewAccountService creates a new account service. New accounts are
// credited startingBalance.
func NewAccountService(repo repository.AccountRepository, tokens *TokenService, startingBalance int, log logrus.FieldLogger) *AccountService {
	return &AccountService{
		repo:            repo,
		tokens:          tokens,
		startingBalance: startingBalance,
		log:             log.WithField("component", "account"),
	}
}

// Register creates an account and returns a token for it.
func (s *AccountService) Register(ctx context.Context, username, password string) (*model.IssuedToken, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &model.UserAccount{
		ID:           uid.New(),
		Username:     username,
		PasswordHash: string(hash),
		Balance:      s.startingBalance,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	s.log.WithFields(logrus.Fields{"user_id": account.ID, "username": account.Username}).Info("Account registered")
	return s.issue(account)
}

// Login checks credentials and returns a fresh token.
func (s *AccountService) Login(ctx context.Context, username, password string) (*model.IssuedToken, error) {
	account, err := s.repo.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %w", model.ErrPersistence, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		s.log.WithField("username", account.Username).Info("Login rejected")
		return nil, model.ErrInvalidCredentials
	}

	return s.issue(account)
}

func (s *AccountService) issue(account *model.UserAccount) (*model.IssuedToken, error) {
	token, _, err := s.tokens.GenerateToken(account)
	if err != nil {
		return nil, err
	}
	return &model.IssuedToken{
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		Account:   *account,
	}, nil
}

func validateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", model.ErrInvalidInput, minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d to %d bytes", model.ErrInvalidInput, minPasswordLen, maxPasswordLen)
	}
	return nil
}
