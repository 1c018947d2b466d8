package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/auth"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/logging"
	"github.com/Ruhan456/Natural-Disaster-Severity-Mapping/internal/repository"
)

// UserStore defines the persistence operations needed by the account service.
type UserStore interface {
	Insert(ctx context.Context, credential *repository.UserCredential) error
	FindByUsername(ctx context.Context, username string) (*repository.UserCredential, error)
}

// AccountUseCase manages user credentials: registration with bcrypt hashing
// and password verification with token issuance.
type AccountUseCase struct {
	users     UserStore
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// NewAccountUseCase constructs the account service.
func NewAccountUseCase(users UserStore, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AccountUseCase {
	return &AccountUseCase{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger.Named("account_usecase"),
	}
}

// Register stores a new user with a bcrypt hash of the password. The
// plaintext never reaches the store. Duplicate usernames are rejected by the
// store's unique index.
func (uc *AccountUseCase) Register(ctx context.Context, username, password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.hash_password", "", err)
		uc.logger.Error("failed to hash password", zap.Error(wrapped))
		return wrapped
	}

	credential := &repository.UserCredential{
		Username:     username,
		PasswordHash: string(hashed),
	}
	if err := uc.users.Insert(ctx, credential); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUsername
		}
		wrapped := fmt.Errorf("%w: %v", ErrStorageFailed, err)
		uc.logger.Error("failed to insert user", zap.Error(wrapped), zap.String("username", username))
		return wrapped
	}

	uc.logger.Info("user registered", zap.String("username", username))
	return nil
}

// Check verifies a username/password pair by hashing the supplied password
// and comparing against the stored hash. On success it returns a signed
// token for the session.
func (uc *AccountUseCase) Check(ctx context.Context, username, password string) (string, error) {
	credential, err := uc.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUnknownUser
		}
		wrapped := fmt.Errorf("%w: %v", ErrStorageFailed, err)
		uc.logger.Error("failed to look up user", zap.Error(wrapped), zap.String("username", username))
		return "", wrapped
	}

	if err := bcrypt.CompareHashAndPassword([]byte(credential.PasswordHash), []byte(password)); err != nil {
		return "", ErrWrongPassword
	}

	token, err := auth.IssueToken(uc.jwtSecret, username, uc.tokenTTL)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.issue_token", "", err)
		uc.logger.Error("failed to issue token", zap.Error(wrapped), zap.String("username", username))
		return "", wrapped
	}
	return token, nil
}
