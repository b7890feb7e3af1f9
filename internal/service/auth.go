package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/finvault/bankcore/internal/domain"
	"github.com/finvault/bankcore/internal/session"
	"github.com/finvault/bankcore/internal/store"
)

// RegisterInput is the validated registration payload. The username charset
// is restricted to alphanumerics so injection-style payloads are rejected as
// malformed input before they reach storage.
type RegisterInput struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required,min=7,max=15"`
}

// AuthService is the sole mutator of user records and the only caller of the
// session store's issue/revoke operations.
type AuthService struct {
	store      store.Store
	sessions   *session.Store
	validate   *validator.Validate
	bcryptCost int
}

func NewAuthService(s store.Store, sessions *session.Store, bcryptCost int) *AuthService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		store:      s,
		sessions:   sessions,
		validate:   validator.New(),
		bcryptCost: bcryptCost,
	}
}

// Register creates the user and provisions their initial zero-balance
// account. It does not log the user in.
func (a *AuthService) Register(ctx context.Context, in RegisterInput) error {
	if err := a.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" {
					return domain.ErrMissingFields
				}
			}
			return domain.ErrInvalidInput
		}
		return domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.bcryptCost)
	if err != nil {
		return fmt.Errorf("password hash failed: %w", err)
	}

	userID, err := a.store.CreateUser(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
	})
	if err != nil {
		return err
	}

	if _, err := a.store.CreateAccount(ctx, userID, 0); err != nil {
		return fmt.Errorf("account provisioning failed: %w", err)
	}
	return nil
}

// Login verifies credentials and issues a session token. Unknown username
// and wrong password report the same error so neither is leaked.
func (a *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	if password == "" {
		return "", domain.ErrPasswordMissing
	}

	user, err := a.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	return a.sessions.Issue(user.ID)
}

// Logout revokes the session. A token that was never issued, already
// revoked, or expired fails with domain.ErrInvalidToken.
func (a *AuthService) Logout(token string) error {
	return a.sessions.Revoke(token)
}
