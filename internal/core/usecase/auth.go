package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/clauselens/clauselens/internal/core/domain"
	"github.com/clauselens/clauselens/internal/core/ports"
)

const minPasswordLength = 8

type AuthUseCase struct {
	users ports.UserRepository
}

func NewAuthUseCase(users ports.UserRepository) *AuthUseCase {
	return &AuthUseCase{users: users}
}

func (uc *AuthUseCase) Signup(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.WrapError(domain.ErrInvalidInput, "signup", errors.New("valid email is required"))
	}
	if len(password) < minPasswordLength {
		return nil, domain.WrapError(domain.ErrInvalidInput, "signup",
			fmt.Errorf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (uc *AuthUseCase) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := uc.users.GetUserByEmail(ctx, email)
	if err != nil {
		if domain.IsKind(err, domain.ErrUserNotFound) {
			return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("invalid credentials"))
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.WrapError(domain.ErrUnauthorized, "login", errors.New("invalid credentials"))
	}
	return user, nil
}

func (uc *AuthUseCase) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return uc.users.GetUserByID(ctx, id)
}
