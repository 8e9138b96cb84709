package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
)

// Authenticator defines the interface for user authentication operations.
type Authenticator interface {
	CreateAccount(ctx context.Context, input AccountInput) (*models.User, error)
	Register(ctx context.Context, name, email, password string) (*AuthResponse, error)
	Login(ctx context.Context, input LoginInput) (*AuthResponse, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	LockedUntil(email string) time.Time
	SessionDuration() time.Duration
}

var _ Authenticator = (*Service)(nil)
