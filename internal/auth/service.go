package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"github.com/kamalsharma29/crm-dashboard/internal/security"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveUser       = errors.New("user is inactive")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// WeakPasswordError is returned when a password breaks the policy.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return e.Reason
}

type Service struct {
	db      *gorm.DB
	jwt     *JWTService
	lockout *security.Lockout
	policy  PasswordPolicy
}

func NewService(db *gorm.DB, jwt *JWTService, lockout *security.Lockout, policy PasswordPolicy) *Service {
	return &Service{db: db, jwt: jwt, lockout: lockout, policy: policy}
}

type AccountInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResponse struct {
	Token string
	User  *models.User
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateAccount stores a new active user after checking the password policy
// and email uniqueness.
func (s *Service) CreateAccount(ctx context.Context, input AccountInput) (*models.User, error) {
	if input.Role == "" {
		input.Role = models.RoleEmployee
	}
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	email := NormalizeEmail(input.Email)
	if !validation.IsValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if reason := s.policy.Check(input.Password); reason != "" {
		return nil, &WeakPasswordError{Reason: reason}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking email: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}

// Register creates an employee account and signs it in.
func (s *Service) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	user, err := s.CreateAccount(ctx, AccountInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     models.RoleEmployee,
	})
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

// Login checks credentials. Failures count against the email's lockout
// budget; while locked, no credentials are checked at all.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	key := NormalizeEmail(input.Email)
	if s.lockout != nil && s.lockout.IsLocked(key) {
		return nil, ErrAccountLocked
	}

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", key).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.recordFailure(key)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(input.Password, user.PasswordHash) {
		s.recordFailure(key)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	if s.lockout != nil {
		s.lockout.ClearFailedAttempts(key)
	}
	return s.issue(&user)
}

// LockedUntil reports when a locked email may try again.
func (s *Service) LockedUntil(email string) time.Time {
	if s.lockout == nil {
		return time.Time{}
	}
	return s.lockout.LockedUntil(NormalizeEmail(email))
}

// SessionDuration is how long issued tokens stay valid.
func (s *Service) SessionDuration() time.Duration {
	return s.jwt.Expiry()
}

func (s *Service) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Service) recordFailure(key string) {
	if s.lockout != nil {
		s.lockout.RecordFailedAttempt(key)
	}
}

func (s *Service) issue(user *models.User) (*AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Email, user.Name, user.Role)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}
