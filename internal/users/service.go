// Package users manages operator accounts after they exist: reading,
// profile updates, role and activation changes, and hard deletion.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/api/validation"
	"github.com/kamalsharma29/crm-dashboard/internal/authz"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
	ErrSelfDelete = errors.New("cannot delete your own account")
	ErrOwnsLeads  = errors.New("user still owns leads")
	ErrInvalid    = errors.New("invalid user data")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) List(ctx context.Context, p authz.Principal) ([]models.User, error) {
	if err := p.Require(authz.ManageUsers); err != nil {
		return nil, err
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

func (s *Service) Get(ctx context.Context, p authz.Principal, id uuid.UUID) (*models.User, error) {
	if !p.Authenticated() {
		return nil, authz.ErrUnauthenticated
	}
	if !p.CanAccessUser(id) {
		return nil, authz.ErrForbidden
	}
	return s.find(ctx, id)
}

// UpdateInput is a partial profile update. Password is accepted so callers
// can pass a decoded body through, but it is never applied here.
type UpdateInput struct {
	Name     *string
	Email    *string
	Role     *string
	IsActive *bool
	Password *string
}

// Update applies a self-or-admin update. Role and IsActive are silently
// dropped unless the caller can manage users.
func (s *Service) Update(ctx context.Context, p authz.Principal, id uuid.UUID, in UpdateInput) (*models.User, error) {
	if !p.Authenticated() {
		return nil, authz.ErrUnauthenticated
	}
	if !p.CanAccessUser(id) {
		return nil, authz.ErrForbidden
	}

	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalid)
		}
		updates["name"] = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !validation.IsValidEmail(email) {
			return nil, fmt.Errorf("%w: invalid email address", ErrInvalid)
		}
		if email != user.Email {
			var count int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).
				Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
				return nil, fmt.Errorf("checking email: %w", err)
			}
			if count > 0 {
				return nil, ErrEmailTaken
			}
			updates["email"] = email
		}
	}

	if p.Can(authz.ManageUsers) {
		if in.Role != nil {
			role := models.Role(*in.Role)
			if !role.Valid() {
				return nil, fmt.Errorf("%w: invalid role", ErrInvalid)
			}
			updates["role"] = role
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("updating user: %w", err)
		}
	}
	return s.find(ctx, id)
}

// Delete hard-deletes a user. Callers cannot delete themselves, and users
// who still own leads must have them reassigned first.
func (s *Service) Delete(ctx context.Context, p authz.Principal, id uuid.UUID) error {
	if err := p.Require(authz.ManageUsers); err != nil {
		return err
	}
	if p.IsSelf(id) {
		return ErrSelfDelete
	}

	if _, err := s.find(ctx, id); err != nil {
		return err
	}

	// Soft-deleted leads still reference the owner.
	var owned int64
	if err := s.db.WithContext(ctx).Unscoped().Model(&models.Lead{}).Where("assigned_to_id = ?", id).Count(&owned).Error; err != nil {
		return fmt.Errorf("counting leads: %w", err)
	}
	if owned > 0 {
		return ErrOwnsLeads
	}

	if err := s.db.WithContext(ctx).Unscoped().Where("id = ?", id).Delete(&models.User{}).Error; err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}
