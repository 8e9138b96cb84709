// Package authz decides what a caller may do with leads and users. Every
// lead and user endpoint goes through a Principal instead of comparing role
// strings itself.
package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kamalsharma29/crm-dashboard/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
)

type Capability int

const (
	// ViewAllLeads lifts the owner constraint on lead reads.
	ViewAllLeads Capability = iota
	// ModifyAllLeads lifts the owner constraint on lead updates.
	ModifyAllLeads
	// ReassignLeads allows setting assignedTo to someone else.
	ReassignLeads
	DeleteLeads
	// ManageUsers covers listing, creating, deleting users and changing
	// role or isActive.
	ManageUsers
	ViewTopPerformers
)

func (c Capability) String() string {
	switch c {
	case ViewAllLeads:
		return "view_all_leads"
	case ModifyAllLeads:
		return "modify_all_leads"
	case ReassignLeads:
		return "reassign_leads"
	case DeleteLeads:
		return "delete_leads"
	case ManageUsers:
		return "manage_users"
	case ViewTopPerformers:
		return "view_top_performers"
	}
	return "unknown"
}

var grants = map[models.Role]map[Capability]bool{
	models.RoleAdmin: {
		ViewAllLeads:      true,
		ModifyAllLeads:    true,
		ReassignLeads:     true,
		DeleteLeads:       true,
		ManageUsers:       true,
		ViewTopPerformers: true,
	},
	models.RoleManager: {
		ViewAllLeads: true,
	},
	models.RoleEmployee: {},
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   models.Role
}

func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil && p.Role.Valid()
}

func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

func (p Principal) Can(c Capability) bool {
	if !p.Authenticated() {
		return false
	}
	return grants[p.Role][c]
}

// Require returns nil when the caller holds c.
func (p Principal) Require(c Capability) error {
	if !p.Authenticated() {
		return ErrUnauthenticated
	}
	if !p.Can(c) {
		return ErrForbidden
	}
	return nil
}

func (p Principal) IsSelf(id uuid.UUID) bool {
	return p.Authenticated() && p.UserID == id
}

// CanAccessUser allows reading or updating a user profile: your own, or any
// with ManageUsers.
func (p Principal) CanAccessUser(id uuid.UUID) bool {
	return p.IsSelf(id) || p.Can(ManageUsers)
}

// LeadReadScope constrains a lead query to rows the caller may see.
func (p Principal) LeadReadScope() func(*gorm.DB) *gorm.DB {
	return p.leadScope(ViewAllLeads)
}

// LeadWriteScope constrains a lead query to rows the caller may change.
func (p Principal) LeadWriteScope() func(*gorm.DB) *gorm.DB {
	return p.leadScope(ModifyAllLeads)
}

func (p Principal) leadScope(c Capability) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if !p.Authenticated() {
			// matches nothing
			return db.Where("1 = 0")
		}
		if p.Can(c) {
			return db
		}
		return db.Where("leads.assigned_to_id = ?", p.UserID)
	}
}

// LeadOwner picks the owner for a new lead. Callers without ReassignLeads
// always own what they create.
func (p Principal) LeadOwner(requested *uuid.UUID) uuid.UUID {
	if requested != nil && *requested != uuid.Nil && p.Can(ReassignLeads) {
		return *requested
	}
	return p.UserID
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.Authenticated()
}
