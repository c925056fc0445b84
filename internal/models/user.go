package models

import (
	"github.com/google/uuid"
)

// User roles.
const (
	RoleCashier = "cashier"
	RoleAdmin   = "admin"
)

// User represents a cashier or admin account within a tenant.
type User struct {
	BaseModel
	TenantID     uuid.UUID  `gorm:"type:uuid;index" json:"tenant_id"`
	BranchID     *uuid.UUID `gorm:"type:uuid;index" json:"branch_id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Email        string     `gorm:"uniqueIndex" json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `gorm:"default:cashier" json:"role"`
	IsActive     bool       `gorm:"default:true" json:"is_active"`
}

// IsAdmin reports whether the user may perform admin-only operations
// such as force-closing another cashier's shift.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
