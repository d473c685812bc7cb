package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleTeamMember      = "team_member"
	RoleFinanceApprover = "finance_approver"
	RoleCEO             = "ceo"
	RoleSuperAdmin      = "super_admin"
)

const (
	PermViewChargeRange       = "view_charge_range"
	PermCreateChargeRange     = "create_charge_range"
	PermEditChargeRange       = "edit_charge_range"
	PermDeleteChargeRange     = "delete_charge_range"
	PermSubmitForApproval     = "submit_for_approval"
	PermApproveFinance        = "approve_finance"
	PermApproveCEO            = "approve_ceo"
	PermRejectChargeRange     = "reject_charge_range"
	PermToggleChargeRange     = "toggle_charge_range"
	PermViewTransactionType   = "view_transaction_type"
	PermCreateTransactionType = "create_transaction_type"
	PermEditTransactionType   = "edit_transaction_type"
	PermDeleteTransactionType = "delete_transaction_type"
	PermViewAuditLog          = "view_audit_log"
	PermViewDashboard         = "view_dashboard"
)

// Role represents a user role with associated permissions
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Permission represents a single permission that can be assigned to roles
type Permission struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code  string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"` // e.g. "approve_finance"
	Name  string    `gorm:"type:varchar(255);not null" json:"name"`
	Group string    `gorm:"type:varchar(50);not null;index" json:"group"` // "charge_ranges", "transaction_types"...
}
