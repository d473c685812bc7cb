package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateTransactionType = "CREATE_TRANSACTION_TYPE"
	ActionUpdateTransactionType = "UPDATE_TRANSACTION_TYPE"
	ActionDeleteTransactionType = "DELETE_TRANSACTION_TYPE"

	ActionCreateChargeRange = "CREATE_CHARGE_RANGE"
	ActionUpdateChargeRange = "UPDATE_CHARGE_RANGE"
	ActionDeleteChargeRange = "DELETE_CHARGE_RANGE"
	ActionToggleChargeRange = "TOGGLE_CHARGE_RANGE"

	// Approval workflow actions
	ActionSubmitChargeRange         = "SUBMIT_CHARGE_RANGE"
	ActionFinanceApproveChargeRange = "FINANCE_APPROVE_CHARGE_RANGE"
	ActionCEOApproveChargeRange     = "CEO_APPROVE_CHARGE_RANGE"
	ActionRejectChargeRange         = "REJECT_CHARGE_RANGE"
)

// AuditLog tracks Who, What, and When for schedule changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
