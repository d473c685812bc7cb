package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventChargeRangeSubmitted       = "charge_range.submitted"
	EventChargeRangeFinanceApproved = "charge_range.finance_approved"
	EventChargeRangeApproved        = "charge_range.approved"
	EventChargeRangeRejected        = "charge_range.rejected"
)

const (
	EmailPending = "pending"
	EmailSent    = "sent"
	EmailFailed  = "failed"
	EmailSkipped = "skipped"
)

// Notification is a per-user inbox entry. It doubles as the email outbox.
type Notification struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User      `gorm:"foreignKey:UserID" json:"-"`
	ChargeRangeID *uuid.UUID `gorm:"type:uuid;index" json:"charge_range_id"`
	Event         string     `gorm:"type:varchar(50);not null" json:"event"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Message       string     `gorm:"type:text" json:"message"`
	Data          string     `gorm:"type:jsonb" json:"data"`
	ReadAt        *time.Time `json:"read_at"`
	EmailStatus   string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"email_status"`
	EmailAttempts int        `gorm:"default:0" json:"email_attempts"`
	EmailError    string     `gorm:"type:text" json:"-"`
	CreatedAt     time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
