package model

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType is a coded category of money movement that charge ranges are scoped to
type TransactionType struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Code         string        `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name         string        `gorm:"type:varchar(255);not null" json:"name"`
	Description  *string       `gorm:"type:text" json:"description"`
	IsActive     bool          `gorm:"default:true;index" json:"is_active"`
	ChargeRanges []ChargeRange `gorm:"foreignKey:TransactionTypeID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"charge_ranges,omitempty"`
	CreatedAt    time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}
