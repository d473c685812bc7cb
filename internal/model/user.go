package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an operator identity. Credentials live with the identity provider
// that issues tokens; only the role is needed here.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Username  string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"type:varchar(50);not null;index" json:"role"` // team_member, finance_approver, ceo, super_admin
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
