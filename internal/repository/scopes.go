package repository

import (
	"chargedesk/pkg/pagination"

	"gorm.io/gorm"
)

// paginate is a gorm scope for one normalized page.
func paginate(page, limit int) func(*gorm.DB) *gorm.DB {
	p := pagination.Normalize(page, limit)
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.Limit)
	}
}
