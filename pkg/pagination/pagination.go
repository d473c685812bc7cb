// Package pagination normalizes page/limit query parameters and shapes the
// page returned by list endpoints.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type Params struct {
	Page  int
	Limit int
}

// Offset is the number of rows before this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Normalize clamps page to at least 1 and limit to [1, MaxLimit]. A
// non-positive limit becomes DefaultLimit.
func Normalize(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	switch {
	case limit < 1:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	return Params{Page: page, Limit: limit}
}

// Parse reads ?page= and ?limit=. Malformed values fall back to the defaults.
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return Normalize(page, limit)
}

// Page wraps one page of items with its total count
type Page struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

func NewPage(items interface{}, total int64, p Params) Page {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Page{Items: items, Total: total, Page: p.Page, Limit: p.Limit, TotalPages: pages}
}
