package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50
)

// Pagination represents pagination parameters
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// PageMeta describes the page returned to the caller
type PageMeta struct {
	Page      int   `json:"page"`
	Limit     int   `json:"limit"`
	Total     int64 `json:"total"`
	PageCount int   `json:"pageCount"`
}

// Page is a slice of items together with its PageMeta
type Page struct {
	Items interface{} `json:"items"`
	Meta  PageMeta    `json:"meta"`
}

// NewPagination clamps page and limit into their allowed ranges
func NewPagination(page, limit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Pagination{Page: page, Limit: limit}
}

// PaginationFromQuery reads page and limit from query parameters
func PaginationFromQuery(c *gin.Context) Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	return NewPagination(page, limit)
}

// Offset is the number of rows skipped before the page
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Meta computes the page metadata for a total row count
func (p Pagination) Meta(total int64) PageMeta {
	pageCount := 0
	if p.Limit > 0 {
		pageCount = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return PageMeta{
		Page:      p.Page,
		Limit:     p.Limit,
		Total:     total,
		PageCount: pageCount,
	}
}
