package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/constants"
)

// PaginationParams is an offset page, used by admin listings.
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse is the pagination block of listing responses.
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// CursorParams pages backwards through an ID-ordered feed. Before is 0 for the newest page.
type CursorParams struct {
	Before uint64
	Limit  int
}

// GetPaginationParams reads ?page and ?limit. Out of range values fall back to defaults.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit := queryLimit(c)

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Response builds the pagination block for a page of total rows.
func (p PaginationParams) Response(total int64) PaginationResponse {
	return PaginationResponse{Page: p.Page, Limit: p.Limit, Total: total}
}

// GetCursorParams reads ?before and ?limit. ok is false when before is not a number.
func GetCursorParams(c *gin.Context) (CursorParams, bool) {
	params := CursorParams{Limit: queryLimit(c)}
	if v := c.Query("before"); v != "" {
		before, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return params, false
		}
		params.Before = before
	}
	return params, true
}

func queryLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < constants.MinPageSize || limit > constants.MaxPageSize {
		return constants.DefaultPageSize
	}
	return limit
}

// ParseIDParam parses a positive uint64 path parameter.
func ParseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
