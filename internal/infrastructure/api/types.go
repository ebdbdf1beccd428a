// Package api provides the manager REST API client.
package api

import (
	"github.com/lancache-tools/lancachectl/internal/domain/session"
)

// Pagination is the paging metadata echoed back by the server. The client
// never computes totals locally.
type Pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
	TotalCount int `json:"totalCount"`
}

// SessionPage is one page of the session list.
type SessionPage struct {
	Sessions   []session.Session `json:"sessions"`
	Pagination Pagination        `json:"pagination"`
}

// CountResult reports how many records a bulk operation touched.
type CountResult struct {
	Count int `json:"count"`
}

type prefillToggleRequest struct {
	Enabled bool `json:"enabled"`
}
