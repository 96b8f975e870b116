package model

// APIResponse wraps payloads produced by the portal's own endpoints.
type APIResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Meta    any  `json:"meta,omitempty"`
}

// Pagination is the paging metadata shared by list endpoints.
type Pagination struct {
	CurrentPage     int  `json:"currentPage"`
	PageSize        int  `json:"pageSize"`
	TotalItems      int  `json:"totalItems"`
	TotalPages      int  `json:"totalPages"`
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// SessionView is the non-secret projection of the current identity.
type SessionView struct {
	Subject       string   `json:"subject"`
	Email         string   `json:"email,omitempty"`
	Name          string   `json:"name,omitempty"`
	Roles         []string `json:"roles"`
	EmailVerified bool     `json:"emailVerified"`
	ExpiresAt     *int64   `json:"expiresAt,omitempty"`
}
