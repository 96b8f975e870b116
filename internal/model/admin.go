package model

type AdminStatus int

const (
	AdminInactive AdminStatus = 0
	AdminActive   AdminStatus = 1
)

// StatusFilter values accepted by the admin list endpoint.
const (
	StatusFilterAll      = -1
	StatusFilterInactive = 0
	StatusFilterActive   = 1
)

// RoleFilter values accepted by the admin list endpoint.
const (
	RoleFilterAll          = -1
	RoleFilterCustomer     = 0
	RoleFilterSeller       = 1
	RoleFilterRegularAdmin = 2
	RoleFilterSystemAdmin  = 3
)

type CreateAdminRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	IsSystemAdmin   bool   `json:"isSystemAdmin"`
}

type CreateAdminResponse struct {
	ID            string  `json:"id"`
	FullName      string  `json:"fullName"`
	Email         string  `json:"email"`
	IsSystemAdmin bool    `json:"isSystemAdmin"`
	CreatedAt     string  `json:"createdAt"`
	IsActive      bool    `json:"isActive"`
	LastLoginAt   *string `json:"lastLoginAt,omitempty"`
	UpdatedAt     *string `json:"updatedAt,omitempty"`
	AvatarURL     *string `json:"avatarUrl,omitempty"`
}

// Admin converts the creation response into the list representation.
func (r CreateAdminResponse) Admin() Admin {
	status := AdminInactive
	if r.IsActive {
		status = AdminActive
	}
	username := r.Email
	if username == "" {
		username = r.ID
	}
	return Admin{
		ID:            r.ID,
		Username:      username,
		FullName:      r.FullName,
		Email:         r.Email,
		Status:        status,
		IsSystemAdmin: r.IsSystemAdmin,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		LastLoginAt:   r.LastLoginAt,
		AvatarURL:     r.AvatarURL,
	}
}

type Admin struct {
	ID            string      `json:"id"`
	Username      string      `json:"username"`
	FullName      string      `json:"fullName"`
	Email         string      `json:"email"`
	Status        AdminStatus `json:"status"`
	IsSystemAdmin bool        `json:"isSystemAdmin"`
	CreatedAt     string      `json:"createdAt"`
	UpdatedAt     *string     `json:"updatedAt,omitempty"`
	LastLoginAt   *string     `json:"lastLoginAt,omitempty"`
	AvatarURL     *string     `json:"avatarUrl,omitempty"`
}

type GetAdminsParams struct {
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"pageSize,omitempty"`
	Role       *int   `json:"role,omitempty"`
	Status     *int   `json:"status,omitempty"`
	SearchTerm string `json:"searchTerm,omitempty"`
	Sort       string `json:"sort,omitempty"`
}

type GetAdminsResponse struct {
	Admins     []Admin    `json:"admins"`
	Pagination Pagination `json:"pagination"`
}
