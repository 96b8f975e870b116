package service

import (
	"context"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"seller-center/internal/model"
)

const adminsPath = "/admins"

type AdminService struct {
	api apiClient
}

func NewAdminService(api apiClient) *AdminService {
	return &AdminService{api: api}
}

func (s *AdminService) CreateAdmin(ctx context.Context, req model.CreateAdminRequest) (model.CreateAdminResponse, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)

	if req.FullName == "" {
		return model.CreateAdminResponse{}, fmt.Errorf("%w: fullName is required", model.ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return model.CreateAdminResponse{}, fmt.Errorf("%w: email is invalid", model.ErrInvalidInput)
	}
	if req.Password == "" {
		return model.CreateAdminResponse{}, fmt.Errorf("%w: password is required", model.ErrInvalidInput)
	}
	if req.Password != req.ConfirmPassword {
		return model.CreateAdminResponse{}, fmt.Errorf("%w: passwords do not match", model.ErrInvalidInput)
	}

	var resp model.CreateAdminResponse
	if err := s.api.Post(ctx, adminsPath, req, &resp); err != nil {
		return model.CreateAdminResponse{}, err
	}
	return resp, nil
}

func (s *AdminService) ListAdmins(ctx context.Context, params model.GetAdminsParams) (model.GetAdminsResponse, error) {
	q := url.Values{}
	setPositive(q, "page", params.Page)
	setPositive(q, "pageSize", params.PageSize)
	setOptional(q, "role", params.Role)
	setOptional(q, "status", params.Status)
	setString(q, "searchTerm", strings.TrimSpace(params.SearchTerm))
	setString(q, "sort", params.Sort)

	var resp model.GetAdminsResponse
	if err := s.api.Get(ctx, adminsPath, q, &resp); err != nil {
		return model.GetAdminsResponse{}, err
	}
	if resp.Admins == nil {
		resp.Admins = []model.Admin{}
	}
	return resp, nil
}
