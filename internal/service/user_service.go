package service

import (
	"context"

	"seller-center/internal/model"
)

const userSettingsPath = "/users/settings"

type UserService struct {
	api apiClient
}

func NewUserService(api apiClient) *UserService {
	return &UserService{api: api}
}

func (s *UserService) GetSettings(ctx context.Context) (model.UserSettings, error) {
	var resp model.UserSettings
	if err := s.api.Get(ctx, userSettingsPath, nil, &resp); err != nil {
		return model.UserSettings{}, err
	}
	return resp, nil
}

// SetSettings stores settings. The backend answers 204.
func (s *UserService) SetSettings(ctx context.Context, settings model.UserSettings) error {
	return s.api.Put(ctx, userSettingsPath, settings, nil)
}
