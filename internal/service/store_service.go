package service

import (
	"context"
	"fmt"
	"strings"

	"seller-center/internal/model"
)

const storesPath = "/stores"

type StoreService struct {
	api apiClient
}

func NewStoreService(api apiClient) *StoreService {
	return &StoreService{api: api}
}

func (s *StoreService) RegisterStore(ctx context.Context, req model.RegisterStoreRequest) (model.RegisterStoreResponse, error) {
	req.StoreName = strings.TrimSpace(req.StoreName)
	req.Address = strings.TrimSpace(req.Address)

	switch {
	case req.StoreName == "":
		return model.RegisterStoreResponse{}, fmt.Errorf("%w: storeName is required", model.ErrInvalidInput)
	case req.Address == "":
		return model.RegisterStoreResponse{}, fmt.Errorf("%w: address is required", model.ErrInvalidInput)
	case strings.TrimSpace(req.StoreLogoFileID) == "":
		return model.RegisterStoreResponse{}, fmt.Errorf("%w: storeLogoFileId is required", model.ErrInvalidInput)
	}

	var resp model.RegisterStoreResponse
	if err := s.api.Post(ctx, storesPath, req, &resp); err != nil {
		return model.RegisterStoreResponse{}, err
	}
	return resp, nil
}
