package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"seller-center/internal/model"
)

const categoriesPath = "/categories"

type CategoryService struct {
	api apiClient
}

func NewCategoryService(api apiClient) *CategoryService {
	return &CategoryService{api: api}
}

func (s *CategoryService) ListCategories(ctx context.Context) ([]model.Category, error) {
	var resp []model.Category
	if err := s.api.Get(ctx, categoriesPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []model.Category{}
	}
	return resp, nil
}

func (s *CategoryService) GetCategory(ctx context.Context, id string) (model.Category, error) {
	path, err := categoryPath(id)
	if err != nil {
		return model.Category{}, err
	}

	var resp model.Category
	if err := s.api.Get(ctx, path, nil, &resp); err != nil {
		return model.Category{}, err
	}
	return resp, nil
}

func (s *CategoryService) ListAttributes(ctx context.Context, categoryID string) ([]model.CategoryAttribute, error) {
	path, err := categoryPath(categoryID)
	if err != nil {
		return nil, err
	}

	var resp []model.CategoryAttribute
	if err := s.api.Get(ctx, path+"/attributes", nil, &resp); err != nil {
		return nil, err
	}
	if resp == nil {
		resp = []model.CategoryAttribute{}
	}
	return resp, nil
}

func categoryPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: category id is required", model.ErrInvalidInput)
	}
	return categoriesPath + "/" + url.PathEscape(id), nil
}
