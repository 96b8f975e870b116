package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"seller-center/internal/model"
)

const productsPath = "/products"

type ProductService struct {
	api apiClient
}

func NewProductService(api apiClient) *ProductService {
	return &ProductService{api: api}
}

func (s *ProductService) CreateProduct(ctx context.Context, req model.CreateProductRequest) (model.CreateProductResponse, error) {
	if err := validateProduct(req); err != nil {
		return model.CreateProductResponse{}, err
	}

	var resp model.CreateProductResponse
	if err := s.api.Post(ctx, productsPath, req, &resp); err != nil {
		return model.CreateProductResponse{}, err
	}
	return resp, nil
}

func (s *ProductService) ListProducts(ctx context.Context, params model.GetProductsParams) (model.GetProductsResponse, error) {
	q := url.Values{}
	setPositive(q, "page", params.Page)
	setPositive(q, "pageSize", params.PageSize)
	setString(q, "searchTerm", strings.TrimSpace(params.SearchTerm))
	setString(q, "category", params.Category)
	setString(q, "sort", params.Sort)

	var resp model.GetProductsResponse
	if err := s.api.Get(ctx, productsPath, q, &resp); err != nil {
		return model.GetProductsResponse{}, err
	}
	if resp.Products == nil {
		resp.Products = []model.Product{}
	}
	return resp, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (model.Product, error) {
	path, err := productPath(id)
	if err != nil {
		return model.Product{}, err
	}

	var resp model.Product
	if err := s.api.Get(ctx, path, nil, &resp); err != nil {
		return model.Product{}, err
	}
	return resp, nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id string, req model.UpdateProductRequest) (model.Product, error) {
	path, err := productPath(id)
	if err != nil {
		return model.Product{}, err
	}
	if err := validateProduct(req); err != nil {
		return model.Product{}, err
	}

	var resp model.Product
	if err := s.api.Put(ctx, path, req, &resp); err != nil {
		return model.Product{}, err
	}
	return resp, nil
}

func productPath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: product id is required", model.ErrInvalidInput)
	}
	return productsPath + "/" + url.PathEscape(id), nil
}

func validateProduct(req model.CreateProductRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name is required", model.ErrInvalidInput)
	}
	if strings.TrimSpace(req.Category) == "" {
		return fmt.Errorf("%w: category is required", model.ErrInvalidInput)
	}

	variants := make(map[string]map[string]struct{}, len(req.ProductVariants))
	for _, v := range req.ProductVariants {
		options := make(map[string]struct{}, len(v.Options))
		for _, o := range v.Options {
			options[o.OptionID] = struct{}{}
		}
		variants[v.ID] = options
	}

	for i, sku := range req.ProductSkus {
		if sku.Price != nil && *sku.Price < 0 {
			return fmt.Errorf("%w: sku %d has a negative price", model.ErrInvalidInput, i)
		}
		if sku.Quantity != nil && *sku.Quantity < 0 {
			return fmt.Errorf("%w: sku %d has a negative quantity", model.ErrInvalidInput, i)
		}
		for _, sv := range sku.SkuVariants {
			options, ok := variants[sv.VariantID]
			if !ok {
				return fmt.Errorf("%w: sku %d references unknown variant %q", model.ErrInvalidInput, i, sv.VariantID)
			}
			if _, ok := options[sv.OptionID]; !ok {
				return fmt.Errorf("%w: sku %d references unknown option %q", model.ErrInvalidInput, i, sv.OptionID)
			}
		}
	}
	return nil
}
