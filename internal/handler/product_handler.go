package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"seller-center/internal/model"
	"seller-center/internal/service"
)

type ProductHandler struct {
	service *service.ProductService
}

func NewProductHandler(service *service.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	data, err := h.service.ListProducts(r.Context(), model.GetProductsParams{
		Page:       parseIntOrDefault(query.Get("page"), 1),
		PageSize:   parseIntOrDefault(query.Get("pageSize"), 20),
		SearchTerm: strings.TrimSpace(query.Get("searchTerm")),
		Category:   strings.TrimSpace(query.Get("category")),
		Sort:       strings.TrimSpace(query.Get("sort")),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data.Products, data.Pagination)
}

func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateProductRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, created, nil)
}

func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, product, nil)
}

func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateProductRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, updated, nil)
}
