package handler

import (
	"net/http"
	"strings"

	"seller-center/internal/model"
	"seller-center/internal/service"
)

type AdminHandler struct {
	service *service.AdminService
}

func NewAdminHandler(service *service.AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := model.GetAdminsParams{
		Page:       parseIntOrDefault(query.Get("page"), 1),
		PageSize:   parseIntOrDefault(query.Get("pageSize"), 20),
		Role:       parseOptionalInt(query.Get("role")),
		Status:     parseOptionalInt(query.Get("status")),
		SearchTerm: strings.TrimSpace(query.Get("searchTerm")),
		Sort:       strings.TrimSpace(query.Get("sort")),
	}

	data, err := h.service.ListAdmins(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data.Admins, data.Pagination)
}

func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateAdminRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	created, err := h.service.CreateAdmin(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, created.Admin(), nil)
}
