package handler

import (
	"net/http"

	"seller-center/internal/model"
	"seller-center/internal/service"
)

type AccountHandler struct {
	accounts *service.AccountService
	stores   *service.StoreService
	users    *service.UserService
}

func NewAccountHandler(accounts *service.AccountService, stores *service.StoreService, users *service.UserService) *AccountHandler {
	return &AccountHandler{accounts: accounts, stores: stores, users: users}
}

func (h *AccountHandler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var payload model.SendEmailVerificationRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	returnURL := ""
	if payload.ReturnURL != nil {
		returnURL = *payload.ReturnURL
	}

	if err := h.accounts.SendVerificationEmail(r.Context(), payload.CallbackURL, returnURL); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var payload model.ConfirmEmailVerificationRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.accounts.VerifyEmail(r.Context(), payload.Token); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) RegisterStore(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterStoreRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	store, err := h.stores.RegisterStore(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, store, nil)
}

func (h *AccountHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.users.GetSettings(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, settings, nil)
}

func (h *AccountHandler) SetSettings(w http.ResponseWriter, r *http.Request) {
	var payload model.UserSettings
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.users.SetSettings(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
