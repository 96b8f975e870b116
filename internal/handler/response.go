package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"seller-center/internal/model"
	"seller-center/pkg/apierror"
)

func writeSuccess(w http.ResponseWriter, status int, data any, meta any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// writeError renders err as an error envelope. Envelopes from the backend are
// passed through with the backend status.
func writeError(w http.ResponseWriter, err error) {
	body := classifyError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.HTTPStatus)
	_ = json.NewEncoder(w).Encode(body)
}

func classifyError(err error) *apierror.ErrorResponse {
	var apiErr *apierror.ErrorResponse
	switch {
	case errors.As(err, &apiErr):
		if apiErr.HTTPStatus == 0 {
			// The backend never answered.
			out := *apiErr
			out.HTTPStatus = http.StatusBadGateway
			return &out
		}
		return apiErr
	case errors.Is(err, model.ErrInvalidInput):
		return apierror.New("BAD_REQUEST", "errors.REQUEST_ERROR", detailOf(err, model.ErrInvalidInput), http.StatusBadRequest)
	case errors.Is(err, model.ErrNotFound):
		return apierror.New("NOT_FOUND", "errors.REQUEST_ERROR", "", http.StatusNotFound)
	case errors.Is(err, model.ErrNoSession),
		errors.Is(err, model.ErrReauthenticationRequired),
		errors.Is(err, model.ErrUnauthorized):
		return apierror.New("UNAUTHORIZED", "errors.UNAUTHORIZED", "session", http.StatusUnauthorized)
	case errors.Is(err, model.ErrSignInStateMismatch):
		return apierror.New("SIGNIN_STATE_MISMATCH", "errors.REQUEST_ERROR", "state", http.StatusBadRequest)
	case errors.Is(err, model.ErrCodeExchangeFailed):
		return apierror.New("CODE_EXCHANGE_FAILED", "errors.SERVICE_UNAVAILABLE", "code", http.StatusBadGateway)
	case errors.Is(err, model.ErrRefreshFailed):
		return apierror.New("SESSION_RENEWAL_FAILED", "errors.SERVICE_UNAVAILABLE", "session", http.StatusServiceUnavailable)
	case errors.Is(err, model.ErrEmailNotVerified):
		return apierror.New("EMAIL_NOT_VERIFIED", "errors.ACCESS_DENIED", "email_verified", http.StatusForbidden)
	case errors.Is(err, model.ErrForbidden):
		return apierror.New("FORBIDDEN", "errors.ACCESS_DENIED", "", http.StatusForbidden)
	case errors.Is(err, context.DeadlineExceeded):
		return apierror.New("REQUEST_TIMEOUT", "errors.SERVICE_UNAVAILABLE", "", http.StatusGatewayTimeout)
	default:
		slog.Error("unhandled error in writeError", "error", err)
		return apierror.New("INTERNAL_ERROR", "errors.SERVER_ERROR", "", http.StatusInternalServerError)
	}
}

// detailOf strips the sentinel prefix from a wrapped validation error so the
// remaining text names the offending field.
func detailOf(err error, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	return strings.TrimSpace(strings.TrimPrefix(msg, ":"))
}

func badRequest(w http.ResponseWriter, source string) {
	writeError(w, apierror.New("BAD_REQUEST", "errors.REQUEST_ERROR", source, http.StatusBadRequest))
}

// decodeJSON reads a JSON request body into dst and answers 400 itself when
// the body is malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		badRequest(w, "body")
		return false
	}
	return true
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

// parseOptionalInt returns nil for a missing or malformed value.
func parseOptionalInt(raw string) *int {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}
