package middleware

import (
	"encoding/json"
	"net/http"

	"seller-center/pkg/apierror"
)

func writeEnvelope(w http.ResponseWriter, body *apierror.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.HTTPStatus)
	_ = json.NewEncoder(w).Encode(body)
}
