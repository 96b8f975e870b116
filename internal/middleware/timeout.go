package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"seller-center/pkg/apierror"
)

func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	body, _ := json.Marshal(apierror.New("REQUEST_TIMEOUT", "errors.SERVICE_UNAVAILABLE", "", http.StatusServiceUnavailable))
	message := string(body)

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, message)
	}
}
