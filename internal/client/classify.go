package client

import (
	"net/http"

	"seller-center/internal/notify"
)

// Retryable reports whether a failed attempt may be sent again. status is 0
// when no response was received.
func Retryable(status int) bool {
	switch {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500 && status <= 599:
		return true
	default:
		return false
	}
}

// ClassFor maps a terminal failure to the notification shown to the user.
// 401 is not mapped here; it starts a new sign-in instead.
func ClassFor(status int) notify.Class {
	switch {
	case status == 0:
		return notify.ClassConnectionError
	case status == http.StatusForbidden:
		return notify.ClassAccessDenied
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return notify.ClassTooManyRequests
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return notify.ClassServiceUnavailable
	case status >= 500 && status <= 599:
		return notify.ClassServerError
	default:
		return notify.ClassRequestError
	}
}
