package model

import "errors"

var (
	// Session related errors
	ErrNoSession                = errors.New("no authenticated session")
	ErrInvalidIdentity          = errors.New("identity has no access token")
	ErrReauthenticationRequired = errors.New("session cannot be renewed; sign in again")
	ErrRefreshFailed            = errors.New("token refresh failed")

	// Sign-in related errors
	ErrSignInStateMismatch = errors.New("sign-in state is unknown or expired")
	ErrCodeExchangeFailed  = errors.New("authorization code exchange failed")

	// Permission/Access related errors
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrEmailNotVerified = errors.New("email address not verified")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)
