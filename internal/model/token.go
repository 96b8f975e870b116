package model

import "strings"

// TokenResponse is the identity provider's token endpoint success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    *int64 `json:"expires_in,omitempty"`
}

// TokenError is the identity provider's token endpoint failure body.
type TokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorURI         string `json:"error_uri,omitempty"`
}

const GrantErrorInvalidGrant = "invalid_grant"

// InvalidGrant reports whether the body signals that the refresh credential
// is no longer usable, directly or inside the description.
func (e TokenError) InvalidGrant() bool {
	if e.Error == GrantErrorInvalidGrant {
		return true
	}
	return strings.Contains(e.ErrorDescription, GrantErrorInvalidGrant) ||
		strings.Contains(e.Error, GrantErrorInvalidGrant)
}
