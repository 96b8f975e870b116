package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// protocolClaims describe the token rather than the user and are not kept in
// the profile.
var protocolClaims = map[string]struct{}{
	"nbf":       {},
	"jti":       {},
	"auth_time": {},
	"nonce":     {},
	"acr":       {},
	"amr":       {},
	"azp":       {},
	"at_hash":   {},
	"c_hash":    {},
	"iat":       {},
	"exp":       {},
	"iss":       {},
	"aud":       {},
	"sid":       {},
	"idp":       {},
}

// ParseIDTokenClaims decodes the claims of an id_token without verifying its
// signature. The token arrives directly from the token endpoint over TLS.
func ParseIDTokenClaims(idToken string) (map[string]any, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, fmt.Errorf("parse id_token: empty token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("parse id_token: %w", err)
	}
	return map[string]any(claims), nil
}

// ProfileClaims drops protocol claims from claims.
func ProfileClaims(claims map[string]any) map[string]any {
	profile := make(map[string]any, len(claims))
	for k, v := range claims {
		if _, skip := protocolClaims[k]; skip {
			continue
		}
		profile[k] = v
	}
	return profile
}
