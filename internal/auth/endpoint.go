package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"seller-center/internal/model"
)

const maxTokenResponseBytes = 1 << 20

// TokenEndpoint returns the OIDC token endpoint of authority.
func TokenEndpoint(authority string) string {
	return strings.TrimRight(authority, "/") + "/connect/token"
}

// EndpointError describes a failed token endpoint exchange.
type EndpointError struct {
	// Status is 0 when no response was received.
	Status int
	Body   model.TokenError
	Err    error
}

func (e *EndpointError) Error() string {
	var b strings.Builder
	b.WriteString("token endpoint")
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Body.Error != "" {
		fmt.Fprintf(&b, ": %s", e.Body.Error)
		if e.Body.ErrorDescription != "" {
			fmt.Fprintf(&b, " (%s)", e.Body.ErrorDescription)
		}
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// InvalidGrant reports whether the provider rejected the grant itself.
func (e *EndpointError) InvalidGrant() bool {
	return e != nil && e.Body.InvalidGrant()
}

type tokenClient struct {
	httpClient *http.Client
	endpoint   string
}

func (c *tokenClient) exchange(ctx context.Context, form url.Values) (*model.TokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &EndpointError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &EndpointError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, &EndpointError{Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	// An invalid_grant body wins regardless of the status code.
	var tokenErr model.TokenError
	_ = json.Unmarshal(body, &tokenErr)
	if tokenErr.InvalidGrant() {
		return nil, &EndpointError{Status: resp.StatusCode, Body: tokenErr}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &EndpointError{Status: resp.StatusCode, Body: tokenErr}
	}

	var tokens model.TokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, &EndpointError{Status: resp.StatusCode, Err: fmt.Errorf("decode body: %w", err)}
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return nil, &EndpointError{Status: resp.StatusCode, Body: tokenErr, Err: errors.New("response has no access_token")}
	}
	return &tokens, nil
}
