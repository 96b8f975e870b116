package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// API is a JSON client for the versioned backend REST API.
type API struct {
	dispatcher *Dispatcher
	apiRoot    string
	version    string
}

func NewAPI(dispatcher *Dispatcher, baseURL string, version string) *API {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasSuffix(base, "/api") {
		base += "/api"
	}
	if version == "" {
		version = "v1"
	}
	return &API{dispatcher: dispatcher, apiRoot: base, version: strings.Trim(version, "/")}
}

// BuildURL returns {base}/api/{version}/{path}.
func (a *API) BuildURL(path string) string {
	return a.BuildVersionedURL(path, a.version)
}

func (a *API) BuildVersionedURL(path string, version string) string {
	return a.apiRoot + "/" + strings.Trim(version, "/") + "/" + strings.TrimLeft(path, "/")
}

func (a *API) Get(ctx context.Context, path string, query url.Values, out any) error {
	return a.do(ctx, http.MethodGet, path, query, nil, out)
}

func (a *API) Post(ctx context.Context, path string, in any, out any) error {
	return a.do(ctx, http.MethodPost, path, nil, in, out)
}

func (a *API) Put(ctx context.Context, path string, in any, out any) error {
	return a.do(ctx, http.MethodPut, path, nil, in, out)
}

func (a *API) Patch(ctx context.Context, path string, in any, out any) error {
	return a.do(ctx, http.MethodPatch, path, nil, in, out)
}

func (a *API) Delete(ctx context.Context, path string, out any) error {
	return a.do(ctx, http.MethodDelete, path, nil, nil, out)
}

// HealthCheck reports whether {base}/api/health answers with 2xx.
func (a *API) HealthCheck(ctx context.Context) bool {
	_, err := a.dispatcher.Send(ctx, &Request{Method: http.MethodGet, URL: a.apiRoot + "/health"})
	return err == nil
}

func (a *API) do(ctx context.Context, method string, path string, query url.Values, in any, out any) error {
	req := &Request{Method: method, URL: a.BuildURL(path), Query: query}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		req.Body = body
	}

	resp, err := a.dispatcher.Send(ctx, req)
	if err != nil {
		return err
	}

	if out == nil || len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
