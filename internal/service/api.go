package service

import (
	"context"
	"net/url"
	"strconv"
)

// apiClient is the JSON surface of *client.API used by the domain services.
type apiClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, in any, out any) error
	Put(ctx context.Context, path string, in any, out any) error
	Patch(ctx context.Context, path string, in any, out any) error
	Delete(ctx context.Context, path string, out any) error
}

func setPositive(q url.Values, key string, v int) {
	if v > 0 {
		q.Set(key, strconv.Itoa(v))
	}
}

func setOptional(q url.Values, key string, v *int) {
	if v != nil {
		q.Set(key, strconv.Itoa(*v))
	}
}

func setString(q url.Values, key string, v string) {
	if v != "" {
		q.Set(key, v)
	}
}
