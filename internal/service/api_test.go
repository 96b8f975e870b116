package service

import (
	"context"
	"encoding/json"
	"net/url"
)

type apiCall struct {
	method string
	path   string
	query  url.Values
	body   string
}

// fakeAPI records calls and decodes canned JSON responses into out.
type fakeAPI struct {
	calls     []apiCall
	responses map[string]string
	err       error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{responses: map[string]string{}}
}

func (f *fakeAPI) on(method string, path string, body string) {
	f.responses[method+" "+path] = body
}

func (f *fakeAPI) last() apiCall {
	return f.calls[len(f.calls)-1]
}

func (f *fakeAPI) record(method string, path string, query url.Values, in any, out any) error {
	call := apiCall{method: method, path: path, query: query}
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		call.body = string(data)
	}
	f.calls = append(f.calls, call)

	if f.err != nil {
		return f.err
	}
	if resp, ok := f.responses[method+" "+path]; ok && out != nil {
		return json.Unmarshal([]byte(resp), out)
	}
	return nil
}

func (f *fakeAPI) Get(_ context.Context, path string, query url.Values, out any) error {
	return f.record("GET", path, query, nil, out)
}

func (f *fakeAPI) Post(_ context.Context, path string, in any, out any) error {
	return f.record("POST", path, nil, in, out)
}

func (f *fakeAPI) Put(_ context.Context, path string, in any, out any) error {
	return f.record("PUT", path, nil, in, out)
}

func (f *fakeAPI) Patch(_ context.Context, path string, in any, out any) error {
	return f.record("PATCH", path, nil, in, out)
}

func (f *fakeAPI) Delete(_ context.Context, path string, out any) error {
	return f.record("DELETE", path, nil, nil, out)
}
