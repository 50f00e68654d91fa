package toplogger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Request is a finalized request descriptor. Once built it is not
// modified; the maps are copies owned by the descriptor.
type Request struct {
	Method string
	URL    string
	Params map[string]string
	Data   map[string]string
}

// RequestBuilder accumulates request intent through chainable setters,
// every method returns the receiver. The includes list is ordered (the
// service interprets it positionally); filters merge shallowly with
// later calls overriding colliding keys.
type RequestBuilder struct {
	client   *Client
	url      string
	method   string
	params   map[string]string
	data     map[string]string
	includes []string
	filters  map[string]any
}

// NewRequest returns a blank GET builder bound to this client.
func (c *Client) NewRequest() *RequestBuilder {
	return &RequestBuilder{
		client:  c,
		method:  http.MethodGet,
		params:  map[string]string{},
		data:    map[string]string{},
		filters: map[string]any{},
	}
}

func (b *RequestBuilder) SetURL(url string) *RequestBuilder {
	b.url = url
	return b
}

func (b *RequestBuilder) SetMethod(method string) *RequestBuilder {
	b.method = method
	return b
}

// AddParam sets a query parameter, last write per key wins.
func (b *RequestBuilder) AddParam(key, value string) *RequestBuilder {
	b.params[key] = value
	return b
}

// AddData sets a form body field.
func (b *RequestBuilder) AddData(key, value string) *RequestBuilder {
	b.data[key] = value
	return b
}

// Include appends a resource name to the ordered include list.
func (b *RequestBuilder) Include(name string) *RequestBuilder {
	b.includes = append(b.includes, name)
	return b
}

// Filter shallow-merges into the accumulated filters.
func (b *RequestBuilder) Filter(filters map[string]any) *RequestBuilder {
	for k, v := range filters {
		b.filters[k] = v
	}
	return b
}

// jsonParams is the single query parameter the service expects the
// include list and filters to be serialized into.
type jsonParams struct {
	Includes []string       `json:"includes"`
	Filters  map[string]any `json:"filters"`
}

// Build finalizes the request: includes and filters are serialized
// into the json_params query parameter (recomputed and overwritten on
// every call, so building twice yields identical descriptors) and the
// descriptor is returned with copies of the accumulated maps.
func (b *RequestBuilder) Build() (Request, error) {
	includes := b.includes
	if includes == nil {
		includes = []string{}
	}
	serialized, err := json.Marshal(jsonParams{
		Includes: includes,
		Filters:  b.filters,
	})
	if err != nil {
		return Request{}, fmt.Errorf("toplogger: failed to serialize json_params: %w", err)
	}
	b.params["json_params"] = string(serialized)

	params := make(map[string]string, len(b.params))
	for k, v := range b.params {
		params[k] = v
	}
	data := make(map[string]string, len(b.data))
	for k, v := range b.data {
		data[k] = v
	}

	return Request{
		Method: b.method,
		URL:    b.url,
		Params: params,
		Data:   data,
	}, nil
}

// Execute builds the request and sends it through the client's caching
// executor. cached=false forces a fresh network call (the response is
// still written to the cache).
func (b *RequestBuilder) Execute(ctx context.Context, cached bool) (any, error) {
	req, err := b.Build()
	if err != nil {
		return nil, err
	}
	return b.client.send(ctx, req, cached)
}
