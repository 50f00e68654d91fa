// Package toplogger is a client for the TopLogger REST API. Requests
// are assembled with a fluent builder and executed through a caching
// send path, so dashboard reloads don't hammer the remote service.
package toplogger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"toplogger-backend/lib/telemetry"
	"toplogger-backend/lib/toplogger/respcache"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"context"
)

var tracer = otel.Tracer("toplogger/client")

const DefaultBaseURL = "https://api.toplogger.nu/v1"

// RemoteError is a non-2xx response from the TopLogger service. It is
// never retried; callers decide whether to surface or abort.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("toplogger: [%d]: %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	http    *resty.Client
	cache   respcache.Store
	ttl     time.Duration
}

type Options struct {
	// defaults to DefaultBaseURL
	BaseURL string
	// defaults to an in-process memory store
	Cache respcache.Store
	// lifetime of cached responses, zero means they never expire
	CacheTTL time.Duration
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Cache == nil {
		opts.Cache = respcache.NewMemoryStore()
	}

	http := resty.New()
	telemetry.InstrumentResty(http, "toplogger/http")

	return &Client{
		baseURL: opts.BaseURL,
		http:    http,
		cache:   opts.Cache,
		ttl:     opts.CacheTTL,
	}
}

// send executes a built request. With useCache a stored response for
// the same signature is returned when present and unexpired; without
// it the network is always hit, but the fresh response still lands in
// the cache so later cache-enabled sends see it.
func (c *Client) send(ctx context.Context, req Request, useCache bool) (any, error) {
	ctx, span := tracer.Start(ctx, "send")
	defer span.End()

	full := req.URL
	if len(req.Params) > 0 {
		query := url.Values{}
		for k, v := range req.Params {
			query.Set(k, v)
		}
		full = req.URL + "?" + query.Encode()
	}

	signature, err := respcache.Signature(req.Method, full)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to compute request signature")
		return nil, err
	}
	span.SetAttributes(
		attribute.KeyValue{
			Key:   "signature",
			Value: attribute.StringValue(signature),
		},
		attribute.KeyValue{
			Key:   "use_cache",
			Value: attribute.BoolValue(useCache),
		},
	)

	if useCache {
		cached, err := c.cache.Get(ctx, signature)
		if err == nil {
			span.AddEvent("cache hit")
			return decodeBody(cached.Body)
		}
		if err != respcache.ErrNotFound {
			// a broken cache shouldn't take down the fetch
			slog.WarnContext(ctx, "response cache read failed", "key", signature, "err", err)
		}
	}

	r := c.http.R().SetContext(ctx)
	if len(req.Params) > 0 {
		r.SetQueryParams(req.Params)
	}
	if len(req.Data) > 0 {
		r.SetFormData(req.Data)
	}
	res, err := r.Execute(req.Method, req.URL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return nil, err
	}
	if res.IsError() {
		remoteErr := &RemoteError{
			StatusCode: res.StatusCode(),
			Body:       res.String(),
		}
		span.RecordError(remoteErr)
		span.SetStatus(codes.Error, "remote service returned an error status")
		return nil, remoteErr
	}

	now := time.Now()
	entry := respcache.Entry{
		StatusCode: res.StatusCode(),
		Body:       res.Body(),
		CreatedAt:  now.Unix(),
	}
	if c.ttl != 0 {
		entry.ExpiresAt = now.Add(c.ttl).Unix()
	}
	err = c.cache.Put(ctx, signature, entry)
	if err != nil {
		slog.WarnContext(ctx, "response cache write failed", "key", signature, "err", err)
	}

	return decodeBody(res.Body())
}

func decodeBody(body []byte) (any, error) {
	var v any
	err := json.Unmarshal(body, &v)
	if err != nil {
		return nil, fmt.Errorf("toplogger: malformed response body: %w", err)
	}
	return v, nil
}
