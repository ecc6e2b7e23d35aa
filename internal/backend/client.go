// Package backend talks to the storefront REST backend. Every response is wrapped in the
// {status, statusCode, message, data} envelope.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Alturino/storefront/internal/config"
	commonErrors "github.com/Alturino/storefront/internal/errors"
	inHttp "github.com/Alturino/storefront/internal/http"
	"github.com/Alturino/storefront/internal/log"
	"github.com/Alturino/storefront/internal/metrics"
	"github.com/Alturino/storefront/internal/otel"
)

const defaultTimeout = 15 * time.Second

// TokenSource supplies the bearer token of the current visitor, if any.
type TokenSource interface {
	Token(c context.Context) (string, bool)
}

type Client struct {
	httpClient     *http.Client
	baseURL        *url.URL
	headers        map[string]string
	tokens         TokenSource
	onUnauthorized func(context.Context)
	metrics        *metrics.Metrics
}

type Option func(*Client)

func WithTokenSource(tokens TokenSource) Option {
	return func(cl *Client) {
		cl.tokens = tokens
	}
}

// WithUnauthorizedHook registers fn to run whenever the backend answers 401.
func WithUnauthorizedHook(fn func(context.Context)) Option {
	return func(cl *Client) {
		cl.onUnauthorized = fn
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func WithHeader(key, value string) Option {
	return func(cl *Client) {
		cl.headers[key] = value
	}
}

func NewClient(cfg config.Backend, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base url is required")
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed parsing backend base url with error=%w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	cl := &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   cfg.Timeout,
		},
		baseURL: baseURL,
		headers: map[string]string{
			inHttp.KeyHeaderContentType: inHttp.ValueHeaderApplicationJson,
			inHttp.KeyHeaderAccept:      inHttp.ValueHeaderApplicationJson,
		},
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// WithToken returns a shallow copy of the client bound to another token source and hook.
// Sessions share one transport this way.
func (cl *Client) WithToken(tokens TokenSource, onUnauthorized func(context.Context)) *Client {
	clone := *cl
	clone.tokens = tokens
	clone.onUnauthorized = onUnauthorized
	return &clone
}

type envelope[T any] struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       T      `json:"data"`
}

// do sends one request and decodes the envelope data into T. Non-2xx answers map to
// ErrUnauthorized (401) or ErrRequestFailed.
func do[T any](c context.Context, cl *Client, method string, path string, body any) (T, error) {
	var zero T
	endpoint := method + " " + path

	c, span := otel.Tracer.Start(c, "Client "+endpoint)
	defer span.End()

	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyTag, "Client do").
		Str(log.KeyEndpoint, endpoint).
		Logger()

	logger = logger.With().Str(log.KeyProcess, "building request").Logger()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			err = fmt.Errorf("failed marshaling request body with error=%w", err)
			commonErrors.HandleError(err, span)
			logger.Error().Err(err).Msg(err.Error())
			return zero, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(c, method, cl.baseURL.String()+path, reader)
	if err != nil {
		err = fmt.Errorf("failed building request with error=%w", err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return zero, err
	}
	for k, v := range cl.headers {
		req.Header.Set(k, v)
	}
	if requestID := log.RequestIDFromContext(c); requestID != "" {
		req.Header.Set(inHttp.KeyHeaderRequestID, requestID)
	}
	if cl.tokens != nil {
		if token, ok := cl.tokens.Token(c); ok {
			req.Header.Set(inHttp.KeyHeaderAuthorization, "Bearer "+token)
		}
	}

	logger = logger.With().Str(log.KeyProcess, "sending request").Logger()
	logger.Trace().Msg("sending request")
	start := time.Now()
	resp, err := cl.httpClient.Do(req)
	if err != nil {
		cl.metrics.BackendRequest(endpoint, "error", time.Since(start))
		err = fmt.Errorf("failed sending request with error=%w: %w", commonErrors.ErrRequestFailed, err)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return zero, err
	}
	defer resp.Body.Close()
	cl.metrics.BackendRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
	logger = logger.With().Int(log.KeyStatusCode, resp.StatusCode).Logger()
	logger.Trace().Msg("sent request")

	if resp.StatusCode == http.StatusUnauthorized {
		err = fmt.Errorf("failed sending request with error=%w", commonErrors.ErrUnauthorized)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		if cl.onUnauthorized != nil {
			cl.onUnauthorized(c)
		}
		return zero, err
	}

	logger = logger.With().Str(log.KeyProcess, "decoding response").Logger()
	var env envelope[T]
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := http.StatusText(resp.StatusCode)
		if decodeErr == nil && env.Message != "" {
			message = env.Message
		}
		err = fmt.Errorf("failed sending request with error=%w: status=%d message=%s", commonErrors.ErrRequestFailed, resp.StatusCode, message)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return zero, err
	}
	if decodeErr != nil && !errors.Is(decodeErr, io.EOF) {
		err = fmt.Errorf("failed decoding response with error=%w: %w", commonErrors.ErrRequestFailed, decodeErr)
		commonErrors.HandleError(err, span)
		logger.Error().Err(err).Msg(err.Error())
		return zero, err
	}
	logger.Trace().Msg("decoded response")

	return env.Data, nil
}
