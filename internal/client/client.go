package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"chunk_visualizer/internal/chunker"
	"chunk_visualizer/internal/logger"
	"chunk_visualizer/internal/strategy"

	"github.com/go-resty/resty/v2"
)

const (
	strategiesPath = "/strategies/"
	uploadPath     = "/upload/"
	chunkPath      = "/chunk/"

	maxErrorBody = 300
)

// ErrNetworkFailure marks every failure to get a usable answer from the
// chunking service: transport errors, non-2xx statuses, undecodable bodies.
var ErrNetworkFailure = errors.New("chunking service request failed")

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s failed: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s failed: status %d: %s", e.Op, e.Code, e.Detail)
}

func (e *StatusError) Unwrap() error { return ErrNetworkFailure }

// Catalog is the strategy list and defaults advertised by the service.
type Catalog struct {
	Strategies          []string
	DefaultChunkSize    int
	DefaultChunkOverlap int
}

type Options struct {
	BaseURL string
	// Timeout bounds each request; zero leaves only the context deadline.
	Timeout time.Duration
	Logger  logger.Logger
}

// Client talks to the chunking service over HTTP.
type Client struct {
	http *resty.Client
	log  logger.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid chunker URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("chunker URL scheme must be http or https, got: %q", base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("chunker URL must have a host, got: %s", opts.BaseURL)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	return &Client{http: httpClient, log: log}, nil
}

func (c *Client) Catalog(ctx context.Context) (Catalog, error) {
	resp, err := c.http.R().SetContext(ctx).Get(strategiesPath)
	if err := c.check("fetch strategies", resp, err); err != nil {
		return Catalog{}, err
	}

	var wire struct {
		Strategies    []string `json:"strategies"`
		DefaultParams struct {
			ChunkSize    int `json:"chunk_size"`
			ChunkOverlap int `json:"chunk_overlap"`
		} `json:"default_params"`
	}
	if err := json.Unmarshal(resp.Body(), &wire); err != nil {
		return Catalog{}, fmt.Errorf("%w: failed to decode strategies: %w", ErrNetworkFailure, err)
	}
	if len(wire.Strategies) == 0 {
		return Catalog{}, fmt.Errorf("%w: service advertises no strategies", ErrNetworkFailure)
	}

	c.log.Debug("strategies fetched", "count", len(wire.Strategies))
	return Catalog{
		Strategies:          wire.Strategies,
		DefaultChunkSize:    wire.DefaultParams.ChunkSize,
		DefaultChunkOverlap: wire.DefaultParams.ChunkOverlap,
	}, nil
}

// Upload sends the file as multipart field "file" and returns the
// server-side filename.
func (c *Client) Upload(ctx context.Context, name string, content io.Reader) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", name, content).
		Post(uploadPath)
	if err := c.check("upload", resp, err); err != nil {
		return "", err
	}

	var wire struct {
		Filename string `json:"filename"`
	}
	if err := json.Unmarshal(resp.Body(), &wire); err != nil {
		return "", fmt.Errorf("%w: failed to decode upload response: %w", ErrNetworkFailure, err)
	}
	if wire.Filename == "" {
		return "", fmt.Errorf("%w: upload response has no filename", ErrNetworkFailure)
	}

	c.log.Debug("file uploaded", "local", name, "remote", wire.Filename)
	return wire.Filename, nil
}

func (c *Client) Chunk(ctx context.Context, req strategy.Request) (chunker.Result, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(req.Query()).
		Post(chunkPath)
	if err := c.check("chunking", resp, err); err != nil {
		return chunker.Result{}, err
	}

	var result chunker.Result
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return chunker.Result{}, fmt.Errorf("%w: failed to decode chunks: %w", ErrNetworkFailure, err)
	}

	c.log.Debug("chunks received", "strategy", req.Strategy, "chunks", len(result.Chunks))
	return result, nil
}

func (c *Client) check(op string, resp *resty.Response, err error) error {
	if err != nil {
		c.log.Error("request failed", "op", op, "err", err)
		return fmt.Errorf("%w: %s: %w", ErrNetworkFailure, op, err)
	}
	if !resp.IsSuccess() {
		serr := &StatusError{Op: op, Code: resp.StatusCode(), Detail: errorDetail(resp.Body())}
		c.log.Error("request rejected", "op", op, "status", serr.Code, "detail", serr.Detail)
		return serr
	}
	return nil
}

// errorDetail pulls FastAPI's {"detail": ...} or falls back to the raw body.
func errorDetail(body []byte) string {
	var wire struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &wire); err == nil && len(wire.Detail) > 0 {
		var s string
		if err := json.Unmarshal(wire.Detail, &s); err == nil {
			return s
		}
		return truncate(string(wire.Detail))
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
