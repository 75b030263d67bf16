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

	obstracing "github.com/smallbiznis/mercado/internal/observability/tracing"
	"github.com/smallbiznis/mercado/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	maxErrorBody        = 64 << 10
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the marketplace backend that owns dues and stands.
// Calls are never retried.
type Client struct {
	baseURL *url.URL
	token   string
	http    *http.Client
	log     *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(cfg.Token),
		http:    obstracing.WrapHTTPClient(&http.Client{Timeout: timeout}),
		log:     log.Named("dues.backend"),
	}, nil
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Field   string `json:"field"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	_, cid := correlation.EnsureCorrelationID(ctx)
	req.Header.Set(headerCorrelationID, cid)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("backend call failed",
			zap.String("op", op),
			zap.String("correlation_id", cid),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return domainTransport(op, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend call",
		zap.String("op", op),
		zap.String("correlation_id", cid),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classify(op, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return domainTransport(op, fmt.Errorf("decode response: %w", err))
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return domainTransport(op, errors.New("response has no data"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return domainTransport(op, fmt.Errorf("decode data: %w", err))
	}
	return nil
}

func pageQuery(page, size int) url.Values {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("size", strconv.Itoa(size))
	return q
}
