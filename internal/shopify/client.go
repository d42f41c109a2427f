// Package shopify is the Storefront GraphQL gateway: one POST per operation,
// with typed wrappers for every query and mutation the storefront uses.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"storefront/internal/model"
	"storefront/internal/transport"
)

// =============================================================================
// STOREFRONT GRAPHQL GATEWAY
// =============================================================================
//
// Every request is a POST of {query, variables} to
//
//   https://{store}/api/{version}/graphql.json
//
// with the public storefront access token and the visitor's locale as
// Accept-Language. Failures surface as model.APIError:
//
//   - transport failure or non-2xx status -> upstream / auth / rate-limit error
//   - non-null "errors" array            -> GraphQL error with the first message
//
// Mutation userErrors are NOT handled here. Typed operations in storefront.go
// inspect them because only the caller knows which payload field holds them.
// =============================================================================

const (
	// DefaultAPIVersion is used when Config.APIVersion is empty.
	DefaultAPIVersion = "2024-01"

	headerAccessToken = "X-Shopify-Storefront-Access-Token"
	userAgent         = "Storefront-BFF/1.0"
)

// Gateway executes a single GraphQL operation and decodes "data" into out.
// Implemented by Client and Mock.
type Gateway interface {
	Do(ctx context.Context, req *Request, out any) error
}

// Request is one GraphQL operation.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
	Locale    string         `json:"-"` // Sent as Accept-Language when set
}

// Config holds gateway configuration.
type Config struct {
	StoreDomain string
	AccessToken string
	APIVersion  string
	HTTPClient  *http.Client // Optional; defaults to transport.NewHTTPClient
	Logger      *slog.Logger // Optional; defaults to slog.Default()

	// Endpoint overrides the derived GraphQL URL. Used by tests.
	Endpoint string
}

// Client is the production Gateway.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	logger      *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg Config) (*Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		domain := strings.TrimSuffix(strings.TrimPrefix(cfg.StoreDomain, "https://"), "/")
		if domain == "" {
			return nil, fmt.Errorf("store domain is required")
		}
		version := cfg.APIVersion
		if version == "" {
			version = DefaultAPIVersion
		}
		endpoint = fmt.Sprintf("https://%s/api/%s/graphql.json", domain, version)
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("storefront access token is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = transport.NewHTTPClient(transport.Options{})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		httpClient:  httpClient,
		endpoint:    endpoint,
		accessToken: cfg.AccessToken,
		logger:      logger,
	}, nil
}

// Endpoint returns the GraphQL URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// graphQLResponse is the top-level GraphQL envelope.
// Errors is nil when the key is absent and non-nil (possibly empty) when present.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Do executes req and decodes the "data" member into out (which may be nil).
func (c *Client) Do(ctx context.Context, req *Request, out any) error {
	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return fmt.Errorf("creating graphql request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.NewUpstreamError("Shopify", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	c.logger.Debug("graphql request",
		"operation", OperationName(req.Query),
		"locale", req.Locale,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, resp.Status)
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return model.NewUpstreamError("Shopify", fmt.Errorf("parsing response: %w", err))
	}

	if envelope.Errors != nil {
		msg := ""
		if len(envelope.Errors) > 0 {
			msg = envelope.Errors[0].Message
		}
		return model.NewGraphQLError(msg)
	}

	if out != nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding %s data: %w", OperationName(req.Query), err)
		}
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, req *Request) (*http.Request, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set(headerAccessToken, c.accessToken)
	if req.Locale != "" {
		httpReq.Header.Set("Accept-Language", req.Locale)
	}
	return httpReq, nil
}

// parseError converts a non-2xx status to model.APIError.
func parseError(statusCode int, status string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return model.NewUnauthorizedError("Shopify storefront token rejected")
	case http.StatusForbidden:
		return model.NewUnauthorizedError("Shopify access denied")
	case http.StatusNotFound:
		return model.NewNotFoundError("storefront endpoint")
	case http.StatusTooManyRequests:
		return model.NewRateLimitError("Shopify")
	default:
		return model.NewUpstreamError("Shopify", fmt.Errorf("Shopify API error: %s", status))
	}
}

var operationNameRe = regexp.MustCompile(`(?:query|mutation)\s+(\w+)`)

// OperationName extracts the operation name from a GraphQL document,
// or returns "anonymous".
func OperationName(query string) string {
	if m := operationNameRe.FindStringSubmatch(query); m != nil {
		return m[1]
	}
	return "anonymous"
}
