package entsoe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"entsoe-agent/internal/model"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://web-api.tp.entsoe.eu/api"
	DefaultTimeout = 30 * time.Second

	tokenParam       = "securityToken"
	tokenPlaceholder = "YOUR_TOKEN_HERE"
	badRequestLimit  = 200
)

// TokenEnvVars are the accepted environment variable names for the security
// token, in priority order.
var TokenEnvVars = []string{"ENTSOE_API_TOKEN", "ENTSOE_TOKEN", "ENTSOE_API_KEY"}

// Client issues single GET requests against the transparency platform and
// hands successful bodies to the parser.
type Client struct {
	Token   string
	BaseURL string
	Client  *http.Client

	parser *Parser
	logger *zap.Logger
}

// NewClient creates a new platform client.
// If baseURL is empty, defaults to DefaultBaseURL; a zero timeout means 30s.
func NewClient(token, baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		Token:   token,
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		parser:  NewParser(logger),
		logger:  logger,
	}
}

func (c *Client) HasToken() bool {
	return strings.TrimSpace(c.Token) != ""
}

// BuildParams assembles the query parameters for a product request.
// from and to are only consulted for RoleFrom/RoleTo domains; area fills RoleArea.
func BuildParams(p Product, area, from, to Area, w Window) url.Values {
	q := url.Values{}
	q.Set("documentType", p.DocumentType)
	if p.ProcessType != "" {
		q.Set("processType", p.ProcessType)
	}
	for _, d := range p.Domains {
		switch d.Role {
		case RoleArea:
			q.Set(d.Name, area.Code)
		case RoleFrom:
			q.Set(d.Name, from.Code)
		case RoleTo:
			q.Set(d.Name, to.Code)
		}
	}
	q.Set("periodStart", w.PeriodStart())
	q.Set("periodEnd", w.PeriodEnd())
	return q
}

// ExampleURL renders params against baseURL with a placeholder token.
func ExampleURL(baseURL string, params url.Values) string {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, k+"="+params.Get(k))
	}
	parts = append(parts, tokenParam+"="+tokenPlaceholder)
	return baseURL + "?" + strings.Join(parts, "&")
}

// Fetch performs one GET and returns the parsed document. Status codes
// 400/401/404/429 are mapped to their error kinds before any parsing;
// an acknowledgement document is reported as no_data_found.
func (c *Client) Fetch(ctx context.Context, params url.Values) (*ParseResult, error) {
	if !c.HasToken() {
		return nil, &Error{
			Kind:    KindMissingCredential,
			Message: fmt.Sprintf("ENTSO-E API token not found. Please set %s environment variable.", TokenEnvVars[0]),
		}
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, &Error{Kind: KindTransportFailure, Message: fmt.Sprintf("invalid base URL: %v", err), Err: err}
	}
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	q.Set(tokenParam, c.Token)
	u.RawQuery = q.Encode()

	fields := []zap.Field{
		zap.String("document_type", params.Get("documentType")),
		zap.String("process_type", params.Get("processType")),
		zap.String("period_start", params.Get("periodStart")),
		zap.String("period_end", params.Get("periodEnd")),
	}
	c.logger.Info("entsoe request", fields...)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: KindTransportFailure, Message: "failed to create request: " + c.redact(err.Error()), Err: err}
	}
	req.Header.Set("Accept", "application/xml")

	started := time.Now()
	resp, err := c.Client.Do(req)
	duration := time.Since(started)
	if err != nil {
		msg := c.redact(err.Error())
		c.logger.Error("entsoe request failed", append(fields, zap.String("error", msg), zap.Duration("duration", duration))...)
		return nil, &Error{Kind: KindTransportFailure, Message: "API request failed: " + msg, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		msg := c.redact(err.Error())
		return nil, &Error{Kind: KindTransportFailure, StatusCode: resp.StatusCode, Message: "failed to read response: " + msg, Err: err}
	}

	c.logger.Info("entsoe response", append(fields,
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
		zap.Int("bytes", len(body)))...)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		e := &Error{Kind: KindBadParameters, StatusCode: resp.StatusCode, Message: badRequestMessage(body)}
		c.logger.Warn("entsoe bad request", append(fields, zap.String("reason", e.Message))...)
		return nil, e
	case resp.StatusCode == http.StatusUnauthorized:
		c.logger.Warn("entsoe unauthorized", fields...)
		return nil, &Error{Kind: KindUnauthorized, StatusCode: resp.StatusCode, Message: "Unauthorized - Invalid API token"}
	case resp.StatusCode == http.StatusNotFound:
		return nil, &Error{Kind: KindNoDataFound, StatusCode: resp.StatusCode, Message: "No data found for the requested parameters"}
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := resp.Header.Get("Retry-After")
		c.logger.Warn("entsoe rate limited", append(fields, zap.String("retry_after", retryAfter))...)
		return nil, &Error{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			Message:    "Rate limit exceeded - Too many requests",
			RetryAfter: retryAfter,
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		c.logger.Error("entsoe api error", append(fields, zap.Int("status", resp.StatusCode))...)
		return nil, &Error{
			Kind:       KindTransportFailure,
			StatusCode: resp.StatusCode,
			Message:    "API request failed: " + resp.Status,
		}
	}

	result, err := c.parser.Parse(body)
	if err != nil {
		var e *Error
		if errors.As(err, &e) {
			fields = append(fields, zap.String("snippet", e.Snippet))
		}
		c.logger.Error("entsoe document malformed", append(fields, zap.Error(err))...)
		return nil, err
	}
	if result.Status != model.StatusSuccess {
		return nil, &Error{
			Kind:       KindNoDataFound,
			StatusCode: resp.StatusCode,
			Code:       result.ReasonCode,
			Message:    result.Error,
		}
	}
	return result, nil
}

// badRequestMessage prefers the text element of an XML error body.
func badRequestMessage(body []byte) string {
	if len(strings.TrimSpace(string(body))) == 0 {
		return "Bad Request - Invalid parameters"
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil || doc.Root() == nil {
		return "Bad Request: " + truncate(string(body), badRequestLimit)
	}
	if el := firstDescendant(doc.Root(), "text"); el != nil {
		return "Bad Request: " + strings.TrimSpace(el.Text())
	}
	return "Bad Request: Unknown error"
}

func (c *Client) redact(s string) string {
	if c.Token == "" {
		return s
	}
	s = strings.ReplaceAll(s, url.QueryEscape(c.Token), "***")
	return strings.ReplaceAll(s, c.Token, "***")
}
