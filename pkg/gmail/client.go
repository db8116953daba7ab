// Package gmail is a minimal Gmail REST API client used as the pipeline's
// mail source. It searches threads with the standard Gmail query syntax and
// flattens them into plain messages with a stable deep link.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/nhigh-tools/deadline-cli/internal/model"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// Client searches mail and returns ordered threads of messages.
type Client interface {
	// Search returns up to max threads matching the Gmail query expression,
	// each with its messages in thread order.
	Search(ctx context.Context, query string, max int) ([]Thread, error)
}

// Thread is an ordered sequence of messages.
type Thread struct {
	ID       string
	Messages []model.Message
}

// BuildQuery composes the production search expression: a fixed term plus a
// trailing-days recency filter.
func BuildQuery(term string, lookbackDays int) string {
	if lookbackDays <= 0 {
		lookbackDays = 1
	}
	return fmt.Sprintf("%s newer_than:%dd", term, lookbackDays)
}

// DeepLink returns the stable web link for a message ID.
func DeepLink(id string) string {
	return "https://mail.google.com/mail/u/0/#inbox/" + id
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for API calls.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps))
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Gmail client authenticating with the given OAuth
// bearer token.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Wire types for the subset of the Gmail API the client reads.

type threadList struct {
	Threads []struct {
		ID string `json:"id"`
	} `json:"threads"`
}

type threadDetail struct {
	ID       string        `json:"id"`
	Messages []wireMessage `json:"messages"`
}

type wireMessage struct {
	ID           string      `json:"id"`
	InternalDate string      `json:"internalDate"` // ms since epoch
	Payload      wirePayload `json:"payload"`
}

type wirePayload struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []wirePayload `json:"parts"`
}

func (c *httpClient) Search(ctx context.Context, query string, max int) ([]Thread, error) {
	q := url.Values{}
	q.Set("q", query)
	if max > 0 {
		q.Set("maxResults", strconv.Itoa(max))
	}

	var list threadList
	if err := c.get(ctx, "/users/me/threads?"+q.Encode(), &list); err != nil {
		return nil, err
	}

	threads := make([]Thread, 0, len(list.Threads))
	for _, t := range list.Threads {
		var detail threadDetail
		if err := c.get(ctx, "/users/me/threads/"+t.ID+"?format=full", &detail); err != nil {
			return nil, err
		}
		th := Thread{ID: detail.ID}
		for _, wm := range detail.Messages {
			th.Messages = append(th.Messages, toMessage(wm))
		}
		threads = append(threads, th)
	}
	return threads, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "gmail: rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "gmail: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "gmail: send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "gmail: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("gmail: status %d: %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "gmail: unmarshal response")
	}
	return nil
}

func toMessage(wm wireMessage) model.Message {
	msg := model.Message{
		ID:      wm.ID,
		Subject: header(wm.Payload, "Subject"),
		Body:    plainBody(wm.Payload),
		Link:    DeepLink(wm.ID),
	}
	if ms, err := strconv.ParseInt(wm.InternalDate, 10, 64); err == nil {
		msg.Date = time.UnixMilli(ms)
	}
	return msg
}

func header(p wirePayload, name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// plainBody walks the MIME tree for the first text/plain part and decodes it.
func plainBody(p wirePayload) string {
	if strings.HasPrefix(p.MimeType, "text/plain") && p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	for _, part := range p.Parts {
		if b := plainBody(part); b != "" {
			return b
		}
	}
	// Single-part messages may carry the body without a text/plain MIME type.
	if p.Body.Data != "" {
		return decodeBody(p.Body.Data)
	}
	return ""
}

func decodeBody(data string) string {
	b, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		return ""
	}
	return string(b)
}
