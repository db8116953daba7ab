package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b64(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestBuildQuery(t *testing.T) {
	assert.Equal(t, "N高 newer_than:1d", BuildQuery("N高", 1))
	assert.Equal(t, "N高 newer_than:7d", BuildQuery("N高", 7))
	assert.Equal(t, "N高 newer_than:1d", BuildQuery("N高", 0), "non-positive lookback defaults to one day")
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "https://mail.google.com/mail/u/0/#inbox/abc123", DeepLink("abc123"))
}

func TestSearch(t *testing.T) {
	var gotQuery, gotMax, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch {
		case r.URL.Path == "/users/me/threads":
			gotQuery = r.URL.Query().Get("q")
			gotMax = r.URL.Query().Get("maxResults")
			fmt.Fprint(w, `{"threads":[{"id":"t1"}]}`)
		case r.URL.Path == "/users/me/threads/t1":
			assert.Equal(t, "full", r.URL.Query().Get("format"))
			fmt.Fprintf(w, `{
				"id": "t1",
				"messages": [{
					"id": "m1",
					"internalDate": "1767225600000",
					"payload": {
						"mimeType": "multipart/alternative",
						"headers": [{"name": "Subject", "value": "進路面談のお知らせ"}],
						"parts": [
							{"mimeType": "text/html", "body": {"data": "%s"}},
							{"mimeType": "text/plain", "body": {"data": "%s"}}
						]
					}
				}]
			}`, b64("<p>html</p>"), b64("提出締切は2026/4/10です"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient("tok", WithBaseURL(srv.URL), WithRateLimit(1000))
	threads, err := c.Search(context.Background(), "N高 newer_than:1d", 200)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "N高 newer_than:1d", gotQuery)
	assert.Equal(t, "200", gotMax)

	require.Len(t, threads, 1)
	require.Len(t, threads[0].Messages, 1)
	msg := threads[0].Messages[0]
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "進路面談のお知らせ", msg.Subject)
	assert.Equal(t, "提出締切は2026/4/10です", msg.Body, "text/plain part wins over text/html")
	assert.Equal(t, DeepLink("m1"), msg.Link)
	assert.Equal(t, time.UnixMilli(1767225600000), msg.Date)
}

func TestSearch_SinglePartBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/users/me/threads" {
			fmt.Fprint(w, `{"threads":[{"id":"t1"}]}`)
			return
		}
		fmt.Fprintf(w, `{
			"id": "t1",
			"messages": [{
				"id": "m1",
				"internalDate": "0",
				"payload": {
					"mimeType": "text/html",
					"headers": [{"name": "subject", "value": "case-insensitive"}],
					"body": {"data": "%s"}
				}
			}]
		}`, b64("plain fallback"))
	}))
	defer srv.Close()

	c := NewClient("tok", WithBaseURL(srv.URL), WithRateLimit(1000))
	threads, err := c.Search(context.Background(), "q", 0)
	require.NoError(t, err)

	require.Len(t, threads, 1)
	msg := threads[0].Messages[0]
	assert.Equal(t, "case-insensitive", msg.Subject)
	assert.Equal(t, "plain fallback", msg.Body)
}

func TestSearch_NoThreads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer srv.Close()

	c := NewClient("tok", WithBaseURL(srv.URL), WithRateLimit(1000))
	threads, err := c.Search(context.Background(), "q", 10)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

func TestSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("tok", WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.Search(context.Background(), "q", 10)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 401"))
}
