package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/2HgO/aura-go/config"
	"github.com/2HgO/aura-go/errors"
	"github.com/2HgO/aura-go/models"
	"github.com/2HgO/aura-go/types/requests"
)

func TestUpstreamRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "0xabc", r.URL.Query().Get("address"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"ok": "yes"})
	}))
	defer server.Close()

	client := newUpstreamClient("test", server.URL, zap.NewNop(), withRetries(2, time.Millisecond), withHeader("Authorization", "Bearer k"))
	var out map[string]string
	require.NoError(t, client.do(context.Background(), http.MethodGet, "/thing", url.Values{"address": {"0xabc"}}, nil, &out))
	assert.Equal(t, "yes", out["ok"])
	assert.Equal(t, int32(3), calls.Load())
}

func TestUpstreamWithoutLogger(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newUpstreamClient("test", server.URL, nil, withRetries(1, time.Millisecond))
	err := client.do(context.Background(), http.MethodGet, "/thing", nil, nil, nil)
	require.Error(t, err)

	aura := NewAuraService(&config.Config{AuraAPIURL: server.URL}, nil)
	_, err = aura.GetBalances(context.Background(), "0xabc")
	require.Error(t, err)
}

func TestUpstreamDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad address", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newUpstreamClient("test", server.URL, zap.NewNop(), withRetries(2, time.Millisecond))
	err := client.do(context.Background(), http.MethodPost, "thing", nil, map[string]string{"a": "b"}, nil)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAuraServiceMapsFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/portfolio/balances":
			_ = json.NewEncoder(w).Encode(models.AuraPortfolio{Address: r.URL.Query().Get("address"), Cached: true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	aura := NewAuraService(&config.Config{AuraAPIURL: server.URL}, zap.NewNop())
	portfolio, err := aura.GetBalances(context.Background(), holder)
	require.NoError(t, err)
	assert.Equal(t, holder, portfolio.Address)
	assert.True(t, portfolio.Cached)

	_, err = aura.Trade(context.Background(), &models.AuraTradeRequest{Address: holder})
	assert.Equal(t, errors.ErrUpstreamUnavailable, errors.AsAppError(err).Type)
}

func TestChatWithoutKey(t *testing.T) {
	chat := NewChatService(&config.Config{}, NewPortfolioService(&mockAura{}, nil), nil, nil)
	_, err := chat.Chat(context.Background(), &requests.ChatRequest{Address: holder, Message: "hi"})
	appErr := errors.AsAppError(err)
	assert.Equal(t, http.StatusServiceUnavailable, appErr.Code)
	assert.NotEmpty(t, appErr.Remediation)
}
