package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"contactrelay/pkg/trace"
)

func sampleFields() Fields {
	return Fields{
		"from_name":  "Ada",
		"from_email": "ada@example.com",
		"subject":    "Hello",
		"message":    "Hello there, friend",
		"to_name":    "Portfolio Owner",
	}
}

func TestSendPostsTemplateParams(t *testing.T) {
	var got sendRequest
	var gotTrace string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sendPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotTrace = r.Header.Get(trace.HeaderName)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte("OK"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", zap.NewNop(), WithPrivateKey("secret"))
	c.Init("pk_123")

	ctx := trace.WithContext(context.Background(), "trace-42")
	resp, err := c.Send(ctx, "svc", "tpl", sampleFields())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "OK", resp.Text)
	assert.Equal(t, "svc", got.ServiceID)
	assert.Equal(t, "tpl", got.TemplateID)
	assert.Equal(t, "pk_123", got.UserID)
	assert.Equal(t, "secret", got.AccessToken)
	assert.Equal(t, sampleFields(), got.TemplateParams)
	assert.Equal(t, "trace-42", gotTrace)
}

func TestSendBeforeInit(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", zap.NewNop())

	_, err := c.Send(context.Background(), "svc", "tpl", sampleFields())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestSendRejectionCarriesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("  The template ID is invalid \n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	c.Init("pk")

	_, err := c.Send(context.Background(), "svc", "tpl", sampleFields())

	var rejection *Error
	require.True(t, errors.As(err, &rejection))
	assert.Equal(t, http.StatusBadRequest, rejection.Status)
	assert.Equal(t, "The template ID is invalid", rejection.Text)
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	c.Init("pk")

	for i := 0; i < 5; i++ {
		_, err := c.Send(context.Background(), "svc", "tpl", sampleFields())
		var rejection *Error
		require.True(t, errors.As(err, &rejection))
	}
	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zap.NewNop())
	c.Init("pk")

	for i := 0; i < 3; i++ {
		_, err := c.Send(context.Background(), "svc", "tpl", sampleFields())
		require.Error(t, err)
	}

	_, err := c.Send(context.Background(), "svc", "tpl", sampleFields())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestSendHonoursContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, zap.NewNop())
	c.Init("pk")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Send(ctx, "svc", "tpl", sampleFields())
	assert.ErrorIs(t, err, context.Canceled)
}
