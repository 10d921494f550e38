package line

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

func TestPush_SendsTextMessage(t *testing.T) {
	var got pushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, pushPath, r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{Token: "tok", BaseURL: srv.URL, Timeout: time.Second}, nil, observability.DiscardLogger())
	require.NoError(t, n.Push(t.Context(), "C123", "【行程提醒】2026/10/15（四）"))

	assert.Equal(t, "C123", got.To)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "text", got.Messages[0].Type)
	assert.Equal(t, "【行程提醒】2026/10/15（四）", got.Messages[0].Text)
}

func TestPush_TruncatesLongReports(t *testing.T) {
	var got pushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{Token: "tok", BaseURL: srv.URL, Timeout: time.Second}, nil, observability.DiscardLogger())
	require.NoError(t, n.Push(t.Context(), "C123", strings.Repeat("雨", 6000)))

	require.Len(t, got.Messages, 1)
	assert.Equal(t, MaxTextLength, utf8.RuneCountInString(got.Messages[0].Text))
	assert.True(t, strings.HasSuffix(got.Messages[0].Text, "…"))
}

func TestPush_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Authentication failed"}`))
	}))
	defer srv.Close()

	n := NewNotifier(Config{Token: "bad", BaseURL: srv.URL, Timeout: time.Second}, nil, observability.DiscardLogger())
	err := n.Push(t.Context(), "C123", "hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestPush_EmptyRecipient(t *testing.T) {
	n := NewNotifier(Config{Token: "tok"}, nil, observability.DiscardLogger())
	require.Error(t, n.Push(t.Context(), "", "hi"))
}

func TestTruncate(t *testing.T) {
	s, cut := Truncate("短訊", 10)
	assert.Equal(t, "短訊", s)
	assert.False(t, cut)

	s, cut = Truncate("一二三四五", 3)
	assert.Equal(t, "一二…", s)
	assert.True(t, cut)
}
