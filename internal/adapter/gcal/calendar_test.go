package gcal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/itinerary-weather-notifier/internal/domain"
	"github.com/couchcryptid/itinerary-weather-notifier/internal/observability"
)

var taipei = time.FixedZone("CST", 8*60*60)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Source {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := New(t.Context(), Config{
		CalendarID: "team@example.com",
		Endpoint:   srv.URL + "/",
		HTTPClient: srv.Client(),
		Timeout:    time.Second,
	}, observability.DiscardLogger())
	require.NoError(t, err)
	return src
}

func TestListEvents_MapsItemsAcrossPages(t *testing.T) {
	from := time.Date(2026, 10, 15, 0, 0, 0, 0, taipei)
	to := from.AddDate(0, 0, 1)

	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendars/team@example.com/events", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2026-10-15T00:00:00+08:00", q.Get("timeMin"))
		assert.Equal(t, "2026-10-16T00:00:00+08:00", q.Get("timeMax"))
		assert.Equal(t, "true", q.Get("singleEvents"))
		assert.Equal(t, "startTime", q.Get("orderBy"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("pageToken") == "" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"summary": "開會", "location": "羅東", "start": map[string]string{"dateTime": "2026-10-15T09:30:00+08:00"}},
				},
				"nextPageToken": "p2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"summary": "休假", "start": map[string]string{"date": "2026-10-14"}, "end": map[string]string{"date": "2026-10-17"}},
				{"summary": "no start"},
			},
		})
	})

	events, err := src.ListEvents(t.Context(), from, to)
	require.NoError(t, err)

	assert.Equal(t, []domain.EventEntry{
		{Summary: "開會", Location: "羅東", Start: domain.EventStart{DateTime: "2026-10-15T09:30:00+08:00"}},
		{Summary: "休假", Start: domain.EventStart{Date: "2026-10-14"}, End: domain.EventStart{Date: "2026-10-17"}},
		{Summary: "no start"},
	}, events)
}

func TestListEvents_APIError(t *testing.T) {
	src := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Requests from this service account are blocked"}}`))
	})

	_, err := src.ListEvents(t.Context(), time.Now(), time.Now().Add(time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "team@example.com")
}

func TestNew_CredentialErrors(t *testing.T) {
	tests := []struct {
		name  string
		creds string
	}{
		{"empty", ""},
		{"missing file", filepath.Join(t.TempDir(), "nope.json")},
		{"not json", "{not json"},
		{"wrong key type", `{"type":"authorized_user"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(t.Context(), Config{Credentials: tt.creds}, observability.DiscardLogger())
			require.Error(t, err)
		})
	}
}

func TestReadCredentials_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))

	data, err := readCredentials(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_account"}`, string(data))
}
