package harvest

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mferov/klexport/internal/klaviyo"
)

// testClient starts a test server and returns a client pointed at it.
func testClient(t *testing.T, h http.Handler) (*klaviyo.Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	client := klaviyo.NewClient(klaviyo.Options{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Revision: "2024-10-15",
		Timeout:  5 * time.Second,
	})
	return client, srv
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// campaignJSON builds one campaign resource for test payloads.
func campaignJSON(id, name, sendTime, createdAt, messageID string) string {
	rel := `"relationships":{"campaign-messages":{"data":[]}}`
	if messageID != "" {
		rel = `"relationships":{"campaign-messages":{"data":[{"type":"campaign-message","id":"` + messageID + `"}]}}`
	}
	return `{"type":"campaign","id":"` + id + `","attributes":{"name":"` + name +
		`","status":"Sent","created_at":"` + createdAt + `","send_time":"` + sendTime + `"},` + rel + `}`
}

// messageJSON builds one inclusion entry for test payloads.
func messageJSON(id, subject string) string {
	return `{"type":"campaign-message","id":"` + id + `","attributes":{"content":{"subject":"` + subject +
		`","preview_text":"preview of ` + subject + `","from_email":"news@example.com","from_label":"Example"}}}`
}
