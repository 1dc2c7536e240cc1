package strategy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"orderbot/internal/auth"
	"orderbot/internal/rest"
)

// newTestClient wires a rest client against a stub exchange.
func newTestClient(t *testing.T, handler http.Handler) *rest.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return rest.NewClient(server.URL, auth.NewSigner("test-key", "test-secret"),
		rest.WithMaxRetries(1),
		rest.WithRateLimit(1000, 1000))
}
