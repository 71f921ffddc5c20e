package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rent-billing/internal/config"
	"rent-billing/internal/notifications"
	notificationsrepo "rent-billing/internal/notifications/infrastructure/postgres"
)

func TestRootRegistersSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "migrate", "run", "generate", "token"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestBuildSink(t *testing.T) {
	inbox := notificationsrepo.NewStore(nil)

	t.Run("in-app only without webhook", func(t *testing.T) {
		sink, err := buildSink(config.NotifyConfig{}, inbox)
		require.NoError(t, err)
		multi, ok := sink.(*notifications.MultiSink)
		require.True(t, ok)
		assert.Equal(t, 1, multi.Len())
	})

	t.Run("adds webhook", func(t *testing.T) {
		sink, err := buildSink(config.NotifyConfig{WebhookURL: "http://hooks.local/billing"}, inbox)
		require.NoError(t, err)
		assert.Equal(t, 2, sink.(*notifications.MultiSink).Len())
	})

	t.Run("bad template", func(t *testing.T) {
		_, err := buildSink(config.NotifyConfig{WebhookURL: "http://hooks.local/billing", Template: "{{.Title"}, inbox)
		assert.Error(t, err)
	})
}

func TestLoggingMiddlewareKeepsStatus(t *testing.T) {
	handler := loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), zap.NewNop())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
