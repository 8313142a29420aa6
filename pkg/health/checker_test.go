package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestDefaultCheckerConfig(t *testing.T) {
	assert.Equal(t, 2*time.Second, DefaultCheckerConfig().Timeout)
}

func TestRedisChecker(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectPing().SetVal("PONG")
	mock.ExpectPing().SetErr(errors.New("connection refused"))

	checker := RedisChecker(db)

	assert.NoError(t, checker())
	assert.EqualError(t, checker(), "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisChecker_NilClient(t *testing.T) {
	assert.EqualError(t, RedisChecker(nil)(), "redis client is nil")
}

func TestPingChecker(t *testing.T) {
	var deadlineSet bool
	healthy := pingerFunc(func(ctx context.Context) error {
		_, deadlineSet = ctx.Deadline()
		return nil
	})

	assert.NoError(t, PingChecker(healthy)())
	assert.True(t, deadlineSet)

	broken := pingerFunc(func(ctx context.Context) error { return errors.New("bucket missing") })
	assert.EqualError(t, PingChecker(broken)(), "bucket missing")

	assert.Error(t, PingChecker(nil)())
}

func TestHTTPEndpointChecker(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"ok", http.StatusOK, false},
		{"redirect", http.StatusFound, false},
		{"not found", http.StatusNotFound, true},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == http.StatusFound {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			err := HTTPEndpointChecker(server.URL)()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestHTTPEndpointChecker_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	err := HTTPEndpointCheckerWithConfig(server.URL, CheckerConfig{Timeout: 20 * time.Millisecond})()
	assert.Error(t, err)
}

func TestHTTPEndpointChecker_InvalidURL(t *testing.T) {
	assert.Error(t, HTTPEndpointChecker("://bad")())
}
