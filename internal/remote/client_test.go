package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSendsBearerToken(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"data":{"budgets":[]}}`))
	})

	client := NewClient(srv.URL+"/v1/", "secret-token", time.Second, zerolog.Nop())
	body, err := client.Fetch(context.Background(), TransactionsEndpoint("b1", 7))
	require.NoError(t, err)

	assert.Equal(t, `{"data":{"budgets":[]}}`, string(body))
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "/v1/budgets/b1/transactions", gotPath)
	assert.Equal(t, "last_knowledge_of_server=7", gotQuery)
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "api error body",
			status:     http.StatusUnauthorized,
			body:       `{"error":{"id":"401","name":"unauthorized","detail":"Unauthorized"}}`,
			wantStatus: http.StatusUnauthorized,
			wantMsg:    "unauthorized",
		},
		{
			name:       "plain error body",
			status:     http.StatusBadGateway,
			body:       `<html>bad gateway</html>`,
			wantStatus: http.StatusBadGateway,
			wantMsg:    "unexpected status",
		},
		{
			name:       "not json",
			status:     http.StatusOK,
			body:       `<html>maintenance</html>`,
			wantStatus: http.StatusOK,
			wantMsg:    "not JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			client := NewClient(srv.URL, "token", time.Second, zerolog.Nop())
			_, err := client.Fetch(context.Background(), BudgetsEndpoint)
			require.Error(t, err)

			var transportErr *TransportError
			require.True(t, errors.As(err, &transportErr))
			assert.Equal(t, BudgetsEndpoint, transportErr.Endpoint)
			assert.Equal(t, tt.wantStatus, transportErr.StatusCode)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(url, "token", time.Second, zerolog.Nop())
	_, err := client.Fetch(context.Background(), BudgetsEndpoint)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.StatusCode)
}

func TestFetchHonoursContext(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(srv.URL, "token", 0, zerolog.Nop())
	_, err := client.Fetch(ctx, BudgetsEndpoint)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEndpoints(t *testing.T) {
	assert.Equal(t, "/budgets", BudgetsEndpoint)
	assert.Equal(t, "/budgets/b1/accounts", AccountsEndpoint("b1"))
	assert.Equal(t, "/budgets/last-used/categories", CategoriesEndpoint("last-used"))
	assert.Equal(t, "/budgets/b1/transactions", TransactionsEndpoint("b1", 0))
	assert.Equal(t, "/budgets/b1/transactions?last_knowledge_of_server=42", TransactionsEndpoint("b1", 42))
	assert.Equal(t, "/budgets/a%2Fb/accounts", AccountsEndpoint("a/b"))
}
