package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-psa/internal/models"
)

func restConnector(t *testing.T, api models.APIConfig) Connector {
	t.Helper()
	conn, err := New(&models.ConnectionConfig{
		Name: "test",
		Kind: models.SourceREST,
		API:  &api,
	})
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

func TestRESTConnectorFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":1,"name":"Jane"},{"id":2,"name":"John"}]}`))
	}))
	defer server.Close()

	conn := restConnector(t, models.APIConfig{URL: server.URL, AuthType: models.AuthNone})

	result := conn.TestConnection(context.Background())
	if !result.Success {
		t.Fatalf("TestConnection failed: %s", result.Message)
	}
	if result.RecordCount != 2 {
		t.Errorf("recordCount = %d, want 2", result.RecordCount)
	}
	if len(result.Schema.Tables) != 1 || result.Schema.Tables[0].Name != "api" {
		t.Errorf("schema = %+v", result.Schema)
	}

	rows, err := conn.FetchAll(context.Background(), "api")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0]["name"] != "Jane" {
		t.Errorf("rows = %v", rows)
	}
}

func TestRESTConnectorAuthStrategies(t *testing.T) {
	tests := []struct {
		name   string
		api    models.APIConfig
		verify func(t *testing.T, r *http.Request)
	}{
		{
			name: "bearer token",
			api:  models.APIConfig{AuthType: models.AuthBearer, Token: "tok123"},
			verify: func(t *testing.T, r *http.Request) {
				if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
					t.Errorf("Authorization = %q", got)
				}
			},
		},
		{
			name: "api key header",
			api:  models.APIConfig{AuthType: models.AuthAPIKeyHead, KeyName: "X-Api-Key", APIKey: "k1"},
			verify: func(t *testing.T, r *http.Request) {
				if got := r.Header.Get("X-Api-Key"); got != "k1" {
					t.Errorf("X-Api-Key = %q", got)
				}
			},
		},
		{
			name: "api key query param",
			api:  models.APIConfig{AuthType: models.AuthAPIKeyQuery, KeyName: "api_key", APIKey: "k2"},
			verify: func(t *testing.T, r *http.Request) {
				if got := r.URL.Query().Get("api_key"); got != "k2" {
					t.Errorf("api_key param = %q", got)
				}
			},
		},
		{
			name: "basic auth",
			api:  models.APIConfig{AuthType: models.AuthBasic, Username: "u", Password: "p"},
			verify: func(t *testing.T, r *http.Request) {
				user, pass, ok := r.BasicAuth()
				if !ok || user != "u" || pass != "p" {
					t.Errorf("basic auth = %q/%q ok=%v", user, pass, ok)
				}
			},
		},
		{
			name: "extra headers",
			api:  models.APIConfig{AuthType: models.AuthNone, Headers: map[string]string{"X-Tenant": "acme"}},
			verify: func(t *testing.T, r *http.Request) {
				if got := r.Header.Get("X-Tenant"); got != "acme" {
					t.Errorf("X-Tenant = %q", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tt.verify(t, r)
				w.Write([]byte(`[{"ok":true}]`))
			}))
			defer server.Close()

			tt.api.URL = server.URL
			conn := restConnector(t, tt.api)
			if _, err := conn.FetchAll(context.Background(), "api"); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestRESTConnectorErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	conn := restConnector(t, models.APIConfig{URL: server.URL, AuthType: models.AuthNone})

	result := conn.TestConnection(context.Background())
	if result.Success {
		t.Error("non-2xx must fail the test")
	}
}

func TestRESTConnectorUnreachable(t *testing.T) {
	conn := restConnector(t, models.APIConfig{URL: "http://127.0.0.1:1", AuthType: models.AuthNone})

	result := conn.TestConnection(context.Background())
	if result.Success {
		t.Error("unreachable host must fail, not panic")
	}
}

func TestRESTConnectorPreviewLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"n":1},{"n":2},{"n":3},{"n":4}]`))
	}))
	defer server.Close()

	conn := restConnector(t, models.APIConfig{URL: server.URL, AuthType: models.AuthNone})

	rows, err := conn.TablePreview(context.Background(), "api", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Errorf("preview rows = %d, want 2", len(rows))
	}
}
