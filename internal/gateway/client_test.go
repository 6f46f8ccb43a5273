package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradefinlabs/docpipeline/constants"
)

func TestFetchOperations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tools/list", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"tools": []map[string]any{
				{
					"name":         "submit_invoice",
					"description":  "Submit a commercial invoice",
					"input_schema": map[string]any{"type": "object"},
				},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"}, nil)
	ops, err := c.FetchOperations(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, "submit_invoice", ops[0].Name)

	schema, err := c.SchemaFor(context.Background(), "submit_invoice")
	require.NoError(t, err)
	require.Equal(t, "object", schema["type"])

	_, err = c.SchemaFor(context.Background(), "unknown_op")
	require.ErrorContains(t, err, "not advertised")
}

func TestSubmitOutcomes(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		outcome constants.SubmissionOutcome
	}{
		{"created is success", http.StatusCreated, constants.SubmissionSuccess},
		{"unfollowed redirect is client error", http.StatusTemporaryRedirect, constants.SubmissionClientError},
		{"bad request is client error", http.StatusBadRequest, constants.SubmissionClientError},
		{"unprocessable is client error", http.StatusUnprocessableEntity, constants.SubmissionClientError},
		{"internal is server error", http.StatusInternalServerError, constants.SubmissionServerError},
		{"bad gateway is server error", http.StatusBadGateway, constants.SubmissionServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/tools/submit_invoice", r.URL.Path)
				require.Equal(t, "application/json", r.Header.Get("Content-Type"))
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"ok": false}`))
			}))
			defer srv.Close()

			c := NewClient(Config{BaseURL: srv.URL}, nil)
			res, err := c.Submit(context.Background(), "submit_invoice", map[string]any{"a": 1})
			require.NoError(t, err)
			require.Equal(t, tc.outcome, res.Outcome)
			require.Equal(t, tc.status, res.StatusCode)
		})
	}
}

func TestSubmitConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	res, err := c.Submit(context.Background(), "submit_invoice", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, constants.SubmissionConnError, res.Outcome)
	require.NotEmpty(t, res.Err)
}

func TestSubmitTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 20 * time.Millisecond}, nil)
	res, err := c.Submit(context.Background(), "submit_invoice", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, constants.SubmissionTimeout, res.Outcome)
}
