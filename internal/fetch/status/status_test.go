package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureIncidents = `{
  "incidents": [
    {
      "id": "inc1",
      "name": "Gradebook degraded performance",
      "status": "investigating",
      "impact": "minor",
      "created_at": "2026-07-01T12:00:00Z",
      "updated_at": "2026-07-01T13:00:00Z",
      "incident_updates": [
        {"body": "We are investigating.", "status": "investigating", "created_at": "2026-07-01T12:00:00Z"}
      ]
    }
  ]
}`

func TestFetchIncidents_ParsesIncidentsAndUpdates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixtureIncidents))
	}))
	defer srv.Close()

	c := New(srv.URL)
	incidents, err := c.FetchIncidents(context.Background())
	require.NoError(t, err)
	require.Len(t, incidents, 1)
	assert.Equal(t, "inc1", incidents[0].ID)
	assert.Equal(t, "minor", incidents[0].Impact)
	require.Len(t, incidents[0].Updates, 1)
	assert.Equal(t, "investigating", incidents[0].Updates[0].Status)
}

func TestFetchIncidents_NonOKStatusIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.FetchIncidents(context.Background())
	assert.Error(t, err)
}
