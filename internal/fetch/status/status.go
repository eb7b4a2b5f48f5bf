// Package status implements internal/fetch.StatusSource against a
// Statuspage.io-style incidents JSON API. No status-page SDK appears
// anywhere in the retrieval pack, so this is a deliberately minimal
// net/http + encoding/json client (SPEC_FULL.md §9 standard-library
// justification).
package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/fetch"
)

// Client fetches the unresolved + recent-incidents feed from a
// Statuspage-compatible JSON endpoint.
type Client struct {
	http        *http.Client
	incidentsURL string
}

// New builds a Client against incidentsURL (e.g.
// "https://status.instructure.com/api/v2/incidents.json").
func New(incidentsURL string) *Client {
	return &Client{
		http:         &http.Client{Timeout: 15 * time.Second},
		incidentsURL: incidentsURL,
	}
}

type incidentsResponse struct {
	Incidents []struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Status    string `json:"status"`
		Impact    string `json:"impact"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
		IncidentUpdates []struct {
			Body      string    `json:"body"`
			Status    string    `json:"status"`
			CreatedAt time.Time `json:"created_at"`
		} `json:"incident_updates"`
	} `json:"incidents"`
}

// FetchIncidents lists all incidents the status page currently reports.
func (c *Client) FetchIncidents(ctx context.Context) ([]fetch.StatusIncident, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.incidentsURL, nil)
	if err != nil {
		return nil, canon.WrapFetch("status.new_request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, canon.WrapFetch("status.do", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, canon.WrapFetch("status.status", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var parsed incidentsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, canon.WrapFetch("status.decode", err)
	}

	incidents := make([]fetch.StatusIncident, 0, len(parsed.Incidents))
	for _, inc := range parsed.Incidents {
		updates := make([]fetch.StatusUpdate, 0, len(inc.IncidentUpdates))
		for _, u := range inc.IncidentUpdates {
			updates = append(updates, fetch.StatusUpdate{
				Body:      u.Body,
				Status:    u.Status,
				CreatedAt: u.CreatedAt,
			})
		}
		incidents = append(incidents, fetch.StatusIncident{
			ID:        inc.ID,
			Name:      inc.Name,
			Status:    inc.Status,
			Impact:    inc.Impact,
			CreatedAt: inc.CreatedAt,
			UpdatedAt: inc.UpdatedAt,
			Updates:   updates,
		})
	}
	return incidents, nil
}
