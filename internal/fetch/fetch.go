// Package fetch defines the source ports every C8 orchestrator run
// pulls from, and the concrete net/http and browser-driven adapters
// that implement them (spec.md §6 External Interfaces).
package fetch

import (
	"context"
	"time"
)

// PageSource fetches one rendered Canvas page (release notes, deploy
// notes, a community blog/Q&A index, or an individual post) by URL.
// Concrete implementations are internal/fetch/browser (go-rod,
// production) and internal/fetch/fixture (static HTML, tests).
type PageSource interface {
	FetchPage(ctx context.Context, url string) (html string, err error)
}

// RedditPost is one submission pulled from a configured subreddit.
type RedditPost struct {
	ID          string
	Title       string
	SelfText    string
	URL         string
	Score       int
	NumComments int
	Author      string
	CreatedUTC  time.Time
}

// RedditSource lists recent submissions from a subreddit.
type RedditSource interface {
	FetchSubreddit(ctx context.Context, subreddit string) ([]RedditPost, error)
}

// StatusUpdate is one entry in an incident's timeline.
type StatusUpdate struct {
	Body      string
	Status    string
	CreatedAt time.Time
}

// StatusIncident is one Canvas status-page incident.
type StatusIncident struct {
	ID        string
	Name      string
	Status    string
	Impact    string
	CreatedAt time.Time
	UpdatedAt time.Time
	Updates   []StatusUpdate
}

// StatusSource lists current and recent incidents from the status API.
type StatusSource interface {
	FetchIncidents(ctx context.Context) ([]StatusIncident, error)
}
