package enrich

import (
	"context"
	"fmt"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
)

// StubGateway is a deterministic, call-free Gateway for tests and for
// operation without an Anthropic API key: every method derives its
// output from its input alone, so assertions can compare against a
// fixed string instead of mocking a network call (spec.md §9, "LLM as
// pure function... tests substitute a deterministic stub").
type StubGateway struct {
	Calls int
}

func (g *StubGateway) DescribeEntity(ctx context.Context, entityKind, entityID, name, context string) (string, string, error) {
	g.Calls++
	return fmt.Sprintf("%s: %s", entityKind, name), fmt.Sprintf("Summary of %s.", name), nil
}

func (g *StubGateway) DescribeAnnouncement(ctx context.Context, a canon.FeatureAnnouncement) (string, string, error) {
	g.Calls++
	return fmt.Sprintf("Announcement: %s", a.H4Title), fmt.Sprintf("Implications of %s.", a.H4Title), nil
}

func (g *StubGateway) Summarize(ctx context.Context, item canon.ContentItem) (string, error) {
	g.Calls++
	return fmt.Sprintf("Summary: %s", item.Title), nil
}
