// Package enrich implements C6, the enrichment gateway: it fans
// structured entities out to an LLM collaborator for generated prose,
// caching responses by content hash so re-running a batch on
// unchanged inputs never re-calls the model (spec.md §4.6, §9 "LLM as
// pure function").
package enrich

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
)

// Gateway is the collaborator contract every pipeline stage enriches
// through. Implementations must apply Redact to every input string
// before it reaches the model and must cache by (entityKind, entityID,
// contentHash).
type Gateway interface {
	// DescribeEntity produces the 1-2 sentence description and 3-4
	// sentence deployment-readiness meta_summary for a Feature, Option,
	// or Setting.
	DescribeEntity(ctx context.Context, entityKind, entityID, name, context string) (description, metaSummary string, err error)

	// DescribeAnnouncement produces the description/implications pair
	// for one FeatureAnnouncement (spec.md §4.6: release/deploy entries
	// skip the generic Summarize call and go straight here).
	DescribeAnnouncement(ctx context.Context, a canon.FeatureAnnouncement) (description, implications string, err error)

	// Summarize produces a summary for a non-release-note ContentItem
	// (blog, question, reddit, status).
	Summarize(ctx context.Context, item canon.ContentItem) (summary string, err error)
}

// ImplementationStatus is a template-generated (no LLM) status label
// derived purely from lifecycle state, per spec.md §4.6.
func ImplementationStatus(status canon.OptionStatus) string {
	switch status {
	case canon.StatusPending:
		return "Not yet available; announced only."
	case canon.StatusPreview:
		return "Available in beta; not yet ready for production use."
	case canon.StatusOptional, canon.StatusDefaultOptional:
		return "Available now as an admin-configurable option."
	case canon.StatusReleased:
		return "Fully released and enabled for all accounts."
	case canon.StatusDeprecated:
		return "Deprecated; scheduled for removal."
	default:
		return ""
	}
}

// contentHash covers every input fed to the model for one enrichment
// call; an identical hash on a later run returns the cached output
// instead of calling the model again.
func contentHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type cacheKey struct {
	entityKind string
	entityID   string
	hash       string
}

// AnthropicGateway is the production Gateway, backed by
// anthropic-sdk-go with a cenkalti/backoff/v4 retry policy (base 1s,
// factor 2, jitter +-20%, cap 60s, 5 attempts total — spec.md §4.6).
type AnthropicGateway struct {
	client anthropic.Client
	model  anthropic.Model

	mu    sync.Mutex
	cache map[cacheKey]cachedResult
}

type cachedResult struct {
	a string
	b string
}

// NewAnthropicGateway builds a Gateway using apiKey (typically
// config.AnthropicAPIKey()). Callers should check for an empty apiKey
// themselves and fall back to degraded (no-prose) operation per
// spec.md §6's "Environment" clause — this constructor does not do
// that check since a stub/no-op path belongs at the call site.
func NewAnthropicGateway(apiKey string, model anthropic.Model) *AnthropicGateway {
	return &AnthropicGateway{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		cache:  map[cacheKey]cachedResult{},
	}
}

func (g *AnthropicGateway) DescribeEntity(ctx context.Context, entityKind, entityID, name, context_ string) (string, string, error) {
	hash := contentHash(entityKind, name, context_)
	key := cacheKey{entityKind, entityID, hash}
	if cached, ok := g.lookup(key); ok {
		return cached.a, cached.b, nil
	}

	prompt := fmt.Sprintf(
		"Canvas LMS %s %q. Context: %s\n\nWrite two things, each on its own line prefixed exactly as shown:\nDESCRIPTION: a 1-2 sentence description of what this does.\nSUMMARY: a 3-4 sentence summary covering deployment readiness for an instructional designer.",
		entityKind, Redact(name), Redact(context_))

	text, err := g.call(ctx, prompt)
	if err != nil {
		return "", "", canon.WrapEnrichment("describe_entity", err)
	}
	desc, summary := splitTwoFields(text, "DESCRIPTION:", "SUMMARY:")
	g.store(key, cachedResult{desc, summary})
	return desc, summary, nil
}

func (g *AnthropicGateway) DescribeAnnouncement(ctx context.Context, a canon.FeatureAnnouncement) (string, string, error) {
	hash := contentHash(a.H4Title, a.RawContent)
	key := cacheKey{"announcement", a.ID, hash}
	if cached, ok := g.lookup(key); ok {
		return cached.a, cached.b, nil
	}

	prompt := fmt.Sprintf(
		"A Canvas LMS release/deploy note entry titled %q. Raw content: %s\n\nWrite two things, each on its own line:\nDESCRIPTION: a 2-3 sentence description.\nIMPLICATIONS: 2-3 sentences on implications for educational technologists.",
		Redact(a.H4Title), Redact(stripTags(a.RawContent)))

	text, err := g.call(ctx, prompt)
	if err != nil {
		return "", "", canon.WrapEnrichment("describe_announcement", err)
	}
	desc, impl := splitTwoFields(text, "DESCRIPTION:", "IMPLICATIONS:")
	g.store(key, cachedResult{desc, impl})
	return desc, impl, nil
}

func (g *AnthropicGateway) Summarize(ctx context.Context, item canon.ContentItem) (string, error) {
	hash := contentHash(item.Title, item.Summary)
	key := cacheKey{"content_item", item.SourceID, hash}
	if cached, ok := g.lookup(key); ok {
		return cached.a, nil
	}

	prompt := fmt.Sprintf("Summarize this Canvas LMS community post in 2-3 sentences.\nTitle: %s\nBody: %s",
		Redact(item.Title), Redact(item.Summary))

	text, err := g.call(ctx, prompt)
	if err != nil {
		return "", canon.WrapEnrichment("summarize", err)
	}
	g.store(key, cachedResult{a: text})
	return text, nil
}

func (g *AnthropicGateway) lookup(key cacheKey) (cachedResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.cache[key]
	return v, ok
}

func (g *AnthropicGateway) store(key cacheKey, v cachedResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache[key] = v
}

// call issues one Anthropic Messages request with the retry policy
// from spec.md §4.6.
func (g *AnthropicGateway) call(ctx context.Context, prompt string) (string, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 1 * time.Second
	policy.Multiplier = 2
	policy.RandomizationFactor = 0.2
	policy.MaxInterval = 60 * time.Second
	retryable := backoff.WithMaxRetries(policy, 4) // 5 attempts total
	retryable = backoff.WithContext(retryable, ctx)

	var result string
	err := backoff.Retry(func() error {
		msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     g.model,
			MaxTokens: 512,
			Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		})
		if err != nil {
			return err
		}
		if len(msg.Content) == 0 {
			return backoff.Permanent(fmt.Errorf("anthropic: empty response"))
		}
		result = msg.Content[0].Text
		return nil
	}, retryable)
	return result, err
}

func splitTwoFields(text, labelA, labelB string) (a, b string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, labelA):
			a = strings.TrimSpace(strings.TrimPrefix(line, labelA))
		case strings.HasPrefix(line, labelB):
			b = strings.TrimSpace(strings.TrimPrefix(line, labelB))
		}
	}
	return a, b
}

func stripTags(html string) string {
	return Sanitize(html)
}
