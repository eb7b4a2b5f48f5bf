// Package orchestrator implements C8: one batch run that fans out to
// every configured fetcher, classifies and tracks what they return,
// enriches it, and assembles an ordered feed for the caller to
// serialize (spec.md §4.8).
package orchestrator

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/classifier"
	"github.com/titulartarantula/canvas-rss-sub001/internal/config"
	"github.com/titulartarantula/canvas-rss-sub001/internal/discussion"
	"github.com/titulartarantula/canvas-rss-sub001/internal/enrich"
	"github.com/titulartarantula/canvas-rss-sub001/internal/feedassembler"
	"github.com/titulartarantula/canvas-rss-sub001/internal/fetch"
	"github.com/titulartarantula/canvas-rss-sub001/internal/firstrun"
	"github.com/titulartarantula/canvas-rss-sub001/internal/htmlparser"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

// DefaultFetcherPoolSize is the bounded worker count from spec.md §5.
const DefaultFetcherPoolSize = 4

// FetchJob is one unit of work handed to the bounded worker pool: one
// release-note, deploy-note, blog, or question page to fetch and
// classify.
type FetchJob struct {
	URL         string
	ContentType canon.ContentType
	CategoryH3  string // deploy notes only; release notes carry their own H3 per section
}

type fetchResult struct {
	job  FetchJob
	html string
	err  error
}

// Orchestrator is C8.
type Orchestrator struct {
	store      store.Store
	pages      fetch.PageSource
	reddit     fetch.RedditSource
	status     fetch.StatusSource
	redditCfg  config.RedditConfig
	overrides  *config.OverrideSet
	classifier *classifier.Classifier
	tracker    *discussion.Tracker
	firstRun   *firstrun.Policy
	enricher   enrich.Gateway
	assembler  *feedassembler.Assembler
	poolSize   int
}

// New wires every pipeline stage together. Any of reddit/status/pages
// may be nil when its source is disabled (spec.md §6 "Environment" —
// missing credentials degrade gracefully rather than failing the run).
func New(s store.Store, pages fetch.PageSource, reddit fetch.RedditSource, status fetch.StatusSource, redditCfg config.RedditConfig, overrides *config.OverrideSet, firstRunCfg config.FirstRunConfig, enricher enrich.Gateway) *Orchestrator {
	return &Orchestrator{
		store:      s,
		pages:      pages,
		reddit:     reddit,
		status:     status,
		redditCfg:  redditCfg,
		overrides:  overrides,
		classifier: classifier.New(s, overrides),
		tracker:    discussion.New(s),
		firstRun:   firstrun.New(s, firstRunCfg),
		enricher:   enricher,
		assembler:  feedassembler.New(s),
		poolSize:   DefaultFetcherPoolSize,
	}
}

// Run executes one batch invocation per spec.md §4.8's six steps,
// returning the assembled feed items ready for the RSS serializer.
// Partial source failure does not fail the whole run; it is logged and
// that source's items are simply absent.
func (o *Orchestrator) Run(ctx context.Context, jobs []FetchJob) ([]feedassembler.Item, error) {
	results := o.fetchAll(ctx, jobs)

	var inputs []feedassembler.Input

	for _, res := range results {
		if res.err != nil {
			log.Printf("orchestrator: fetch failed for %s: %v", res.job.URL, res.err)
			continue
		}
		pageInputs, err := o.classifyPage(ctx, res)
		if err != nil {
			log.Printf("orchestrator: classify failed for %s: %v", res.job.URL, err)
			continue
		}
		inputs = append(inputs, pageInputs...)
	}

	redditInputs, err := o.runReddit(ctx)
	if err != nil {
		log.Printf("orchestrator: reddit source failed: %v", err)
	}
	inputs = append(inputs, redditInputs...)

	statusInputs, err := o.runStatus(ctx)
	if err != nil {
		log.Printf("orchestrator: status source failed: %v", err)
	}
	inputs = append(inputs, statusInputs...)

	items, err := o.assembler.Assemble(ctx, inputs)
	if err != nil {
		return nil, canon.WrapStore("orchestrator.assemble", err)
	}
	return items, nil
}

// Commit marks every assembled item emitted and records the completed
// run, per spec.md §4.8 step 6 ("on success, record FeedRun and
// commit"). Callers invoke this only after the serializer succeeds.
func (o *Orchestrator) Commit(ctx context.Context, items []feedassembler.Item, payload []byte, now time.Time) error {
	if err := o.assembler.MarkEmitted(ctx, items, now); err != nil {
		return err
	}
	run := canon.FeedRun{
		FeedDate:    now.Format("2006-01-02"),
		ItemCount:   len(items),
		Payload:     payload,
		GeneratedAt: now,
	}
	if err := o.store.RecordFeedRun(ctx, run); err != nil {
		return canon.WrapStore("orchestrator.record_feed_run", err)
	}
	return nil
}

// fetchAll runs jobs through a bounded worker pool (spec.md §5: default
// 4 concurrent fetchers, each owning its own HTTP/browser resource).
func (o *Orchestrator) fetchAll(ctx context.Context, jobs []FetchJob) []fetchResult {
	if o.pages == nil || len(jobs) == 0 {
		return nil
	}

	jobCh := make(chan FetchJob)
	resultCh := make(chan fetchResult, len(jobs))

	var wg sync.WaitGroup
	workers := o.poolSize
	if workers <= 0 {
		workers = DefaultFetcherPoolSize
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				html, err := o.pages.FetchPage(ctx, job.URL)
				if err != nil {
					err = canon.WrapFetch("orchestrator.fetch_page", err)
				}
				resultCh <- fetchResult{job: job, html: html, err: err}
			}
		}()
	}

	go func() {
		for _, j := range jobs {
			jobCh <- j
		}
		close(jobCh)
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make([]fetchResult, 0, len(jobs))
	for r := range resultCh {
		results = append(results, r)
	}
	return results
}

// classifyPage parses and classifies one fetched page inside one
// transaction, so a page's writes commit together or roll back as one
// unit (spec.md §4.8).
func (o *Orchestrator) classifyPage(ctx context.Context, res fetchResult) ([]feedassembler.Input, error) {
	contentID := res.job.URL
	now := time.Now()

	var inputs []feedassembler.Input
	err := o.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.UpsertContentItem(ctx, canon.ContentItem{
			SourceID:      contentID,
			URL:           res.job.URL,
			ContentType:   res.job.ContentType,
			FirstPosted:   now,
			LastCheckedAt: now,
			ScrapedDate:   now,
		}); err != nil {
			return err
		}

		scopedClassifier := classifier.New(tx, o.overrides)

		switch res.job.ContentType {
		case canon.ContentReleaseNote:
			page, err := htmlparser.ParseReleaseNotes(res.html, now)
			if err != nil {
				return canon.WrapParse("orchestrator.parse_release_notes", err)
			}
			results, err := scopedClassifier.ClassifyReleaseNotePage(ctx, contentID, page)
			if err != nil {
				return err
			}
			inputs = append(inputs, o.toInputs(ctx, results, res.job.ContentType, contentID)...)
		case canon.ContentDeployNote:
			page, err := htmlparser.ParseDeployNotes(res.html, now)
			if err != nil {
				return canon.WrapParse("orchestrator.parse_deploy_notes", err)
			}
			results, err := scopedClassifier.ClassifyDeployNotePage(ctx, contentID, page, res.job.CategoryH3)
			if err != nil {
				return err
			}
			inputs = append(inputs, o.toInputs(ctx, results, res.job.ContentType, contentID)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inputs, nil
}

// toInputs builds one feedassembler.Input per classified entry,
// calling the enrichment gateway for its description (spec.md §4.6:
// release/deploy entries go straight to DescribeAnnouncement). An
// enrichment failure is non-fatal per spec.md §7's EnrichmentError
// semantics — the affected description stays empty.
func (o *Orchestrator) toInputs(ctx context.Context, results []classifier.Result, ct canon.ContentType, contentID string) []feedassembler.Input {
	out := make([]feedassembler.Input, 0, len(results))
	for _, r := range results {
		description := ""
		if o.enricher != nil {
			desc, _, err := o.enricher.DescribeAnnouncement(ctx, canon.FeatureAnnouncement{
				H4Title: r.H4Title, RawContent: r.RawContent,
			})
			if err != nil {
				log.Printf("orchestrator: enrichment failed for anchor=%q: %v", r.AnchorID, err)
			} else {
				description = desc
			}
		}
		out = append(out, feedassembler.Input{
			GUID:        contentID + "#" + r.AnchorID,
			RawTitle:    r.H4Title + " - " + feedassembler.ContentTypeTag(ct, r.Announced.Format("2006-01-02")),
			Description: description,
			Category:    r.Category,
			Verdict:     r.Verdict,
			ContentType: ct,
			PubDate:     r.Announced,
		})
	}
	return out
}

// redditCappable adapts a fetched post to firstrun.Cappable, ranked by
// the moment it was posted (spec.md §4.5: "most recent" wins the cap).
type redditCappable struct {
	post fetch.RedditPost
}

func (r redditCappable) RankTime() int64 { return r.post.CreatedUTC.Unix() }

// runReddit fetches every configured subreddit, filters by keyword,
// tracks discussion state, applies the first-run cap, and redacts PII
// before anything reaches the store (spec.md §4.6).
func (o *Orchestrator) runReddit(ctx context.Context) ([]feedassembler.Input, error) {
	if o.reddit == nil {
		return nil, nil
	}

	var matched []fetch.RedditPost
	for _, subreddit := range o.redditCfg.Subreddits {
		posts, err := o.reddit.FetchSubreddit(ctx, subreddit)
		if err != nil {
			log.Printf("orchestrator: reddit fetch failed for r/%s: %v", subreddit, err)
			continue
		}
		for _, p := range posts {
			if matchesKeywords(p, o.redditCfg.Keywords) {
				matched = append(matched, p)
			}
		}
	}

	cappable := make([]firstrun.Cappable, len(matched))
	for i, p := range matched {
		cappable[i] = redditCappable{post: p}
	}
	emit, err := o.firstRun.Apply(ctx, canon.ContentReddit, cappable)
	if err != nil {
		return nil, err
	}

	var inputs []feedassembler.Input
	for _, c := range emit {
		p := c.(redditCappable).post
		sourceID := "reddit:" + p.ID

		if _, err := o.store.UpsertContentItem(ctx, canon.ContentItem{
			SourceID:      sourceID,
			URL:           p.URL,
			Title:         enrich.Redact(p.Title),
			ContentType:   canon.ContentReddit,
			Summary:       enrich.Redact(p.SelfText),
			CommentCount:  p.NumComments,
			FirstPosted:   p.CreatedUTC,
			LastCheckedAt: time.Now(),
			ScrapedDate:   time.Now(),
		}); err != nil {
			log.Printf("orchestrator: upsert reddit item %s failed: %v", sourceID, err)
			continue
		}

		update, err := o.tracker.Evaluate(ctx, discussion.Observation{
			SourceID:     sourceID,
			CommentCount: p.NumComments,
			LastCommentAt: p.CreatedUTC,
			PostedAt:     p.CreatedUTC,
		}, time.Now())
		if err != nil {
			log.Printf("orchestrator: discussion tracking failed for %s: %v", sourceID, err)
			continue
		}
		if update.Verdict == canon.VerdictSkip {
			continue
		}

		category := "reddit"
		if match, err := o.classifier.MatchCommunityMention(ctx, sourceID, p.Title, p.SelfText, canon.MentionDiscusses); err != nil {
			log.Printf("orchestrator: community mention matching failed for %s: %v", sourceID, err)
		} else if match != nil && match.Name != "" {
			category = match.Name
		}

		inputs = append(inputs, feedassembler.Input{
			GUID:        sourceID,
			RawTitle:    feedassembler.ContentTypeTag(canon.ContentReddit, enrich.Redact(p.Title)),
			Description: enrich.Redact(p.SelfText),
			Category:    category,
			PubDate:     p.CreatedUTC,
			Verdict:     update.Verdict,
			ContentType: canon.ContentReddit,
		})
	}
	return inputs, nil
}

func matchesKeywords(p fetch.RedditPost, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	haystack := strings.ToLower(p.Title + " " + p.SelfText)
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// runStatus fetches current Canvas status incidents and tracks them
// like any other discussion thread; status incidents are uncapped by
// first-run policy (spec.md §4.5 table).
func (o *Orchestrator) runStatus(ctx context.Context) ([]feedassembler.Input, error) {
	if o.status == nil {
		return nil, nil
	}

	incidents, err := o.status.FetchIncidents(ctx)
	if err != nil {
		return nil, canon.WrapFetch("orchestrator.fetch_incidents", err)
	}

	var inputs []feedassembler.Input
	for _, inc := range incidents {
		sourceID := "status:" + inc.ID

		if _, err := o.store.UpsertContentItem(ctx, canon.ContentItem{
			SourceID:      sourceID,
			Title:         inc.Name,
			ContentType:   canon.ContentStatus,
			Summary:       inc.Status,
			CommentCount:  len(inc.Updates),
			FirstPosted:   inc.CreatedAt,
			LastCheckedAt: time.Now(),
			ScrapedDate:   time.Now(),
		}); err != nil {
			log.Printf("orchestrator: upsert status item %s failed: %v", sourceID, err)
			continue
		}

		update, err := o.tracker.Evaluate(ctx, discussion.Observation{
			SourceID:      sourceID,
			CommentCount:  len(inc.Updates),
			LastCommentAt: inc.UpdatedAt,
			PostedAt:      inc.CreatedAt,
		}, time.Now())
		if err != nil {
			log.Printf("orchestrator: discussion tracking failed for %s: %v", sourceID, err)
			continue
		}
		if update.Verdict == canon.VerdictSkip {
			continue
		}

		inputs = append(inputs, feedassembler.Input{
			GUID:        sourceID,
			RawTitle:    feedassembler.ContentTypeTag(canon.ContentStatus, inc.Name),
			Description: inc.Status,
			Category:    inc.Impact,
			PubDate:     inc.UpdatedAt,
			Verdict:     update.Verdict,
			ContentType: canon.ContentStatus,
		})
	}
	return inputs, nil
}
