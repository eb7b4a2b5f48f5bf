package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/store"
)

// MatchResult is the outcome of matching a community post against the
// canonical graph: the target it links to (or GeneralFeatureID) and
// the confidence score that produced that decision.
type MatchResult struct {
	store.CanonicalTarget
	Confidence float64
}

var tokenRe = regexp.MustCompile(`[a-z0-9]+`)

// MatchCommunityMention scores title+body against every known
// canonical name by token (word) overlap and links the post to the
// best match, per spec.md §4.3's confidence thresholds: >=0.8
// auto-link, 0.5-0.8 still links but is flagged "suggest" for triage,
// <0.5 falls back to the synthetic "general" feature.
func (c *Classifier) MatchCommunityMention(ctx context.Context, contentID, title, body string, mentionType canon.MentionType) (*MatchResult, error) {
	targets, err := c.store.ListCanonicalTargets(ctx)
	if err != nil {
		return nil, err
	}

	postTokens := tokenSet(title + " " + body)
	best := bestMatch(targets, postTokens)

	ref := canon.ContentFeatureRef{ContentID: contentID, MentionType: mentionType}
	switch {
	case best != nil && best.Confidence >= ConfidenceAutoLink:
		ref.FeatureID, ref.OptionID, ref.SettingID = best.FeatureID, best.OptionID, best.SettingID
		ref.Confidence = best.Confidence
	case best != nil && best.Confidence >= ConfidenceSuggest:
		// Still linked, but low enough confidence that the CLI's
		// `general triage` surface should list it for a human to confirm.
		ref.FeatureID, ref.OptionID, ref.SettingID = best.FeatureID, best.OptionID, best.SettingID
		ref.Confidence = best.Confidence
		ref.NeedsTriage = true
	default:
		ref.FeatureID = GeneralFeatureID
		if best == nil {
			best = &MatchResult{Confidence: 0}
		}
		ref.Confidence = best.Confidence
	}

	if err := c.store.UpsertFeatureRef(ctx, ref); err != nil {
		return nil, err
	}
	return best, nil
}

func bestMatch(targets []store.CanonicalTarget, postTokens map[string]bool) *MatchResult {
	var best *MatchResult
	for _, t := range targets {
		nameTokens := tokenSet(t.Name)
		if len(nameTokens) == 0 {
			continue
		}
		overlap := 0
		for tok := range nameTokens {
			if postTokens[tok] {
				overlap++
			}
		}
		confidence := float64(overlap) / float64(len(nameTokens))
		if best == nil || confidence > best.Confidence {
			best = &MatchResult{CanonicalTarget: t, Confidence: confidence}
		}
	}
	return best
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range tokenRe.FindAllString(strings.ToLower(s), -1) {
		set[tok] = true
	}
	return set
}
