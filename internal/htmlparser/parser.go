// Package htmlparser turns a rendered Canvas release-note or deploy-note
// page into typed, structured records. It walks the DOM with
// golang.org/x/net/html rather than string/regex scraping of markup,
// the same tree-walking approach bluemonday (already in this module's
// dependency graph, via the enrichment gateway's sanitizer) uses
// internally to inspect HTML nodes.
package htmlparser

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
)

// ParseError is returned when a page cannot be identified as a release
// or deploy note at all (spec.md §4.2: "the whole page fails if no H2
// can be identified").
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse page: %s", e.Reason) }

// TableFields holds the raw cell values parsed out of the table
// following an H4 entry, before the classifier resolves them into an
// option/setting and configuration snapshot.
type TableFields struct {
	FeatureOptionValue    string
	EnableLocationAccount string
	EnableLocationCourse  string
	SubaccountConfig      *bool
	AffectsUI             *bool
	AffectedAreas         []string
	Permissions           string
}

// Entry is one H4 headline plus everything gathered under it.
type Entry struct {
	H4Title    string
	AnchorID   string
	AddedDate  *time.Time
	RawContent string
	Table      TableFields
}

// Section is one H2 block of a release note page.
type Section struct {
	Kind            canon.SectionKind
	CategoryH3      string
	Entries         []Entry
	UpcomingChanges []canon.UpcomingChange
}

// ReleaseNotePage is the parsed form of a release-note page.
type ReleaseNotePage struct {
	PageDate time.Time
	Sections []Section
}

// DeployNotePage is the parsed form of a deploy-note page: a flat list
// of entries under a single heading, no H2 section structure.
type DeployNotePage struct {
	PageDate time.Time
	Changes  []Entry
}

var sectionKinds = map[string]canon.SectionKind{
	"new features":            canon.SectionNewFeatures,
	"updated features":        canon.SectionUpdatedFeatures,
	"platform/integration":    canon.SectionPlatform,
	"other updates":           canon.SectionOtherUpdates,
	"upcoming canvas changes": canon.SectionUpcoming,
}

var addedDateRe = regexp.MustCompile(`(?i)\s*\[added\s+(\d{4}-\d{2}-\d{2})\]\s*$`)

var locationLineRe = regexp.MustCompile(`(?i)^(Account|Course)\s*\(([^)]+)\)$`)

// transparentContainers are wrapper tags walked through without being
// treated as raw-content leaves, so a heading or table nested one level
// inside a layout <div> is still found.
var transparentContainers = map[atom.Atom]bool{
	atom.Div:     true,
	atom.Section: true,
	atom.Article: true,
	atom.Body:    true,
	atom.Html:    true,
	atom.Main:    true,
	atom.Span:    true,
}

// walkState accumulates one output Section per (kind, category_h3) run:
// a new H2 changes kind, a new non-blank H3 changes category and starts
// a fresh section, a blank H3 carries the previous category forward
// across either boundary.
type walkState struct {
	sections []Section
	curKind  canon.SectionKind
	curH3    string
	curGroup *Section // open but not yet flushed into sections
	curEntry *Entry
	rawBuf   *bytes.Buffer
	sawH2    bool
}

// ParseReleaseNotes parses a full release-note page. pageDate is the
// page's publication date, determined by the caller (e.g. from the
// source's listing metadata) since it is not reliably present in the
// body markup itself.
func ParseReleaseNotes(rawHTML string, pageDate time.Time) (*ReleaseNotePage, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	ws := &walkState{}
	walk(doc, ws)
	ws.closeEntry()
	ws.flushGroup()

	if !ws.sawH2 {
		return nil, &ParseError{Reason: "no H2 section headings found"}
	}
	return &ReleaseNotePage{PageDate: pageDate, Sections: ws.sections}, nil
}

// ParseDeployNotes parses a deploy-note page: no H2s, just H4 entries
// (and their tables) under one implicit section.
func ParseDeployNotes(rawHTML string, pageDate time.Time) (*DeployNotePage, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}

	ws := &walkState{}
	walk(doc, ws)
	ws.closeEntry()
	ws.flushGroup()

	var entries []Entry
	for _, sec := range ws.sections {
		entries = append(entries, sec.Entries...)
	}
	if len(entries) == 0 {
		return nil, &ParseError{Reason: "no entries found"}
	}
	return &DeployNotePage{PageDate: pageDate, Changes: entries}, nil
}

func (ws *walkState) closeEntry() {
	if ws.curEntry == nil {
		return
	}
	ws.curEntry.RawContent = strings.TrimSpace(ws.rawBuf.String())
	ws.openGroup()
	ws.curGroup.Entries = append(ws.curGroup.Entries, *ws.curEntry)
	ws.curEntry = nil
	ws.rawBuf = nil
}

// openGroup lazily starts the current (kind, category_h3) group so an
// H4 encountered before any H3 still lands somewhere.
func (ws *walkState) openGroup() {
	if ws.curGroup == nil {
		ws.curGroup = &Section{Kind: ws.curKind, CategoryH3: ws.curH3}
	}
}

// flushGroup closes out the current group, pushing it onto sections if
// it ever received entries or upcoming changes.
func (ws *walkState) flushGroup() {
	if ws.curGroup != nil && (len(ws.curGroup.Entries) > 0 || len(ws.curGroup.UpcomingChanges) > 0) {
		ws.sections = append(ws.sections, *ws.curGroup)
	}
	ws.curGroup = nil
}

func walk(n *html.Node, ws *walkState) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			if ws.curEntry != nil && c.Type == html.TextNode {
				ws.rawBuf.WriteString(c.Data)
			}
			continue
		}
		switch c.DataAtom {
		case atom.H2:
			handleH2(c, ws)
		case atom.H3:
			handleH3(c, ws)
		case atom.H4:
			handleH4(c, ws)
		case atom.Table:
			if ws.curEntry != nil {
				parseTable(c, &ws.curEntry.Table)
			}
		case atom.Ul, atom.Ol:
			if ws.curKind == canon.SectionUpcoming {
				ws.openGroup()
				parseUpcomingList(c, ws.curGroup)
			} else if ws.curEntry != nil {
				ws.rawBuf.WriteString(renderNode(c))
			}
		default:
			if transparentContainers[c.DataAtom] {
				walk(c, ws)
			} else if ws.curEntry != nil {
				ws.rawBuf.WriteString(renderNode(c))
			}
		}
	}
}

func handleH2(n *html.Node, ws *walkState) {
	ws.closeEntry()
	ws.flushGroup()
	ws.sawH2 = true
	text := strings.TrimSpace(textContent(n))
	kind, ok := sectionKinds[strings.ToLower(text)]
	if !ok {
		kind = canon.SectionOther
	}
	ws.curKind = kind
	// curH3 carries across H2 boundaries per the blank-H3 carry-forward
	// rule; it only changes on an actual non-blank H3.
}

func handleH3(n *html.Node, ws *walkState) {
	ws.closeEntry()
	text := strings.TrimSpace(textContent(n))
	if text == "" {
		// blank H3 carries the previous one forward; if there is no
		// previous one yet, the first real H3 in the document wins
		// once it appears, so leave curH3 untouched here.
		return
	}
	ws.flushGroup()
	ws.curH3 = text
}

func handleH4(n *html.Node, ws *walkState) {
	ws.closeEntry()
	ws.openGroup()

	rawTitle := strings.TrimSpace(textContent(n))
	title := rawTitle
	var added *time.Time
	if m := addedDateRe.FindStringSubmatch(rawTitle); m != nil {
		title = strings.TrimSpace(addedDateRe.ReplaceAllString(rawTitle, ""))
		if t, err := time.Parse("2006-01-02", m[1]); err == nil {
			added = &t
		}
	}

	anchorID := attr(n, "data-id")
	if anchorID == "" {
		anchorID = canon.Slugify(title)
	}

	ws.curEntry = &Entry{H4Title: title, AnchorID: anchorID, AddedDate: added}
	ws.rawBuf = &bytes.Buffer{}
}

func parseTable(table *html.Node, fields *TableFields) {
	// html.Parse wraps bare <tr> rows in an implied <tbody>.
	forEachChild(table, 0, func(c *html.Node) {
		if c.DataAtom == atom.Tbody || c.DataAtom == atom.Thead || c.DataAtom == atom.Tfoot {
			parseTable(c, fields)
		}
	})
	forEachChild(table, atom.Tr, func(tr *html.Node) {
		var cells []*html.Node
		forEachChild(tr, 0, func(c *html.Node) {
			if c.DataAtom == atom.Td || c.DataAtom == atom.Th {
				cells = append(cells, c)
			}
		})
		if len(cells) < 2 {
			return
		}
		header := normalizeHeader(textContent(cells[0]))
		value := cells[1]

		switch header {
		case "feature option to enable", "feature option name to enable":
			fields.FeatureOptionValue = strings.TrimSpace(firstParagraphText(value))
		case "enable feature option location & default status":
			for _, line := range cellLines(value) {
				m := locationLineRe.FindStringSubmatch(strings.TrimSpace(line))
				if m == nil {
					continue
				}
				switch strings.ToLower(m[1]) {
				case "account":
					fields.EnableLocationAccount = m[2]
				case "course":
					fields.EnableLocationCourse = m[2]
				}
			}
		case "subaccount configuration":
			fields.SubaccountConfig = parseYesNo(textContent(value))
		case "affects user interface":
			fields.AffectsUI = parseYesNo(textContent(value))
		case "affected areas":
			for _, part := range strings.Split(textContent(value), ",") {
				part = strings.TrimSpace(part)
				if part != "" {
					fields.AffectedAreas = append(fields.AffectedAreas, part)
				}
			}
		case "permissions":
			fields.Permissions = strings.TrimSpace(textContent(value))
		}
	})
}

func parseYesNo(s string) *bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes":
		v := true
		return &v
	case "no":
		v := false
		return &v
	default:
		return nil
	}
}

var monthDateRe = regexp.MustCompile(`(?i)^([A-Za-z]+ \d{1,2},? \d{4})`)
var isoDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

func parseUpcomingList(list *html.Node, sec *Section) {
	forEachChild(list, atom.Li, func(li *html.Node) {
		text := strings.TrimSpace(textContent(li))
		if text == "" {
			return
		}
		change := canon.UpcomingChange{Description: text}
		if m := isoDateRe.FindStringSubmatch(text); m != nil {
			if t, err := time.Parse("2006-01-02", m[1]); err == nil {
				change.ChangeDate = &t
			}
		} else if m := monthDateRe.FindStringSubmatch(text); m != nil {
			cleaned := strings.ReplaceAll(m[1], ",", "")
			for _, layout := range []string{"January 2 2006", "Jan 2 2006"} {
				if t, err := time.Parse(layout, cleaned); err == nil {
					change.ChangeDate = &t
					break
				}
			}
		}
		sec.UpcomingChanges = append(sec.UpcomingChanges, change)
	})
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.Join(strings.Fields(s), " ")))
}

// firstParagraphText returns the text of the first <p> descendant, or
// the node's full text if it has no <p> children (spec.md §4.2: "take
// text of the first <p> only").
func firstParagraphText(n *html.Node) string {
	var found string
	var visit func(*html.Node) bool
	visit = func(node *html.Node) bool {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.P {
				found = textContent(c)
				return true
			}
			if visit(c) {
				return true
			}
		}
		return false
	}
	if visit(n) {
		return found
	}
	return textContent(n)
}

// cellLines splits a cell's content into logical lines: one per <p> or
// <br>-separated run if present, else newline-split rendered text.
func cellLines(n *html.Node) []string {
	var lines []string
	forEachChild(n, atom.P, func(p *html.Node) {
		lines = append(lines, textContent(p))
	})
	if len(lines) > 0 {
		return lines
	}
	var buf bytes.Buffer
	var walkBr func(*html.Node)
	walkBr = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Br {
				buf.WriteByte('\n')
				continue
			}
			if c.Type == html.TextNode {
				buf.WriteString(c.Data)
			}
			walkBr(c)
		}
	}
	walkBr(n)
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func forEachChild(n *html.Node, want atom.Atom, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if want == 0 || c.DataAtom == want {
			fn(c)
		}
	}
}

func textContent(n *html.Node) string {
	var buf bytes.Buffer
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			buf.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}
