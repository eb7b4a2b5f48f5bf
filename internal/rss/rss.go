// Package rss serializes an assembled feed into RSS 2.0 XML (spec.md
// §6 Outputs). There is no RSS/Atom feed-generation library anywhere
// in the retrieval pack, so this is built directly on encoding/xml
// (SPEC_FULL.md §9 standard-library justification).
package rss

import (
	"encoding/xml"
	"io"
	"time"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
	"github.com/titulartarantula/canvas-rss-sub001/internal/config"
	"github.com/titulartarantula/canvas-rss-sub001/internal/feedassembler"
)

// rfc822 is the pubDate format RSS 2.0 requires.
const rfc822 = "Mon, 02 Jan 2006 15:04:05 -0700"

type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string `xml:"title"`
	Link          string `xml:"link"`
	Description   string `xml:"description"`
	LastBuildDate string `xml:"lastBuildDate"`
	Items         []item `xml:"item"`
}

type item struct {
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Category    string `xml:"category,omitempty"`
	GUID        guid   `xml:"guid"`
	PubDate     string `xml:"pubDate"`
}

type guid struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Serialize writes items as one RSS 2.0 <channel>, truncated to
// cfg.MaxItems, to w. generatedAt stamps <lastBuildDate>.
func Serialize(w io.Writer, cfg config.RSSConfig, items []feedassembler.Item, generatedAt time.Time) error {
	if cfg.MaxItems > 0 && len(items) > cfg.MaxItems {
		items = items[:cfg.MaxItems]
	}

	feed := rssFeed{
		Version: "2.0",
		Channel: channel{
			Title:         cfg.Title,
			Link:          cfg.Link,
			Description:   cfg.Description,
			LastBuildDate: generatedAt.Format(rfc822),
			Items:         make([]item, 0, len(items)),
		},
	}
	for _, it := range items {
		feed.Channel.Items = append(feed.Channel.Items, item{
			Title:       it.Title,
			Description: it.Description,
			Category:    it.Category,
			GUID:        guid{IsPermaLink: false, Value: it.GUID},
			PubDate:     it.PubDate.Format(rfc822),
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return canon.WrapSerialization("rss.write_header", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(feed); err != nil {
		return canon.WrapSerialization("rss.encode", err)
	}
	return nil
}
