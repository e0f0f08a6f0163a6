package feed

import (
	"io"
	"strings"
	"time"

	"github.com/beevik/etree"

	"eventcal/internal/model"
)

// Channel describes the RSS channel.
type Channel struct {
	Title       string
	Description string
	// Link is the site root; item links are resolved against it.
	Link string
}

// WriteRSS writes an RSS 2.0 document with one item per occurrence.
// Canceled and missed occurrences stay in the feed with a title prefix so
// subscribers learn about the change.
func WriteRSS(w io.Writer, ch Channel, occs []model.Occurrence) error {
	base := strings.TrimRight(ch.Link, "/")

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	rss := doc.CreateElement("rss")
	rss.CreateAttr("version", "2.0")

	channel := rss.CreateElement("channel")
	channel.CreateElement("title").SetText(ch.Title)
	channel.CreateElement("link").SetText(ch.Link)
	channel.CreateElement("description").SetText(ch.Description)

	for _, o := range occs {
		link := base + model.OccurrencePath(o.Day, o.Event.Slug)

		item := channel.CreateElement("item")
		item.CreateElement("title").SetText(itemTitle(o))
		item.CreateElement("link").SetText(link)
		guid := item.CreateElement("guid")
		guid.CreateAttr("isPermaLink", "false")
		guid.SetText(OccurrenceUID(o))
		item.CreateElement("pubDate").SetText(o.Day.Time().Format(time.RFC1123Z))
		if o.Event.Description != "" {
			item.CreateElement("description").SetText(o.Event.Description)
		}
	}

	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

func itemTitle(o model.Occurrence) string {
	switch {
	case o.Canceled:
		return "Canceled: " + o.Event.Title
	case o.Missed:
		return "Missed: " + o.Event.Title
	}
	return o.Event.Title
}
