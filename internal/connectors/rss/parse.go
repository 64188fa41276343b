package rss

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Entry is one dated link of a feed.
type Entry struct {
	Link      string
	Title     string
	Published time.Time
}

type document struct {
	XMLName xml.Name
	// RSS 2.0
	Items []struct {
		Link    string `xml:"link"`
		Title   string `xml:"title"`
		PubDate string `xml:"pubDate"`
	} `xml:"channel>item"`
	// Atom
	Entries []struct {
		Links []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
		Title     string `xml:"title"`
		Updated   string `xml:"updated"`
		Published string `xml:"published"`
	} `xml:"entry"`
}

// feedLayouts covers RFC 822 dates with single digit days.
var feedLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

// Parse reads an RSS 2.0 or Atom document. Entries without a link or a
// parseable date are dropped.
func Parse(data []byte) ([]Entry, error) {
	var doc document
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	var entries []Entry
	for _, it := range doc.Items {
		if e, ok := entry(it.Link, it.Title, it.PubDate); ok {
			entries = append(entries, e)
		}
	}
	for _, it := range doc.Entries {
		href := ""
		for _, l := range it.Links {
			if l.Rel == "" || l.Rel == "alternate" {
				href = l.Href
				break
			}
		}
		date := it.Updated
		if date == "" {
			date = it.Published
		}
		if e, ok := entry(href, it.Title, date); ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func entry(link, title, date string) (Entry, bool) {
	link = strings.TrimSpace(link)
	if link == "" {
		return Entry{}, false
	}
	t, ok := parseDate(strings.TrimSpace(date))
	if !ok {
		return Entry{}, false
	}
	return Entry{Link: link, Title: strings.TrimSpace(title), Published: t}, true
}

func parseDate(s string) (time.Time, bool) {
	if t, ok := domain.ParseTimestamp(s); ok {
		return t, true
	}
	for _, layout := range feedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
