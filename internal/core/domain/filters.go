package domain

import (
	"fmt"
	"strings"
	"time"
)

// ExtensionFilter selects items by file extension.
// Extensions is a comma separated list such as "pdf, docx".
type ExtensionFilter struct {
	Extensions string `json:"extensions"`
	Exclude    bool   `json:"exclude,omitempty"`
}

// ModifiedFilter bounds items by modification date, both ends inclusive.
type ModifiedFilter struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Filters narrows the item set of a cycle.
type Filters struct {
	FileExtensions *ExtensionFilter `json:"fileExtensions,omitempty"`
	Modified       *ModifiedFilter  `json:"modified,omitempty"`
}

// Validate rejects malformed filters.
func (f *Filters) Validate() error {
	if f == nil {
		return nil
	}
	if f.Modified != nil {
		for name, v := range map[string]string{"from": f.Modified.From, "to": f.Modified.To} {
			if v == "" {
				continue
			}
			if _, ok := ParseTimestamp(v); !ok {
				return fmt.Errorf("%w: filters.modified.%s is not a date", ErrInvalidInput, name)
			}
		}
	}
	return nil
}

// mimeTypes resolves the configured extensions. Unknown extensions are dropped.
func (f *ExtensionFilter) mimeTypes() map[string]struct{} {
	out := make(map[string]struct{})
	for _, ext := range strings.Split(f.Extensions, ",") {
		if t := LookupMimeType(ext); t != "" {
			out[t] = struct{}{}
		}
	}
	return out
}

// Matcher returns a predicate applying both filters. A nil Filters allows
// everything. Extensions are resolved once.
func (f *Filters) Matcher() func(SyncItem) bool {
	if f == nil {
		return func(SyncItem) bool { return true }
	}
	var types map[string]struct{}
	exclude := false
	if f.FileExtensions != nil {
		types = f.FileExtensions.mimeTypes()
		exclude = f.FileExtensions.Exclude
	}
	modified := f.Modified

	return func(item SyncItem) bool {
		if len(types) > 0 {
			_, listed := types[item.MimeType]
			if listed == exclude {
				return false
			}
		}
		if modified != nil && item.ModifiedGMT != "" {
			if modified.From != "" && compareTimestamps(item.ModifiedGMT, modified.From) < 0 {
				return false
			}
			if modified.To != "" && compareTimestamps(item.ModifiedGMT, modified.To) > 0 {
				return false
			}
		}
		return true
	}
}

// Allow reports whether item passes the filters.
func (f *Filters) Allow(item SyncItem) bool {
	return f.Matcher()(item)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// ParseTimestamp parses the date formats found in watermarks, filters and
// source listings (RFC 3339, bare dates, RFC 1123 feed dates).
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareTimestamps orders two timestamps, falling back to a lexical
// comparison when either side does not parse.
func compareTimestamps(a, b string) int {
	ta, okA := ParseTimestamp(a)
	tb, okB := ParseTimestamp(b)
	if okA && okB {
		return ta.Compare(tb)
	}
	return strings.Compare(a, b)
}

// After reports whether timestamp a is strictly later than b.
func After(a, b string) bool {
	return compareTimestamps(a, b) > 0
}
