package feed

import (
	"strings"
	"time"

	"github.com/parthsinha/medium-sync/apperr"
	"github.com/parthsinha/medium-sync/model"
)

// Medium publishes pubDate in RFC 1123 form and atom:updated in
// RFC 3339 form; older entries occasionally use the other convention.
var (
	pubDateFormats = []string{time.RFC1123Z, time.RFC1123, time.RFC3339}
	updatedFormats = []string{time.RFC3339, time.RFC1123Z, time.RFC1123}
)

// Normalize converts a raw feed item into a canonical article. A
// missing guid, an unparsable pubDate, or a missing or unparsable
// updated timestamp fails the item with a normalize error; the caller
// decides whether to skip it.
func Normalize(item RawItem) (model.Article, error) {
	guid := item.GUID.Value()
	if guid == "" {
		return model.Article{}, apperr.New(apperr.KindNormalize, "item has no guid")
	}

	pubDate, err := parseTime(item.PubDate, pubDateFormats)
	if err != nil {
		return model.Article{}, apperr.Wrapf(apperr.KindNormalize, err, "item %s: pubDate", guid)
	}

	lastUpdated, err := parseTime(item.Updated, updatedFormats)
	if err != nil {
		return model.Article{}, apperr.Wrapf(apperr.KindNormalize, err, "item %s: updated", guid)
	}

	return model.Article{
		GUID:        guid,
		Title:       item.Title.Value(),
		Link:        strings.TrimSpace(item.Link),
		Creator:     item.Creator.Value(),
		Categories:  flattenCategories(item.Categories),
		Content:     item.Content.Value(),
		PubDate:     pubDate,
		LastUpdated: lastUpdated,
	}, nil
}

// parseTime tries each accepted layout in order.
func parseTime(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, apperr.New(apperr.KindNormalize, "missing timestamp")
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// flattenCategories unwraps every category value and deduplicates them
// preserving first-seen order. The result is never nil.
func flattenCategories(raw []Text) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, c := range raw {
		name := strings.TrimSpace(c.Value())
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
