package initdata

import (
	"net/url"
	"sort"
	"strings"
)

// Sign encodes fields in the given order and appends a hash field that
// Verify accepts for botToken. Any hash already present in fields is dropped.
func Sign(botToken string, fields []Field) string {
	latest := make(map[string]Field, len(fields))
	segments := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		if f.Name == HashField {
			continue
		}
		latest[f.Name] = f
		segments = append(segments, url.QueryEscape(f.Name)+"="+url.QueryEscape(f.Value))
	}

	signed := make([]Field, 0, len(latest))
	for _, f := range latest {
		signed = append(signed, f)
	}
	sort.Slice(signed, func(i, j int) bool {
		return signed[i].Name < signed[j].Name
	})

	hash := ComputeSignature(botToken, buildCheckString(signed))
	segments = append(segments, HashField+"="+hash)
	return strings.Join(segments, "&")
}
