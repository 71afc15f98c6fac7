package markdown

import "time"

const timestampLayout = "2006-01-02 15:04:05 UTC"

var timestampInputs = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// FormatTimestamp renders an ISO-8601 timestamp as "YYYY-MM-DD HH:MM:SS UTC".
// Values that do not parse are returned unchanged.
func FormatTimestamp(raw string) string {
	if raw == "" {
		return ""
	}
	for _, layout := range timestampInputs {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(timestampLayout)
		}
	}
	return raw
}
