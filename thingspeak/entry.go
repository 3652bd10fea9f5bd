package thingspeak

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/coreybb/thermowatch/ingestion"
)

// Entry is one feed entry: a sequence id, a creation timestamp and up to
// eight numbered fields. Null fields are omitted from Fields.
type Entry struct {
	EntryID   int64
	CreatedAt string
	Fields    map[int]any
}

// UnmarshalJSON accepts field values as strings, numbers or null.
func (e *Entry) UnmarshalJSON(data []byte) error {
	raw := map[string]any{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	e.EntryID = 0
	if n, ok := raw["entry_id"].(json.Number); ok {
		if id, err := n.Int64(); err == nil {
			e.EntryID = id
		}
	}
	e.CreatedAt, _ = raw["created_at"].(string)
	e.Fields = ingestion.NumberedFields(raw)
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05 UTC",
	"2006-01-02T15:04:05",
}

// Timestamp parses CreatedAt into UTC. Timestamps without an offset are taken
// as UTC. Formats outside the feed's own layouts (some gateways re-post
// entries with their own formatting) go through dateparse.
func (e Entry) Timestamp() (time.Time, error) {
	s := strings.TrimSpace(e.CreatedAt)
	if s == "" {
		return time.Time{}, fmt.Errorf("entry %d has no created_at", e.EntryID)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	// Bare numbers would read as epoch seconds, and ParseStrict refuses
	// ambiguous day/month order. Zone-less values are then read as UTC.
	if !isAllDigits(s) {
		if _, err := dateparse.ParseStrict(s); err == nil {
			if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
				return t.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("entry %d: unrecognised created_at %q", e.EntryID, e.CreatedAt)
}

// FieldNumbers returns the populated field numbers in ascending order.
func (e Entry) FieldNumbers() []int {
	var nums []int
	for n := 1; n <= ingestion.MaxField; n++ {
		if _, ok := e.Fields[n]; ok {
			nums = append(nums, n)
		}
	}
	return nums
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
