package slots

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// The scheduling API answers the available-slots query in one of three
// shapes: a mapping wrapped under "slotsByDate", a bare date-keyed
// mapping (values a single time or a list of times), or a flat list of
// slot records each carrying its own date. Normalize accepts all three
// and produces one canonical catalog.
//
// Dates strictly before today (local midnight) are dropped silently, as
// are date keys that do not parse. Normalize never fails; anything
// unrecognizable yields an empty catalog, which is a valid "no slots"
// outcome rather than an error.
func Normalize(payload []byte, now time.Time) Catalog {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	byDate := decodeSlotPayload(payload, today.Format(dateLayout))

	// Fold keys like "2025-06-10T09:00:00" into their date part. Keys are
	// visited in sorted order so merged buckets stay deterministic.
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	times := map[string][]string{}
	for _, key := range keys {
		datePart, _, _ := strings.Cut(key, "T")
		day, err := time.ParseInLocation(dateLayout, datePart, now.Location())
		if err != nil || day.Before(today) {
			continue
		}
		if len(byDate[key]) == 0 {
			continue
		}
		times[datePart] = append(times[datePart], byDate[key]...)
	}

	cat := NewCatalog()
	for date, entries := range times {
		bucket := make([]Slot, 0, len(entries))
		for i, entry := range entries {
			bucket = append(bucket, Slot{
				ID:        SlotID(date, i),
				Date:      date,
				Time:      entry,
				Available: true,
			})
		}
		cat.ByDate[date] = bucket
		cat.Dates = append(cat.Dates, date)
	}
	sort.Strings(cat.Dates)
	return cat
}

// decodeSlotPayload pattern-matches the payload shape and returns a raw
// date -> display-time mapping. today is the fallback date for flat slot
// records missing both date fields.
func decodeSlotPayload(payload []byte, today string) map[string][]string {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '[':
		var records []flatSlot
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil
		}
		grouped := map[string][]string{}
		for _, rec := range records {
			entry, ok := rec.timeText()
			if !ok {
				continue
			}
			key := rec.dateKey(today)
			grouped[key] = append(grouped[key], entry)
		}
		return grouped

	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil
		}
		if wrapped, ok := obj["slotsByDate"]; ok {
			return decodeDateMap(wrapped)
		}
		return decodeDateMap(trimmed)
	}
	return nil
}

func decodeDateMap(data []byte) map[string][]string {
	var m map[string]timeList
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// flatSlot is one record of the flat-list payload shape. The time field
// goes by three names depending on the API version.
type flatSlot struct {
	Date     string          `json:"date"`
	SlotDate string          `json:"slotDate"`
	Time     json.RawMessage `json:"time"`
	SlotTime json.RawMessage `json:"slotTime"`
	Slot     json.RawMessage `json:"slot"`
}

func (s flatSlot) dateKey(today string) string {
	if s.Date != "" {
		return s.Date
	}
	if s.SlotDate != "" {
		return s.SlotDate
	}
	return today
}

func (s flatSlot) timeText() (string, bool) {
	for _, raw := range []json.RawMessage{s.Time, s.SlotTime, s.Slot} {
		if v, ok := scalarText(raw); ok {
			return v, true
		}
	}
	return "", false
}

// timeList accepts either a JSON array of times or a single bare value.
type timeList []string

func (t *timeList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*t = nil
		return nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := make([]string, 0, len(raw))
		for _, r := range raw {
			if s, ok := scalarText(r); ok {
				out = append(out, s)
			}
		}
		*t = out
		return nil
	}
	if s, ok := scalarText(data); ok {
		*t = timeList{s}
		return nil
	}
	*t = nil
	return nil
}

// scalarText renders a JSON scalar as display text. Strings are
// unquoted; numbers and booleans keep their literal form. Objects,
// arrays and null carry no usable time and are skipped.
func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[', 'n':
		return "", false
	default:
		return string(raw), true
	}
}
