// Package slots holds the normalized slot catalog the booking wizard
// browses, plus the normalizer that reconciles the scheduling API's
// response shapes into it.
package slots

import "fmt"

// Slot is one bookable appointment time on one date.
type Slot struct {
	ID        string `json:"id"`
	Date      string `json:"date"` // YYYY-MM-DD
	Time      string `json:"time"` // opaque display string, e.g. "10:30 AM"
	Available bool   `json:"available"`
}

// Catalog groups slots by date and tracks which date the wizard is
// currently showing. Dates is sorted ascending; ISO date strings sort
// chronologically. Cursor is always a valid index while Dates is
// non-empty.
type Catalog struct {
	ByDate map[string][]Slot `json:"by_date"`
	Dates  []string          `json:"dates"`
	Cursor int               `json:"cursor"`
}

// NewCatalog returns an empty catalog.
func NewCatalog() Catalog {
	return Catalog{ByDate: map[string][]Slot{}}
}

// Empty reports whether the catalog holds no dates at all.
func (c Catalog) Empty() bool {
	return len(c.Dates) == 0
}

// CurrentDate returns the date under the cursor, or "" for an empty catalog.
func (c Catalog) CurrentDate() string {
	if c.Empty() {
		return ""
	}
	return c.Dates[c.Cursor]
}

// CurrentSlots returns the slots for the date under the cursor.
func (c Catalog) CurrentSlots() []Slot {
	if c.Empty() {
		return nil
	}
	return c.ByDate[c.Dates[c.Cursor]]
}

// Navigate moves the cursor by delta, clamped to the date range.
// Out-of-range moves are no-ops rather than wrapping around.
func (c *Catalog) Navigate(delta int) {
	if c.Empty() {
		return
	}
	next := c.Cursor + delta
	if next < 0 {
		next = 0
	}
	if next > len(c.Dates)-1 {
		next = len(c.Dates) - 1
	}
	c.Cursor = next
}

// Find looks a slot up by id across every date in the catalog. Slot ids
// are unique within a session, so a hit on any date is authoritative.
func (c Catalog) Find(id string) (Slot, bool) {
	for _, date := range c.Dates {
		for _, s := range c.ByDate[date] {
			if s.ID == id {
				return s, true
			}
		}
	}
	return Slot{}, false
}

// SlotID derives the deterministic slot id for a position within a date.
func SlotID(date string, index int) string {
	return fmt.Sprintf("%s-%d", date, index)
}
