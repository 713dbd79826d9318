// Package derive computes display state from an immutable Event snapshot.
// Nothing here is stored back into the record; every value is recomputed
// on read from the event, the current time and the viewer.
package derive

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"dinoevent/models"
)

// Weekdays is indexed by time.Weekday.
var Weekdays = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// UnsetTime is shown for events without a date.
const UnsetTime = "TBD"

var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// ParseDateTime reads a wall-clock timestamp in loc. RFC3339 values carry
// their own offset and are accepted as well.
func ParseDateTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// IsUpcoming reports dateTime >= now. The wall clock is read in now's
// location. Unparsable dates are never upcoming.
func IsUpcoming(e models.Event, now time.Time) bool {
	t, ok := ParseDateTime(e.DateTime, now.Location())
	if !ok {
		return false
	}
	return !t.Before(now)
}

// Partition splits events into upcoming (soonest first) and past (most
// recent first). Events with unparsable dates land at the end of past.
func Partition(events []models.Event, now time.Time) (upcoming, past []models.Event) {
	type keyed struct {
		ev models.Event
		at time.Time
		ok bool
	}
	var up, gone []keyed
	for _, e := range events {
		t, ok := ParseDateTime(e.DateTime, now.Location())
		k := keyed{ev: e, at: t, ok: ok}
		if ok && !t.Before(now) {
			up = append(up, k)
		} else {
			gone = append(gone, k)
		}
	}
	sort.SliceStable(up, func(i, j int) bool { return up[i].at.Before(up[j].at) })
	sort.SliceStable(gone, func(i, j int) bool {
		if gone[i].ok != gone[j].ok {
			return gone[i].ok
		}
		return gone[i].at.After(gone[j].at)
	})

	upcoming = make([]models.Event, 0, len(up))
	for _, k := range up {
		upcoming = append(upcoming, k.ev)
	}
	past = make([]models.Event, 0, len(gone))
	for _, k := range gone {
		past = append(past, k.ev)
	}
	return upcoming, past
}

func ParticipantCount(e models.Event) int {
	return len(e.Participants)
}

// IsFull is true only when a capacity is set and reached.
func IsFull(e models.Event) bool {
	return e.MaxParticipants != nil && ParticipantCount(e) >= *e.MaxParticipants
}

// RemainingSpots returns the open slots, or false for unlimited events.
func RemainingSpots(e models.Event) (int, bool) {
	if e.MaxParticipants == nil {
		return 0, false
	}
	left := *e.MaxParticipants - ParticipantCount(e)
	if left < 0 {
		left = 0
	}
	return left, true
}

func DonationTotal(e models.Event) int {
	total := 0
	for _, p := range e.Participants {
		if p.DonationAmount != nil {
			total += *p.DonationAmount
		}
	}
	return total
}

func CostRevenue(e models.Event) int {
	if e.Cost == nil {
		return 0
	}
	return *e.Cost * ParticipantCount(e)
}

// TotalRevenue is the admin-facing sum of donations and fees.
func TotalRevenue(e models.Event) int {
	return DonationTotal(e) + CostRevenue(e)
}

// DonationPercentage is clamped to [0, 100]. It is undefined without a
// positive fundraising goal.
func DonationPercentage(e models.Event) (float64, bool) {
	if e.FundraisingGoal == nil || *e.FundraisingGoal <= 0 {
		return 0, false
	}
	pct := 100 * float64(DonationTotal(e)) / float64(*e.FundraisingGoal)
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return pct, true
}

func HasWished(e models.Event, viewerID string) bool {
	if viewerID == "" {
		return false
	}
	for _, w := range e.Wishers {
		if w == viewerID {
			return true
		}
	}
	return false
}

// FormatLocalTime renders "M/D (Wkd) HH:MM". Unparsable input is returned
// unchanged.
func FormatLocalTime(raw string, loc *time.Location) string {
	if strings.TrimSpace(raw) == "" {
		return UnsetTime
	}
	t, ok := ParseDateTime(raw, loc)
	if !ok {
		return raw
	}
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%d/%d (%s) %02d:%02d", int(t.Month()), t.Day(), Weekdays[t.Weekday()], t.Hour(), t.Minute())
}
