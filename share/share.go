// Package share renders an Event for use outside the app: calendar
// invites, map links, the copy-paste roll call text and printable rosters.
package share

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"dinoevent/derive"
	"dinoevent/models"
)

const (
	// Marker is prefixed to every exported event title.
	Marker = "🦖 "

	DefaultDuration = 2 * time.Hour
	// MaxBlankSlots bounds the empty lines rendered for open spots.
	MaxBlankSlots = 50

	calendarBase  = "https://www.google.com/calendar/render"
	mapSearchBase = "https://www.google.com/maps/search/"
	calendarStamp = "20060102T150405Z"
)

// Location is "name (address)", or just the name when no address is set.
func Location(e models.Event) string {
	if e.LocationAddress == "" {
		return e.LocationName
	}
	return fmt.Sprintf("%s (%s)", e.LocationName, e.LocationAddress)
}

// MapLink returns the organizer's link if present, else a map search for
// the address, falling back to the location name.
func MapLink(e models.Event) string {
	if e.LocationLink != "" {
		return e.LocationLink
	}
	query := e.LocationAddress
	if query == "" {
		query = e.LocationName
	}
	v := url.Values{}
	v.Set("api", "1")
	v.Set("query", query)
	return mapSearchBase + "?" + v.Encode()
}

// CalendarDetails is the invite body: content, the organizer note and the
// current roster.
func CalendarDetails(e models.Event) string {
	var b strings.Builder
	b.WriteString(e.Content)
	if e.Note != "" {
		b.WriteString("\n\n💡 Note: ")
		b.WriteString(e.Note)
	}
	b.WriteString("\n\n---\nParticipants:")
	for _, p := range e.Participants {
		b.WriteString("\n- ")
		b.WriteString(p.Name)
	}
	return b.String()
}

// CalendarURL builds a calendar template link for e. Start and end are sent
// in UTC; when dateTime cannot be parsed the dates are left out and the
// calendar asks the user.
func CalendarURL(e models.Event, loc *time.Location) string {
	v := url.Values{}
	v.Set("action", "TEMPLATE")
	v.Set("text", Marker+e.Title)
	if start, ok := derive.ParseDateTime(e.DateTime, loc); ok {
		end := start.Add(DefaultDuration)
		v.Set("dates", start.UTC().Format(calendarStamp)+"/"+end.UTC().Format(calendarStamp))
	}
	v.Set("details", CalendarDetails(e))
	v.Set("location", Location(e))
	return calendarBase + "?" + v.Encode()
}

// Text is the roll call message organizers paste into group chats. Open
// spots are listed as empty numbered lines so people can append themselves.
func Text(e models.Event, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%sDino meetup: %s\n\n", Marker, e.Title)
	fmt.Fprintf(&b, "⏰ Time: %s\n", derive.FormatLocalTime(e.DateTime, loc))
	b.WriteString("📍 Den:\n")
	b.WriteString(e.LocationName + "\n")
	if e.LocationAddress != "" {
		b.WriteString(e.LocationAddress + "\n")
	}
	b.WriteString(MapLink(e) + "\n\n")
	fmt.Fprintf(&b, "📜 Details: %s\n\n", e.Content)

	b.WriteString("-- Roll call --\n")
	for i, p := range e.Participants {
		fmt.Fprintf(&b, "%d.%s", i+1, p.Name)
		if p.Note != "" {
			fmt.Fprintf(&b, "(%s)", p.Note)
		}
		b.WriteString("\n")
	}
	if left, ok := derive.RemainingSpots(e); ok {
		shown := min(left, MaxBlankSlots)
		for i := 1; i <= shown; i++ {
			fmt.Fprintf(&b, "%d.\n", len(e.Participants)+i)
		}
		if left > shown {
			fmt.Fprintf(&b, "... %d more spots\n", left-shown)
		}
	}
	b.WriteString("----\n")
	fmt.Fprintf(&b, "🦴 Note: %s", e.Note)
	return b.String()
}

// Links bundles everything the share endpoint returns.
type Links struct {
	Text        string `json:"text"`
	MapLink     string `json:"mapLink"`
	CalendarURL string `json:"calendarUrl"`
	Location    string `json:"location"`
}

func Build(e models.Event, loc *time.Location) Links {
	return Links{
		Text:        Text(e, loc),
		MapLink:     MapLink(e),
		CalendarURL: CalendarURL(e, loc),
		Location:    Location(e),
	}
}
