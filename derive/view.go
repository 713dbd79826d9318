package derive

import (
	"time"

	"dinoevent/models"
)

// View is an Event with its display state attached. TotalRevenue and the
// wisher list are only filled for admins.
type View struct {
	models.Event
	Upcoming           bool     `json:"upcoming"`
	DisplayTime        string   `json:"displayTime"`
	ParticipantCount   int      `json:"participantCount"`
	IsFull             bool     `json:"isFull"`
	RemainingSpots     *int     `json:"remainingSpots,omitempty"`
	DonationTotal      int      `json:"donationTotal"`
	CostRevenue        int      `json:"costRevenue"`
	TotalRevenue       *int     `json:"totalRevenue,omitempty"`
	DonationPercentage *float64 `json:"donationPercentage,omitempty"`
	WishCount          int      `json:"wishCount"`
	HasWished          bool     `json:"hasWished"`
}

// Build derives the view of e for the given session at now.
func Build(e models.Event, now time.Time, sess models.Session) View {
	v := View{
		Event:            e,
		Upcoming:         IsUpcoming(e, now),
		DisplayTime:      FormatLocalTime(e.DateTime, now.Location()),
		ParticipantCount: ParticipantCount(e),
		IsFull:           IsFull(e),
		DonationTotal:    DonationTotal(e),
		CostRevenue:      CostRevenue(e),
		WishCount:        len(e.Wishers),
		HasWished:        HasWished(e, sess.ViewerID),
	}
	if left, ok := RemainingSpots(e); ok {
		v.RemainingSpots = &left
	}
	if pct, ok := DonationPercentage(e); ok {
		v.DonationPercentage = &pct
	}
	if sess.IsAdmin() {
		total := TotalRevenue(e)
		v.TotalRevenue = &total
	} else {
		v.Event.Wishers = nil
	}
	return v
}

// Listing is the upcoming/past split returned to clients.
type Listing struct {
	Upcoming []View `json:"upcoming"`
	Past     []View `json:"past"`
	Now      int64  `json:"now"`
}

func BuildListing(events []models.Event, now time.Time, sess models.Session) Listing {
	up, past := Partition(events, now)
	l := Listing{
		Upcoming: make([]View, 0, len(up)),
		Past:     make([]View, 0, len(past)),
		Now:      now.UnixMilli(),
	}
	for _, e := range up {
		l.Upcoming = append(l.Upcoming, Build(e, now, sess))
	}
	for _, e := range past {
		l.Past = append(l.Past, Build(e, now, sess))
	}
	return l
}
