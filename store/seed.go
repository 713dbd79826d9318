package store

import (
	"time"

	"dinoevent/models"
)

// ExampleEvents is the collection written the first time a blob backend
// finds its key empty, and by the seed command.
func ExampleEvents(now time.Time) []models.Event {
	max := 12
	return []models.Event{{
		ID:              "1",
		Title:           "Board Game Night - Party & Strategy",
		DateTime:        "2024-11-12T19:30",
		LocationName:    "Watson's place",
		LocationAddress: "1-1 Jingcheng 22nd St, West District, Taichung 403",
		LocationLink:    "https://maps.app.goo.gl/yHghpmTYyNSMbSA98",
		Content:         "Come play! Some light party games this time, and Avalon if enough people show up.",
		Participants: []models.Participant{
			{ID: "p1", Name: "W"},
			{ID: "p2", Name: "崔"},
			{ID: "p3", Name: "NASH"},
			{ID: "p4", Name: "U蕾"},
			{ID: "p5", Name: "ROLY"},
		},
		Cancellations:   []models.CancellationLog{},
		Wishers:         []string{},
		MaxParticipants: &max,
		Note:            "We start once 9 people are in, sign up early!",
		CreatedAt:       now.UnixMilli(),
	}}
}
