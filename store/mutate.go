package store

import (
	"dinoevent/derive"
	"dinoevent/errs"
	"dinoevent/models"
)

// The helpers below operate on a decoded collection inside one atomic
// read-modify-write and never touch the backend themselves.

func indexOf(events []models.Event, id string) int {
	for i, e := range events {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func normalize(e models.Event) models.Event {
	if e.Participants == nil {
		e.Participants = []models.Participant{}
	}
	if e.Cancellations == nil {
		e.Cancellations = []models.CancellationLog{}
	}
	if e.Wishers == nil {
		e.Wishers = []string{}
	}
	return e
}

func applyPatch(e models.Event, patch models.EventPatch) (models.Event, error) {
	next := patch.Apply(e.Clone())
	if next.MaxParticipants != nil && derive.ParticipantCount(next) > *next.MaxParticipants {
		return e, errs.Validation("maxParticipants %d is below the %d registered participants",
			*next.MaxParticipants, derive.ParticipantCount(next))
	}
	return next, nil
}

func appendParticipant(e models.Event, p models.Participant) (models.Event, error) {
	if derive.IsFull(e) {
		return e, errs.Conflict("event %s is full", e.ID)
	}
	next := e.Clone()
	next.Participants = append(next.Participants, p)
	return next, nil
}

func cancelParticipant(e models.Event, participantID string, entry models.CancellationLog) (models.Event, error) {
	i := e.FindParticipant(participantID)
	if i < 0 {
		return e, errs.NotFound("participant %s", participantID)
	}
	next := e.Clone()
	next.Participants = append(next.Participants[:i], next.Participants[i+1:]...)
	next.Cancellations = append(next.Cancellations, entry)
	return next, nil
}

func removeParticipant(e models.Event, participantID string) (models.Event, error) {
	i := e.FindParticipant(participantID)
	if i < 0 {
		return e, errs.NotFound("participant %s", participantID)
	}
	next := e.Clone()
	next.Participants = append(next.Participants[:i], next.Participants[i+1:]...)
	return next, nil
}

func toggleWish(e models.Event, viewerID string) models.Event {
	next := e.Clone()
	kept := make([]string, 0, len(next.Wishers)+1)
	found := false
	for _, w := range next.Wishers {
		if w == viewerID {
			found = true
			continue
		}
		kept = append(kept, w)
	}
	if !found {
		kept = append(kept, viewerID)
	}
	next.Wishers = kept
	return next
}
