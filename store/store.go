// Package store persists Event records. Implementations enforce the two
// properties that need a transactional guarantee: capacity is checked at
// write time, and a cancellation removes the participant and appends its
// audit entry in a single write.
package store

import (
	"context"

	"dinoevent/models"
)

// Store is the Event Store boundary. It performs no authorization.
type Store interface {
	List(ctx context.Context) ([]models.Event, error)
	Get(ctx context.Context, id string) (models.Event, error)
	Create(ctx context.Context, e models.Event) (models.Event, error)
	Update(ctx context.Context, id string, patch models.EventPatch) (models.Event, error)
	Delete(ctx context.Context, id string) error

	// AppendParticipant fails with errs.ErrConflict when the event is full
	// at the moment of the write.
	AppendParticipant(ctx context.Context, id string, p models.Participant) (models.Event, error)
	// CancelParticipant removes the participant and appends entry atomically.
	CancelParticipant(ctx context.Context, id, participantID string, entry models.CancellationLog) (models.Event, error)
	RemoveParticipant(ctx context.Context, id, participantID string) (models.Event, error)
	ToggleWish(ctx context.Context, id, viewerID string) (models.Event, error)
}

// Key is the fixed key holding the serialized collection in blob backends.
const Key = "quick_event_data"
