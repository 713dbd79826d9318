package store

import (
	"context"
	"encoding/json"
	"fmt"

	"dinoevent/errs"
	"dinoevent/models"
)

// Blob is a single-key byte store with an atomic read-modify-write.
type Blob interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	// Update calls fn with the current value (ok is false when the key is
	// absent) and stores its result atomically. A nil result skips the
	// write. fn may run more than once under optimistic backends.
	Update(ctx context.Context, key string, fn func(data []byte, ok bool) ([]byte, error)) error
}

// BlobStore keeps the whole collection as one JSON array under a fixed
// key, newest event first.
type BlobStore struct {
	blob Blob
	key  string
	seed []models.Event
}

// NewBlobStore returns a store over blob. seed is written the first time
// the key is found missing.
func NewBlobStore(blob Blob, key string, seed []models.Event) *BlobStore {
	if key == "" {
		key = Key
	}
	return &BlobStore{blob: blob, key: key, seed: seed}
}

func decode(data []byte) ([]models.Event, error) {
	var events []models.Event
	if len(data) == 0 {
		return events, nil
	}
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode %d bytes of events: %w", len(data), err)
	}
	return events, nil
}

func (s *BlobStore) seedCopy() []models.Event {
	out := make([]models.Event, 0, len(s.seed))
	for _, e := range s.seed {
		out = append(out, normalize(e.Clone()))
	}
	return out
}

func (s *BlobStore) List(ctx context.Context) ([]models.Event, error) {
	data, ok, err := s.blob.Get(ctx, s.key)
	if err != nil {
		return nil, errs.Classify(err)
	}
	if ok {
		events, err := decode(data)
		return events, errs.Classify(err)
	}

	// Without a seed a missing key stays missing until the first write, so
	// read-only callers never block a later seeding run.
	if len(s.seed) == 0 {
		return []models.Event{}, nil
	}

	var out []models.Event
	err = s.blob.Update(ctx, s.key, func(cur []byte, exists bool) ([]byte, error) {
		if exists {
			events, err := decode(cur)
			out = events
			return nil, err
		}
		out = s.seedCopy()
		return json.Marshal(out)
	})
	if err != nil {
		return nil, errs.Classify(err)
	}
	return out, nil
}

func (s *BlobStore) Get(ctx context.Context, id string) (models.Event, error) {
	events, err := s.List(ctx)
	if err != nil {
		return models.Event{}, err
	}
	i := indexOf(events, id)
	if i < 0 {
		return models.Event{}, errs.NotFound("event %s", id)
	}
	return events[i], nil
}

// mutate runs fn over the decoded collection inside one atomic write.
func (s *BlobStore) mutate(ctx context.Context, fn func([]models.Event) ([]models.Event, error)) error {
	err := s.blob.Update(ctx, s.key, func(cur []byte, exists bool) ([]byte, error) {
		events := s.seedCopy()
		if exists {
			var err error
			if events, err = decode(cur); err != nil {
				return nil, err
			}
		}
		next, err := fn(events)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
	return errs.Classify(err)
}

// mutateOne applies fn to the event with the given id.
func (s *BlobStore) mutateOne(ctx context.Context, id string, fn func(models.Event) (models.Event, error)) (models.Event, error) {
	var result models.Event
	err := s.mutate(ctx, func(events []models.Event) ([]models.Event, error) {
		i := indexOf(events, id)
		if i < 0 {
			return nil, errs.NotFound("event %s", id)
		}
		next, err := fn(events[i])
		if err != nil {
			return nil, err
		}
		events[i] = next
		result = next
		return events, nil
	})
	if err != nil {
		return models.Event{}, err
	}
	return result, nil
}

func (s *BlobStore) Create(ctx context.Context, e models.Event) (models.Event, error) {
	e = normalize(e)
	err := s.mutate(ctx, func(events []models.Event) ([]models.Event, error) {
		if indexOf(events, e.ID) >= 0 {
			return nil, errs.Conflict("event id %s already exists", e.ID)
		}
		return append([]models.Event{e}, events...), nil
	})
	if err != nil {
		return models.Event{}, err
	}
	return e, nil
}

func (s *BlobStore) Update(ctx context.Context, id string, patch models.EventPatch) (models.Event, error) {
	return s.mutateOne(ctx, id, func(e models.Event) (models.Event, error) {
		return applyPatch(e, patch)
	})
}

func (s *BlobStore) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func(events []models.Event) ([]models.Event, error) {
		i := indexOf(events, id)
		if i < 0 {
			return nil, errs.NotFound("event %s", id)
		}
		return append(events[:i], events[i+1:]...), nil
	})
}

func (s *BlobStore) AppendParticipant(ctx context.Context, id string, p models.Participant) (models.Event, error) {
	return s.mutateOne(ctx, id, func(e models.Event) (models.Event, error) {
		return appendParticipant(e, p)
	})
}

func (s *BlobStore) CancelParticipant(ctx context.Context, id, participantID string, entry models.CancellationLog) (models.Event, error) {
	return s.mutateOne(ctx, id, func(e models.Event) (models.Event, error) {
		return cancelParticipant(e, participantID, entry)
	})
}

func (s *BlobStore) RemoveParticipant(ctx context.Context, id, participantID string) (models.Event, error) {
	return s.mutateOne(ctx, id, func(e models.Event) (models.Event, error) {
		return removeParticipant(e, participantID)
	})
}

func (s *BlobStore) ToggleWish(ctx context.Context, id, viewerID string) (models.Event, error) {
	return s.mutateOne(ctx, id, func(e models.Event) (models.Event, error) {
		return toggleWish(e, viewerID), nil
	})
}
