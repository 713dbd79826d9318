// Package events applies the role-gated mutation rules on top of a Store
// and serves them over HTTP.
package events

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dinoevent/derive"
	"dinoevent/errs"
	"dinoevent/models"
	"dinoevent/store"
	"dinoevent/utils"
)

const DefaultTimeout = 5 * time.Second

// Notifier is told after every committed write. Implementations must not
// block the caller for long.
type Notifier interface {
	Changed(ctx context.Context)
}

// Notifiers fans a change out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Changed(ctx context.Context) {
	for _, n := range ns {
		n.Changed(ctx)
	}
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context)

func (f NotifierFunc) Changed(ctx context.Context) { f(ctx) }

type nopNotifier struct{}

func (nopNotifier) Changed(context.Context) {}

type Options struct {
	Notifier Notifier
	Location *time.Location
	Timeout  time.Duration
	Logger   *slog.Logger
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

type Service struct {
	store    store.Store
	notifier Notifier
	loc      *time.Location
	timeout  time.Duration
	logger   *slog.Logger
	clock    func() time.Time
}

func NewService(st store.Store, opts Options) *Service {
	s := &Service{
		store:    st,
		notifier: opts.Notifier,
		loc:      opts.Location,
		timeout:  opts.Timeout,
		logger:   opts.Logger,
		clock:    opts.Clock,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	return s
}

// Now is the current time in the configured zone. Event wall-clock times
// are interpreted in the same zone.
func (s *Service) Now() time.Time {
	return s.clock().In(s.loc)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// fail logs backend failures; rule violations are only worth a debug line.
func (s *Service) fail(op string, err error, attrs ...any) error {
	attrs = append(attrs, "op", op, "err", err)
	if errors.Is(err, errs.ErrStoreUnavailable) || errors.Is(err, errs.ErrTimeout) {
		s.logger.Error("store operation failed", attrs...)
	} else {
		s.logger.Debug("operation rejected", attrs...)
	}
	return err
}

func (s *Service) changed(ctx context.Context) {
	s.notifier.Changed(context.WithoutCancel(ctx))
}

func requireAdmin(sess models.Session, action string) error {
	if !sess.IsAdmin() {
		return errs.Forbidden("only admins can %s", action)
	}
	return nil
}

// Snapshot returns the raw collection for broadcasting.
func (s *Service) Snapshot(ctx context.Context) ([]models.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	events, err := s.store.List(ctx)
	if err != nil {
		return nil, s.fail("snapshot", err)
	}
	return events, nil
}

func (s *Service) ListEvents(ctx context.Context, sess models.Session) (derive.Listing, error) {
	events, err := s.Snapshot(ctx)
	if err != nil {
		return derive.Listing{}, err
	}
	return derive.BuildListing(events, s.Now(), sess), nil
}

// Event returns the stored record without derived fields.
func (s *Service) Event(ctx context.Context, id string) (models.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Event{}, s.fail("get", err, "event", id)
	}
	return e, nil
}

func (s *Service) GetEvent(ctx context.Context, sess models.Session, id string) (derive.View, error) {
	e, err := s.Event(ctx, id)
	if err != nil {
		return derive.View{}, err
	}
	return derive.Build(e, s.Now(), sess), nil
}

func (s *Service) CreateEvent(ctx context.Context, sess models.Session, draft models.EventDraft) (derive.View, error) {
	if err := requireAdmin(sess, "create events"); err != nil {
		return derive.View{}, err
	}
	draft = trimDraft(draft)
	if err := validateDraft(draft, s.loc); err != nil {
		return derive.View{}, err
	}

	now := s.Now()
	e := models.Event{
		ID:              utils.GetUUID(),
		Title:           draft.Title,
		DateTime:        draft.DateTime,
		LocationName:    draft.LocationName,
		LocationAddress: draft.LocationAddress,
		LocationLink:    draft.LocationLink,
		Content:         draft.Content,
		Note:            draft.Note,
		MaxParticipants: draft.MaxParticipants,
		Cost:            draft.Cost,
		EnableDonation:  draft.EnableDonation,
		FundraisingGoal: draft.FundraisingGoal,
		Participants:    []models.Participant{},
		Cancellations:   []models.CancellationLog{},
		Wishers:         []string{},
		CreatedAt:       now.UnixMilli(),
		AuthorID:        sess.ViewerID,
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	created, err := s.store.Create(ctx, e)
	if err != nil {
		return derive.View{}, s.fail("create", err, "event", e.ID)
	}
	s.logger.Info("event created", "event", created.ID, "title", created.Title)
	s.changed(ctx)
	return derive.Build(created, now, sess), nil
}

func (s *Service) UpdateEvent(ctx context.Context, sess models.Session, id string, patch models.EventPatch) (derive.View, error) {
	if err := requireAdmin(sess, "edit events"); err != nil {
		return derive.View{}, err
	}
	patch = trimPatch(patch)
	if err := validatePatch(patch, s.loc); err != nil {
		return derive.View{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return derive.View{}, s.fail("update", err, "event", id)
	}
	if !patch.IsEmpty() {
		s.changed(ctx)
	}
	return derive.Build(updated, s.Now(), sess), nil
}

func (s *Service) DeleteEvent(ctx context.Context, sess models.Session, id string) error {
	if err := requireAdmin(sess, "delete events"); err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.store.Delete(ctx, id); err != nil {
		return s.fail("delete", err, "event", id)
	}
	s.logger.Info("event deleted", "event", id)
	s.changed(ctx)
	return nil
}

// JoinEvent registers a participant. Capacity is enforced by the store at
// write time; the checks here only give earlier, clearer errors.
func (s *Service) JoinEvent(ctx context.Context, sess models.Session, id string, req JoinRequest) (derive.View, error) {
	req = req.trimmed()
	if err := req.validate(); err != nil {
		return derive.View{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return derive.View{}, s.fail("join", err, "event", id)
	}
	now := s.Now()
	if !derive.IsUpcoming(e, now) {
		return derive.View{}, errs.Validation("event %s has already started", id)
	}
	if req.DonationAmount != nil && *req.DonationAmount > 0 && !e.EnableDonation {
		return derive.View{}, errs.Validation("event %s does not take donations", id)
	}
	if derive.IsFull(e) {
		return derive.View{}, errs.Conflict("event %s is full", id)
	}

	p := models.Participant{
		ID:       utils.GetUUID(),
		Name:     req.Name,
		Note:     req.Note,
		ViewerID: sess.ViewerID,
	}
	if req.DonationAmount != nil && *req.DonationAmount > 0 {
		amount := *req.DonationAmount
		p.DonationAmount = &amount
	}

	updated, err := s.store.AppendParticipant(ctx, id, p)
	if err != nil {
		return derive.View{}, s.fail("join", err, "event", id)
	}
	s.logger.Info("participant joined", "event", id, "participant", p.ID)
	s.changed(ctx)
	return derive.Build(updated, now, sess), nil
}

// CancelRegistration removes a participant and records why. Admins may
// cancel anyone; guests only registrations made from their own session.
func (s *Service) CancelRegistration(ctx context.Context, sess models.Session, id, participantID, reason string) (derive.View, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return derive.View{}, errs.Validation("reason is required")
	}
	if err := checkLen("reason", reason, maxTextLen); err != nil {
		return derive.View{}, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return derive.View{}, s.fail("cancel", err, "event", id)
	}
	i := e.FindParticipant(participantID)
	if i < 0 {
		return derive.View{}, errs.NotFound("participant %s", participantID)
	}
	p := e.Participants[i]
	if !sess.IsAdmin() && (sess.ViewerID == "" || p.ViewerID != sess.ViewerID) {
		return derive.View{}, errs.Forbidden("only the registering session or an admin can cancel %s", participantID)
	}

	now := s.Now()
	entry := models.CancellationLog{
		ParticipantID:   p.ID,
		ParticipantName: p.Name,
		Reason:          reason,
		Timestamp:       now.UnixMilli(),
	}
	updated, err := s.store.CancelParticipant(ctx, id, participantID, entry)
	if err != nil {
		return derive.View{}, s.fail("cancel", err, "event", id, "participant", participantID)
	}
	s.logger.Info("registration canceled", "event", id, "participant", participantID)
	s.changed(ctx)
	return derive.Build(updated, now, sess), nil
}

func (s *Service) RemoveParticipant(ctx context.Context, sess models.Session, id, participantID string) (derive.View, error) {
	if err := requireAdmin(sess, "remove participants"); err != nil {
		return derive.View{}, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	updated, err := s.store.RemoveParticipant(ctx, id, participantID)
	if err != nil {
		return derive.View{}, s.fail("remove", err, "event", id, "participant", participantID)
	}
	s.logger.Info("participant removed", "event", id, "participant", participantID)
	s.changed(ctx)
	return derive.Build(updated, s.Now(), sess), nil
}

// ToggleWish flips the viewer's interest marker.
func (s *Service) ToggleWish(ctx context.Context, sess models.Session, id string) (derive.View, error) {
	if sess.ViewerID == "" {
		return derive.View{}, errs.Validation("a session is required to mark interest")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	updated, err := s.store.ToggleWish(ctx, id, sess.ViewerID)
	if err != nil {
		return derive.View{}, s.fail("wish", err, "event", id)
	}
	s.changed(ctx)
	return derive.Build(updated, s.Now(), sess), nil
}
