package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"dinoevent/errs"
	"dinoevent/models"
	"dinoevent/store"
)

var (
	taipei = time.FixedZone("CST", 8*3600)
	now    = time.Date(2024, 11, 1, 12, 0, 0, 0, taipei)

	admin = models.Session{ViewerID: "leader", Role: models.RoleAdmin}
	guest = models.Session{ViewerID: "v-guest", Role: models.RoleGuest}
	other = models.Session{ViewerID: "v-other", Role: models.RoleGuest}
)

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) Changed(context.Context) {
	n.mu.Lock()
	n.count++
	n.mu.Unlock()
}

func (n *countingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func newService(t *testing.T) (*Service, *countingNotifier) {
	t.Helper()
	n := &countingNotifier{}
	svc := NewService(store.NewBlobStore(store.NewMemoryBlob(), store.Key, nil), Options{
		Notifier: n,
		Location: taipei,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Clock:    func() time.Time { return now },
	})
	return svc, n
}

func draft(max *int) models.EventDraft {
	return models.EventDraft{
		Title:           "  Dino Walk ",
		DateTime:        "2024-11-12T19:30",
		LocationName:    "Park",
		MaxParticipants: max,
	}
}

func mustCreate(t *testing.T, svc *Service, d models.EventDraft) string {
	t.Helper()
	v, err := svc.CreateEvent(context.Background(), admin, d)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return v.ID
}

func TestCreateEvent(t *testing.T) {
	svc, n := newService(t)

	if _, err := svc.CreateEvent(context.Background(), guest, draft(nil)); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("guest create: %v", err)
	}

	cases := map[string]func(*models.EventDraft){
		"missing title":    func(d *models.EventDraft) { d.Title = "   " },
		"missing date":     func(d *models.EventDraft) { d.DateTime = "" },
		"missing location": func(d *models.EventDraft) { d.LocationName = "" },
		"bad date":         func(d *models.EventDraft) { d.DateTime = "next tuesday" },
		"zero capacity":    func(d *models.EventDraft) { d.MaxParticipants = intp(0) },
		"negative cost":    func(d *models.EventDraft) { d.Cost = intp(-1) },
		"bad link":         func(d *models.EventDraft) { d.LocationLink = "javascript:alert(1)" },
	}
	for name, mutate := range cases {
		d := draft(nil)
		mutate(&d)
		if _, err := svc.CreateEvent(context.Background(), admin, d); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
	if n.Count() != 0 {
		t.Fatalf("rejected creates notified %d times", n.Count())
	}

	v, err := svc.CreateEvent(context.Background(), admin, draft(intp(2)))
	if err != nil {
		t.Fatal(err)
	}
	if v.ID == "" || v.Title != "Dino Walk" || v.AuthorID != "leader" || v.CreatedAt != now.UnixMilli() {
		t.Fatalf("created view: %+v", v)
	}
	if v.Participants == nil || v.Cancellations == nil {
		t.Error("new events should start with empty collections")
	}
	if !v.Upcoming || v.DisplayTime != "11/12 (Tue) 19:30" {
		t.Errorf("derived fields: upcoming=%v display=%q", v.Upcoming, v.DisplayTime)
	}
	if n.Count() != 1 {
		t.Errorf("notified %d times, want 1", n.Count())
	}
}

func TestJoinScenario(t *testing.T) {
	svc, _ := newService(t)
	id := mustCreate(t, svc, draft(intp(2)))
	ctx := context.Background()

	v, err := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex"})
	if err != nil {
		t.Fatal(err)
	}
	if v.ParticipantCount != 1 || v.IsFull {
		t.Fatalf("after Rex: count=%d full=%v", v.ParticipantCount, v.IsFull)
	}

	v, err = svc.JoinEvent(ctx, other, id, JoinRequest{Name: "Trike"})
	if err != nil {
		t.Fatal(err)
	}
	if v.ParticipantCount != 2 || !v.IsFull {
		t.Fatalf("after Trike: count=%d full=%v", v.ParticipantCount, v.IsFull)
	}

	if _, err := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Bronto"}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("Bronto: expected conflict, got %v", err)
	}
	v, _ = svc.GetEvent(ctx, guest, id)
	if v.ParticipantCount != 2 {
		t.Fatalf("count after rejected join = %d", v.ParticipantCount)
	}
	if v.Participants[0].Name != "Rex" || v.Participants[1].Name != "Trike" {
		t.Errorf("registration order lost: %+v", v.Participants)
	}
}

func TestJoinValidation(t *testing.T) {
	svc, n := newService(t)
	id := mustCreate(t, svc, draft(nil))
	ctx := context.Background()
	before := n.Count()

	if _, err := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "   "}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("blank name: %v", err)
	}
	if _, err := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex", DonationAmount: intp(50)}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("donation without donations enabled: %v", err)
	}
	if _, err := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex", DonationAmount: intp(-5)}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("negative donation: %v", err)
	}
	if _, err := svc.JoinEvent(ctx, guest, "missing", JoinRequest{Name: "Rex"}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("missing event: %v", err)
	}
	if n.Count() != before {
		t.Error("rejected joins should not notify")
	}

	past := draft(nil)
	past.DateTime = "2024-10-01T10:00"
	pastID := mustCreate(t, svc, past)
	if _, err := svc.JoinEvent(ctx, guest, pastID, JoinRequest{Name: "Rex"}); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("past event: %v", err)
	}
}

func TestDonations(t *testing.T) {
	svc, _ := newService(t)
	d := draft(nil)
	d.EnableDonation = true
	d.FundraisingGoal = intp(500)
	id := mustCreate(t, svc, d)
	ctx := context.Background()

	svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex", DonationAmount: intp(100)})
	v, err := svc.JoinEvent(ctx, other, id, JoinRequest{Name: "Trike", DonationAmount: intp(250)})
	if err != nil {
		t.Fatal(err)
	}
	if v.DonationTotal != 350 || v.DonationPercentage == nil || *v.DonationPercentage != 70 {
		t.Fatalf("donations: total=%d pct=%v", v.DonationTotal, v.DonationPercentage)
	}
	if v.TotalRevenue != nil {
		t.Error("guests should not see total revenue")
	}

	av, _ := svc.GetEvent(ctx, admin, id)
	if av.TotalRevenue == nil || *av.TotalRevenue != 350 {
		t.Errorf("admin total revenue = %v", av.TotalRevenue)
	}
}

func TestAmountBounds(t *testing.T) {
	svc, _ := newService(t)
	d := draft(intp(MaxCapacity))
	d.EnableDonation = true
	d.FundraisingGoal = intp(MaxAmount)
	d.Cost = intp(MaxAmount)
	id := mustCreate(t, svc, d)
	ctx := context.Background()

	if _, err := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex", DonationAmount: intp(math.MaxInt)}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("huge donation: %v", err)
	}
	if _, err := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex", DonationAmount: intp(MaxAmount)}); err != nil {
		t.Fatalf("donation at bound: %v", err)
	}
	v, err := svc.JoinEvent(ctx, other, id, JoinRequest{Name: "Trike", DonationAmount: intp(2)})
	if err != nil {
		t.Fatal(err)
	}
	if v.DonationTotal != MaxAmount+2 {
		t.Errorf("donationTotal = %d", v.DonationTotal)
	}
	if v.DonationPercentage == nil || *v.DonationPercentage != 100 {
		t.Errorf("donationPercentage = %v", v.DonationPercentage)
	}
	av, _ := svc.GetEvent(ctx, admin, id)
	if want := MaxAmount + 2 + 2*MaxAmount; av.TotalRevenue == nil || *av.TotalRevenue != want {
		t.Errorf("totalRevenue = %v, want %d", av.TotalRevenue, want)
	}

	tooBig := map[string]func(*models.EventDraft){
		"capacity": func(d *models.EventDraft) { d.MaxParticipants = intp(2_000_000_000) },
		"cost":     func(d *models.EventDraft) { d.Cost = intp(math.MaxInt) },
		"goal":     func(d *models.EventDraft) { d.FundraisingGoal = intp(MaxAmount + 1) },
	}
	for name, mutate := range tooBig {
		d := draft(nil)
		mutate(&d)
		if _, err := svc.CreateEvent(ctx, admin, d); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("create with %s over bound: %v", name, err)
		}
	}
	patches := map[string]models.EventPatch{
		"capacity": {MaxParticipants: intp(MaxCapacity + 1)},
		"cost":     {Cost: intp(MaxAmount + 1)},
		"goal":     {FundraisingGoal: intp(math.MaxInt)},
	}
	for name, p := range patches {
		if _, err := svc.UpdateEvent(ctx, admin, id, p); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("update with %s over bound: %v", name, err)
		}
	}
}

func TestCancelRegistration(t *testing.T) {
	svc, _ := newService(t)
	id := mustCreate(t, svc, draft(nil))
	ctx := context.Background()

	v, _ := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex"})
	pid := v.Participants[0].ID

	if _, err := svc.CancelRegistration(ctx, guest, id, pid, "  "); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty reason: %v", err)
	}
	v, _ = svc.GetEvent(ctx, admin, id)
	if len(v.Participants) != 1 || len(v.Cancellations) != 0 {
		t.Fatalf("failed cancel changed state: %+v", v.Event)
	}

	if _, err := svc.CancelRegistration(ctx, other, id, pid, "not mine"); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("foreign cancel: %v", err)
	}

	v, err := svc.CancelRegistration(ctx, guest, id, pid, " feeling sick ")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Participants) != 0 || len(v.Cancellations) != 1 {
		t.Fatalf("after cancel: %+v", v.Event)
	}
	c := v.Cancellations[0]
	if c.ParticipantName != "Rex" || c.Reason != "feeling sick" || c.Timestamp != now.UnixMilli() {
		t.Errorf("log entry: %+v", c)
	}

	if _, err := svc.CancelRegistration(ctx, admin, id, pid, "again"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second cancel: %v", err)
	}
}

func TestAdminOperations(t *testing.T) {
	svc, _ := newService(t)
	id := mustCreate(t, svc, draft(intp(3)))
	ctx := context.Background()
	v, _ := svc.JoinEvent(ctx, guest, id, JoinRequest{Name: "Rex"})
	svc.JoinEvent(ctx, other, id, JoinRequest{Name: "Trike"})
	pid := v.Participants[0].ID

	if _, err := svc.RemoveParticipant(ctx, guest, id, pid); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("guest remove: %v", err)
	}
	v, err := svc.RemoveParticipant(ctx, admin, id, pid)
	if err != nil {
		t.Fatal(err)
	}
	if len(v.Participants) != 1 || len(v.Cancellations) != 0 {
		t.Fatalf("after remove: %+v", v.Event)
	}

	if _, err := svc.UpdateEvent(ctx, guest, id, models.EventPatch{Title: strp("x")}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("guest update: %v", err)
	}
	if _, err := svc.UpdateEvent(ctx, admin, id, models.EventPatch{Title: strp(" ")}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("blank title: %v", err)
	}
	v, err = svc.UpdateEvent(ctx, admin, id, models.EventPatch{Title: strp("Night Walk"), Cost: intp(100)})
	if err != nil {
		t.Fatal(err)
	}
	if v.Title != "Night Walk" || v.CostRevenue != 100 {
		t.Fatalf("after update: title=%q costRevenue=%d", v.Title, v.CostRevenue)
	}

	v, err = svc.UpdateEvent(ctx, admin, id, models.EventPatch{Cost: intp(0)})
	if err != nil {
		t.Fatal(err)
	}
	if v.Cost == nil || *v.Cost != 0 || v.CostRevenue != 0 {
		t.Fatalf("zero cost should be kept as a free event: cost=%v", v.Cost)
	}

	if err := svc.DeleteEvent(ctx, guest, id); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("guest delete: %v", err)
	}
	if err := svc.DeleteEvent(ctx, admin, id); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteEvent(ctx, admin, id); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestToggleWish(t *testing.T) {
	svc, _ := newService(t)
	id := mustCreate(t, svc, draft(nil))
	ctx := context.Background()

	if _, err := svc.ToggleWish(ctx, models.Session{Role: models.RoleGuest}, id); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("anonymous wish: %v", err)
	}

	v, err := svc.ToggleWish(ctx, guest, id)
	if err != nil {
		t.Fatal(err)
	}
	if !v.HasWished || v.WishCount != 1 || v.Wishers != nil {
		t.Fatalf("after wish: hasWished=%v count=%d wishers=%v", v.HasWished, v.WishCount, v.Wishers)
	}
	v, _ = svc.ToggleWish(ctx, guest, id)
	if v.HasWished || v.WishCount != 0 {
		t.Fatalf("after unwish: hasWished=%v count=%d", v.HasWished, v.WishCount)
	}
}

func TestUpcomingFlipsWithoutWrite(t *testing.T) {
	svc, _ := newService(t)
	mustCreate(t, svc, draft(nil))

	l, err := svc.ListEvents(context.Background(), guest)
	if err != nil {
		t.Fatal(err)
	}
	if len(l.Upcoming) != 1 || len(l.Past) != 0 {
		t.Fatalf("before: %d upcoming, %d past", len(l.Upcoming), len(l.Past))
	}

	svc.clock = func() time.Time { return now.Add(30 * 24 * time.Hour) }
	l, _ = svc.ListEvents(context.Background(), guest)
	if len(l.Upcoming) != 0 || len(l.Past) != 1 {
		t.Fatalf("after: %d upcoming, %d past", len(l.Upcoming), len(l.Past))
	}
}
