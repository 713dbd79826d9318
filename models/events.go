package models

// Event is one planned gathering. Sub-collections are embedded so that
// deleting the document removes its participants and cancellations with it.
type Event struct {
	ID              string            `json:"id" bson:"id"`
	Title           string            `json:"title" bson:"title"`
	DateTime        string            `json:"dateTime" bson:"dateTime"`
	LocationName    string            `json:"locationName" bson:"locationName"`
	LocationAddress string            `json:"locationAddress,omitempty" bson:"locationAddress,omitempty"`
	LocationLink    string            `json:"locationLink,omitempty" bson:"locationLink,omitempty"`
	Content         string            `json:"content,omitempty" bson:"content,omitempty"`
	Note            string            `json:"note,omitempty" bson:"note,omitempty"`
	MaxParticipants *int              `json:"maxParticipants,omitempty" bson:"maxParticipants,omitempty"`
	Cost            *int              `json:"cost,omitempty" bson:"cost,omitempty"`
	EnableDonation  bool              `json:"enableDonation,omitempty" bson:"enableDonation,omitempty"`
	FundraisingGoal *int              `json:"fundraisingGoal,omitempty" bson:"fundraisingGoal,omitempty"`
	Participants    []Participant     `json:"participants" bson:"participants"`
	Cancellations   []CancellationLog `json:"cancellations" bson:"cancellations"`
	Wishers         []string          `json:"wishers" bson:"wishers"`
	CreatedAt       int64             `json:"createdAt" bson:"createdAt"` // unix millis
	AuthorID        string            `json:"authorId,omitempty" bson:"authorId,omitempty"`
}

// Participant is one registration. ViewerID is the session that registered it.
type Participant struct {
	ID             string `json:"id" bson:"id"`
	Name           string `json:"name" bson:"name"`
	Note           string `json:"note,omitempty" bson:"note,omitempty"`
	DonationAmount *int   `json:"donationAmount,omitempty" bson:"donationAmount,omitempty"`
	ViewerID       string `json:"viewerId,omitempty" bson:"viewerId,omitempty"`
}

// CancellationLog is an append-only audit entry.
type CancellationLog struct {
	ParticipantID   string `json:"participantId,omitempty" bson:"participantId,omitempty"`
	ParticipantName string `json:"participantName" bson:"participantName"`
	Reason          string `json:"reason" bson:"reason"`
	Timestamp       int64  `json:"timestamp" bson:"timestamp"` // unix millis
}

// EventDraft holds the organizer-supplied fields of a new event.
type EventDraft struct {
	Title           string `json:"title"`
	DateTime        string `json:"dateTime"`
	LocationName    string `json:"locationName"`
	LocationAddress string `json:"locationAddress"`
	LocationLink    string `json:"locationLink"`
	Content         string `json:"content"`
	Note            string `json:"note"`
	MaxParticipants *int   `json:"maxParticipants,omitempty"`
	Cost            *int   `json:"cost,omitempty"`
	EnableDonation  bool   `json:"enableDonation"`
	FundraisingGoal *int   `json:"fundraisingGoal,omitempty"`
}

// EventPatch is a partial change. Nil fields are left untouched; a zero
// value for MaxParticipants or FundraisingGoal clears the field, while a
// zero Cost is kept as a free event.
type EventPatch struct {
	Title           *string `json:"title,omitempty"`
	DateTime        *string `json:"dateTime,omitempty"`
	LocationName    *string `json:"locationName,omitempty"`
	LocationAddress *string `json:"locationAddress,omitempty"`
	LocationLink    *string `json:"locationLink,omitempty"`
	Content         *string `json:"content,omitempty"`
	Note            *string `json:"note,omitempty"`
	MaxParticipants *int    `json:"maxParticipants,omitempty"`
	Cost            *int    `json:"cost,omitempty"`
	EnableDonation  *bool   `json:"enableDonation,omitempty"`
	FundraisingGoal *int    `json:"fundraisingGoal,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p EventPatch) IsEmpty() bool {
	return p.Title == nil && p.DateTime == nil && p.LocationName == nil &&
		p.LocationAddress == nil && p.LocationLink == nil && p.Content == nil &&
		p.Note == nil && p.MaxParticipants == nil && p.Cost == nil &&
		p.EnableDonation == nil && p.FundraisingGoal == nil
}

// Apply returns a copy of e with the patch applied.
func (p EventPatch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.DateTime != nil {
		e.DateTime = *p.DateTime
	}
	if p.LocationName != nil {
		e.LocationName = *p.LocationName
	}
	if p.LocationAddress != nil {
		e.LocationAddress = *p.LocationAddress
	}
	if p.LocationLink != nil {
		e.LocationLink = *p.LocationLink
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	if p.MaxParticipants != nil {
		e.MaxParticipants = optional(*p.MaxParticipants)
	}
	if p.Cost != nil {
		e.Cost = cloneInt(p.Cost)
	}
	if p.EnableDonation != nil {
		e.EnableDonation = *p.EnableDonation
	}
	if p.FundraisingGoal != nil {
		e.FundraisingGoal = optional(*p.FundraisingGoal)
	}
	return e
}

func optional(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// Clone returns a deep copy so callers can mutate slices freely.
func (e Event) Clone() Event {
	out := e
	out.MaxParticipants = cloneInt(e.MaxParticipants)
	out.Cost = cloneInt(e.Cost)
	out.FundraisingGoal = cloneInt(e.FundraisingGoal)
	if e.Participants != nil {
		out.Participants = make([]Participant, len(e.Participants))
		for i, p := range e.Participants {
			p.DonationAmount = cloneInt(p.DonationAmount)
			out.Participants[i] = p
		}
	}
	if e.Cancellations != nil {
		out.Cancellations = append([]CancellationLog{}, e.Cancellations...)
	}
	if e.Wishers != nil {
		out.Wishers = append([]string{}, e.Wishers...)
	}
	return out
}

// FindParticipant returns the index of the participant with the given id, or -1.
func (e Event) FindParticipant(id string) int {
	for i, p := range e.Participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
