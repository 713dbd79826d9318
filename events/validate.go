package events

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"dinoevent/derive"
	"dinoevent/errs"
	"dinoevent/models"
)

const (
	maxTitleLen = 120
	maxNameLen  = 60
	maxTextLen  = 4000

	// Upper bounds keep revenue sums far from int overflow and the roll
	// call text small.
	MaxCapacity = 1000
	MaxAmount   = 10_000_000
)

func checkMax(field string, v *int, max int) error {
	if v != nil && *v > max {
		return errs.Validation("%s must be at most %d", field, max)
	}
	return nil
}

func checkLen(field, v string, max int) error {
	if utf8.RuneCountInString(v) > max {
		return errs.Validation("%s is longer than %d characters", field, max)
	}
	return nil
}

func checkLink(v string) error {
	if v == "" {
		return nil
	}
	u, err := url.Parse(v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errs.Validation("locationLink must be an http(s) URL")
	}
	return nil
}

func checkDateTime(v string, loc *time.Location) error {
	if _, ok := derive.ParseDateTime(v, loc); !ok {
		return errs.Validation("dateTime %q is not a valid date and time", v)
	}
	return nil
}

// trimDraft trims every text field of d.
func trimDraft(d models.EventDraft) models.EventDraft {
	d.Title = strings.TrimSpace(d.Title)
	d.DateTime = strings.TrimSpace(d.DateTime)
	d.LocationName = strings.TrimSpace(d.LocationName)
	d.LocationAddress = strings.TrimSpace(d.LocationAddress)
	d.LocationLink = strings.TrimSpace(d.LocationLink)
	d.Content = strings.TrimSpace(d.Content)
	d.Note = strings.TrimSpace(d.Note)
	return d
}

func validateDraft(d models.EventDraft, loc *time.Location) error {
	switch {
	case d.Title == "":
		return errs.Validation("title is required")
	case d.DateTime == "":
		return errs.Validation("dateTime is required")
	case d.LocationName == "":
		return errs.Validation("locationName is required")
	}
	if err := checkDateTime(d.DateTime, loc); err != nil {
		return err
	}
	if err := checkLen("title", d.Title, maxTitleLen); err != nil {
		return err
	}
	for field, v := range map[string]string{"content": d.Content, "note": d.Note, "locationName": d.LocationName, "locationAddress": d.LocationAddress} {
		if err := checkLen(field, v, maxTextLen); err != nil {
			return err
		}
	}
	if err := checkLink(d.LocationLink); err != nil {
		return err
	}
	if d.MaxParticipants != nil && *d.MaxParticipants <= 0 {
		return errs.Validation("maxParticipants must be positive")
	}
	if d.Cost != nil && *d.Cost < 0 {
		return errs.Validation("cost must not be negative")
	}
	if d.FundraisingGoal != nil && *d.FundraisingGoal <= 0 {
		return errs.Validation("fundraisingGoal must be positive")
	}
	return checkBounds(d.MaxParticipants, d.Cost, d.FundraisingGoal)
}

func checkBounds(maxParticipants, cost, goal *int) error {
	if err := checkMax("maxParticipants", maxParticipants, MaxCapacity); err != nil {
		return err
	}
	if err := checkMax("cost", cost, MaxAmount); err != nil {
		return err
	}
	return checkMax("fundraisingGoal", goal, MaxAmount)
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

func trimPatch(p models.EventPatch) models.EventPatch {
	p.Title = trimPtr(p.Title)
	p.DateTime = trimPtr(p.DateTime)
	p.LocationName = trimPtr(p.LocationName)
	p.LocationAddress = trimPtr(p.LocationAddress)
	p.LocationLink = trimPtr(p.LocationLink)
	p.Content = trimPtr(p.Content)
	p.Note = trimPtr(p.Note)
	return p
}

// validatePatch checks the fields being changed. A zero clears
// maxParticipants or fundraisingGoal, so only negatives and values over
// the bounds are rejected here.
func validatePatch(p models.EventPatch, loc *time.Location) error {
	if p.Title != nil {
		if *p.Title == "" {
			return errs.Validation("title cannot be empty")
		}
		if err := checkLen("title", *p.Title, maxTitleLen); err != nil {
			return err
		}
	}
	if p.LocationName != nil && *p.LocationName == "" {
		return errs.Validation("locationName cannot be empty")
	}
	if p.DateTime != nil {
		if err := checkDateTime(*p.DateTime, loc); err != nil {
			return err
		}
	}
	for field, v := range map[string]*string{"content": p.Content, "note": p.Note, "locationName": p.LocationName, "locationAddress": p.LocationAddress} {
		if v == nil {
			continue
		}
		if err := checkLen(field, *v, maxTextLen); err != nil {
			return err
		}
	}
	if p.LocationLink != nil {
		if err := checkLink(*p.LocationLink); err != nil {
			return err
		}
	}
	for field, v := range map[string]*int{"maxParticipants": p.MaxParticipants, "cost": p.Cost, "fundraisingGoal": p.FundraisingGoal} {
		if v != nil && *v < 0 {
			return errs.Validation("%s must not be negative", field)
		}
	}
	return checkBounds(p.MaxParticipants, p.Cost, p.FundraisingGoal)
}

// JoinRequest is what a guest submits to register.
type JoinRequest struct {
	Name           string `json:"name"`
	Note           string `json:"note"`
	DonationAmount *int   `json:"donationAmount,omitempty"`
}

func (j JoinRequest) trimmed() JoinRequest {
	j.Name = strings.TrimSpace(j.Name)
	j.Note = strings.TrimSpace(j.Note)
	return j
}

// validate checks the request on its own, before the event is read.
func (j JoinRequest) validate() error {
	if j.Name == "" {
		return errs.Validation("name is required")
	}
	if err := checkLen("name", j.Name, maxNameLen); err != nil {
		return err
	}
	if err := checkLen("note", j.Note, maxTextLen); err != nil {
		return err
	}
	if j.DonationAmount != nil && *j.DonationAmount < 0 {
		return errs.Validation("donationAmount must not be negative")
	}
	return checkMax("donationAmount", j.DonationAmount, MaxAmount)
}
