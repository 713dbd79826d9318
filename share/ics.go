package share

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"dinoevent/derive"
	"dinoevent/models"
)

const productID = "-//dinoevent//EN"

// ToICal converts e into a VEVENT. Participants become attendees addressed
// by their participant id since the app never collects email addresses.
func ToICal(e models.Event, loc *time.Location, stamp time.Time) (*ical.Component, error) {
	start, ok := derive.ParseDateTime(e.DateTime, loc)
	if !ok {
		return nil, fmt.Errorf("event %s has no usable start time %q", e.ID, e.DateTime)
	}

	ve := ical.NewComponent(ical.CompEvent)
	ve.Props.SetText(ical.PropUID, e.ID+"@dinoevent")
	ve.Props.SetText(ical.PropSummary, Marker+e.Title)
	ve.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeStart, start.UTC())
	ve.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(DefaultDuration).UTC())
	ve.Props.SetText(ical.PropDescription, CalendarDetails(e))
	ve.Props.SetText(ical.PropLocation, Location(e))
	if e.LocationLink != "" {
		ve.Props.SetText(ical.PropURL, e.LocationLink)
	}

	for _, p := range e.Participants {
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "urn:dinoevent:participant:" + p.ID
		prop.Params.Set(ical.ParamCommonName, p.Name)
		ve.Props.Add(prop)
	}
	return ve, nil
}

// WriteICS encodes a single-event calendar to w.
func WriteICS(w io.Writer, e models.Event, loc *time.Location, stamp time.Time) error {
	ve, err := ToICal(e, loc, stamp)
	if err != nil {
		return err
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Children = append(cal.Children, ve)

	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode event %s to iCal: %w", e.ID, err)
	}
	return nil
}
