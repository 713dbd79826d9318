package share

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"dinoevent/derive"
	"dinoevent/models"
)

// WriteRosterPDF renders a printable sign-in sheet for e with a QR code
// pointing at link. Core PDF fonts only cover cp1252, so names outside it
// print as substitution characters.
func WriteRosterPDF(w io.Writer, e models.Event, loc *time.Location, link string) error {
	qrPNG, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(e.Title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(140, 9, tr(e.Title), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 7, tr("Time: "+derive.FormatLocalTime(e.DateTime, loc)))
	pdf.Ln(7)
	pdf.Cell(0, 7, tr("Place: "+Location(e)))
	pdf.Ln(7)

	count := derive.ParticipantCount(e)
	capacity := "open"
	if e.MaxParticipants != nil {
		capacity = fmt.Sprintf("%d", *e.MaxParticipants)
	}
	pdf.Cell(0, 7, fmt.Sprintf("Registered: %d / %s", count, capacity))
	pdf.Ln(7)
	if e.Cost != nil {
		pdf.Cell(0, 7, fmt.Sprintf("Fee: %d per person", *e.Cost))
		pdf.Ln(7)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 10, 40, 40, false, imageOpts, 0, "")

	pdf.SetY(55)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(12, 8, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 8, "Name", "1", 0, "L", false, 0, "")
	pdf.CellFormat(70, 8, "Note", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Paid", "1", 0, "R", false, 0, "")
	pdf.CellFormat(20, 8, "Here", "1", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for i, p := range e.Participants {
		paid := ""
		if p.DonationAmount != nil && *p.DonationAmount > 0 {
			paid = fmt.Sprintf("%d", *p.DonationAmount)
		}
		pdf.CellFormat(12, 8, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 8, tr(p.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 8, tr(p.Note), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, paid, "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 8, "", "1", 1, "C", false, 0, "")
	}
	if left, ok := derive.RemainingSpots(e); ok {
		for i := 0; i < min(left, MaxBlankSlots); i++ {
			pdf.CellFormat(12, 8, fmt.Sprintf("%d", count+i+1), "1", 0, "C", false, 0, "")
			pdf.CellFormat(60, 8, "", "1", 0, "L", false, 0, "")
			pdf.CellFormat(70, 8, "", "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 8, "", "1", 0, "R", false, 0, "")
			pdf.CellFormat(20, 8, "", "1", 1, "C", false, 0, "")
		}
	}

	if e.EnableDonation {
		pdf.Ln(4)
		summary := fmt.Sprintf("Donations: %d", derive.DonationTotal(e))
		if pct, ok := derive.DonationPercentage(e); ok {
			summary += fmt.Sprintf(" of %d (%.0f%%)", *e.FundraisingGoal, pct)
		}
		pdf.Cell(0, 7, summary)
		pdf.Ln(7)
	}

	return pdf.Output(w)
}
