package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/inksign/inksign/backend/go-services/internal/document"
	"github.com/phpdave11/gofpdf"
)

// Party is a display name/email pair printed on the summary.
type Party struct {
	Name  string
	Email string
}

func (p Party) String() string {
	if p.Name == "" {
		return p.Email
	}
	return fmt.Sprintf("%s <%s>", p.Name, p.Email)
}

// SummaryPDF renders a one-page overview of a signature request. It stands
// in for a preview of the uploaded file, whose content is not kept.
func SummaryPDF(d *document.Document, sender, recipient Party) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(d.Title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, d.Title)
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.Cell(40, 7, label)
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, value)
		pdf.Ln(7)
	}
	row("Document ID", d.ID)
	row("Status", d.Status.String())
	row("From", sender.String())
	row("To", recipient.String())
	row("Requested", d.RequestedAt.UTC().Format(time.RFC1123))
	if d.SignedAt != nil {
		row("Signed", d.SignedAt.UTC().Format(time.RFC1123))
	} else {
		row("Signed", "-")
	}
	if d.FileName != nil {
		ft := ""
		if d.FileType != nil {
			ft = " (" + *d.FileType + ")"
		}
		row("File", *d.FileName+ft)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, statusNote(d.Status), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func statusNote(s document.Status) string {
	switch s {
	case document.StatusPending:
		return "Waiting for the recipient to review and sign."
	case document.StatusSigned:
		return "Signed by the recipient. Waiting for the sender to complete."
	case document.StatusCompleted:
		return "Completed."
	}
	return "Unknown status."
}
