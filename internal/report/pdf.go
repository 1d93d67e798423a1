package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"grindlog/internal/appinfo"
	"grindlog/internal/digest"
)

const (
	pdfMargin     = 18.0
	pdfLineHeight = 6.0
)

// PDFRenderer lays the report out as an A4 document using the core
// Helvetica font; text outside cp1252 is transliterated by fpdf.
type PDFRenderer struct{}

func (PDFRenderer) Render(ctx context.Context, in digest.RenderInput) (digest.Document, error) {
	title := Title(in.Recipient)
	at := generatedAt(in)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator(appinfo.Display(), true)
	pdf.SetCreationDate(at)
	pdf.SetModificationDate(at)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(44, 62, 80)
	pdf.MultiCell(0, 10, tr(title), "", "L", false)
	pageW, _ := pdf.GetPageSize()
	y := pdf.GetY() + 1
	pdf.SetDrawColor(52, 152, 219)
	pdf.SetLineWidth(0.6)
	pdf.Line(pdfMargin, y, pageW-pdfMargin, y)
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.MultiCell(0, 8, tr(Greeting(in)), "", "L", false)
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(0, pdfLineHeight, tr(fmt.Sprintf("Total questions solved: %d", len(in.Items))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	if narrative := PlainText(in.Narrative); narrative != "" {
		pdf.SetFillColor(232, 244, 253)
		pdf.MultiCell(0, pdfLineHeight, tr(narrative), "L", "L", true)
		pdf.Ln(5)
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(44, 62, 80)
	pdf.CellFormat(0, 8, "Solved Questions:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(51, 51, 51)
	for _, item := range in.Items {
		line := item.Title
		if item.Platform != "" {
			line += " (" + item.Platform + ")"
		}
		if label := solvedAtLabel(in, item.SolvedAt); label != "" {
			line += "  " + label
		}
		pdf.CellFormat(0, pdfLineHeight+1, tr("- "+line), "", 1, "L", false, 0, strings.TrimSpace(item.URL))
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(138, 138, 138)
	pdf.CellFormat(0, 5, tr(footer(in)), "T", 1, "L", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return digest.Document{}, fmt.Errorf("render pdf report: %w", err)
	}
	return digest.Document{
		Name:        FileName(at, "pdf"),
		ContentType: "application/pdf",
		Title:       title,
		Data:        out.Bytes(),
	}, nil
}
