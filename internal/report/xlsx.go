package report

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"grindlog/internal/digest"
)

const (
	summarySheet = "Summary"
	solvedSheet  = "Solved"
)

var (
	blockTagRe = regexp.MustCompile(`(?i)</?(p|h[1-6]|li|ul|ol|br|div)[^>]*>`)
	anyTagRe   = regexp.MustCompile(`<[^>]+>`)
)

// XLSXRenderer writes the report as a two-sheet workbook: a summary with the
// narrative and a table of solved items.
type XLSXRenderer struct{}

func (XLSXRenderer) Render(ctx context.Context, in digest.RenderInput) (digest.Document, error) {
	f := excelize.NewFile()
	defer f.Close()

	index := f.GetActiveSheetIndex()
	if err := f.SetSheetName(f.GetSheetName(index), summarySheet); err != nil {
		return digest.Document{}, err
	}
	if err := writeSummary(f, in); err != nil {
		return digest.Document{}, fmt.Errorf("write summary sheet: %w", err)
	}
	if _, err := f.NewSheet(solvedSheet); err != nil {
		return digest.Document{}, err
	}
	if err := writeSolved(f, in.Items, in.Window.Start.Location()); err != nil {
		return digest.Document{}, fmt.Errorf("write solved sheet: %w", err)
	}
	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return digest.Document{}, fmt.Errorf("encode workbook: %w", err)
	}
	return digest.Document{
		Name:        FileName(generatedAt(in), "xlsx"),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Title:       Title(in.Recipient),
		Data:        buf.Bytes(),
	}, nil
}

func writeSummary(f *excelize.File, in digest.RenderInput) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return err
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return err
	}
	rows := [][2]any{
		{"Report", Title(in.Recipient)},
		{"Period", period(in.Period)},
		{"Window", fmt.Sprintf("%s .. %s", in.Window.Start.Format(time.RFC3339), in.Window.End.Format(time.RFC3339))},
		{"Total solved", len(in.Items)},
		{"Analysis", PlainText(in.Narrative)},
	}
	for i, row := range rows {
		r := i + 1
		if err := f.SetCellValue(summarySheet, cell(1, r), row[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(summarySheet, cell(2, r), row[1]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	last := cell(2, len(rows))
	if err := f.SetCellStyle(summarySheet, last, last, wrap); err != nil {
		return err
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 16); err != nil {
		return err
	}
	return f.SetColWidth(summarySheet, "B", "B", 100)
}

func writeSolved(f *excelize.File, items []digest.SolvedItem, loc *time.Location) error {
	header := []any{"Title", "Platform", "URL", "Solved at"}
	if err := f.SetSheetRow(solvedSheet, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(solvedSheet, "A1", "D1", bold); err != nil {
		return err
	}
	for i, item := range items {
		r := i + 2
		solvedAt := ""
		if !item.SolvedAt.IsZero() {
			solvedAt = item.SolvedAt.In(loc).Format(time.RFC3339)
		}
		row := []any{item.Title, item.Platform, item.URL, solvedAt}
		if err := f.SetSheetRow(solvedSheet, cell(1, r), &row); err != nil {
			return err
		}
		if item.URL != "" {
			if err := f.SetCellHyperLink(solvedSheet, cell(3, r), item.URL, "External"); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(solvedSheet, "A", "A", 40); err != nil {
		return err
	}
	return f.SetColWidth(solvedSheet, "C", "C", 60)
}

func cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "A1"
	}
	return name
}

// PlainText flattens an HTML narrative into readable text.
func PlainText(narrative string) string {
	s := blockTagRe.ReplaceAllString(narrative, "\n")
	s = anyTagRe.ReplaceAllString(s, "")
	s = html.UnescapeString(s)
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
