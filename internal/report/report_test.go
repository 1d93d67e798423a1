package report

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"grindlog/internal/digest"
)

func sampleInput() digest.RenderInput {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return digest.RenderInput{
		Recipient: digest.Recipient{DisplayName: "Alice", Address: "alice@example.com"},
		Items: []digest.SolvedItem{
			{Title: "Two Sum", Platform: "LeetCode", URL: "https://leetcode.com/problems/two-sum/", SolvedAt: start.Add(3 * time.Hour)},
			{Title: "Message Route", Platform: "CSES", URL: "https://cses.fi/problemset/task/1667"},
		},
		Narrative:   "<h3>Expert Analysis</h3><p>Solid <strong>progress</strong> yesterday.</p>",
		Window:      digest.TimeWindow{Start: start, End: start.AddDate(0, 0, 1)},
		Period:      "yesterday",
		GeneratedAt: time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
	}
}

func TestHTMLRendererContent(t *testing.T) {
	doc, err := HTMLRenderer{}.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Name != "daily-summary-2024-01-02.html" {
		t.Fatalf("unexpected name %q", doc.Name)
	}
	html := string(doc.Data)
	for _, want := range []string{
		"<!doctype html>",
		"Daily Progress Report for Alice",
		"Hi Alice, here&#39;s what you solved yesterday!",
		"Total questions solved: <strong>2</strong>",
		"<h3>Expert Analysis</h3>",
		"<strong>Two Sum</strong>",
		"(CSES)",
		`href="https://cses.fi/problemset/task/1667"`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in rendered report", want)
		}
	}
}

func TestHTMLRendererEscapesItemFields(t *testing.T) {
	in := sampleInput()
	in.Items = []digest.SolvedItem{{Title: "<script>alert(1)</script>", Platform: "LeetCode"}}
	doc, err := HTMLRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(string(doc.Data), "<script>alert(1)</script>") {
		t.Fatalf("item titles must be escaped")
	}
}

func TestHTMLRendererMarkdownNarrative(t *testing.T) {
	in := sampleInput()
	in.Narrative = "Personalized analysis is **currently unavailable**."
	doc, err := HTMLRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(doc.Data), "<strong>currently unavailable</strong>") {
		t.Fatalf("expected markdown to be converted")
	}
}

func TestXLSXRendererWorkbook(t *testing.T) {
	doc, err := XLSXRenderer{}.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Name != "daily-summary-2024-01-02.xlsx" {
		t.Fatalf("unexpected name %q", doc.Name)
	}
	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(solvedSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 || rows[1][0] != "Two Sum" || rows[2][1] != "CSES" {
		t.Fatalf("unexpected solved rows %v", rows)
	}
	analysis, err := f.GetCellValue(summarySheet, "B5")
	if err != nil {
		t.Fatalf("GetCellValue: %v", err)
	}
	if analysis != "Expert Analysis\nSolid progress yesterday." {
		t.Fatalf("unexpected analysis cell %q", analysis)
	}
}

func TestGreetingReadsForEveryPeriod(t *testing.T) {
	in := sampleInput()
	for _, p := range []string{"yesterday", "on January 2, 2024", "from January 1, 2024 to January 7, 2024"} {
		in.Period = p
		want := "Hi Alice, here's what you solved " + p + "!"
		if got := Greeting(in); got != want {
			t.Fatalf("Greeting(%q) = %q, want %q", p, got, want)
		}
	}
}

func TestSolvedAtUsesWindowZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	in := sampleInput()
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, ny)
	in.Window = digest.TimeWindow{Start: start, End: start.AddDate(0, 0, 1)}
	in.Items = []digest.SolvedItem{{Title: "Two Sum", SolvedAt: time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)}}

	doc, err := HTMLRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(doc.Data), "Dec 31 22:00 EST") {
		t.Fatalf("solved time should be shown in the window's zone:\n%s", doc.Data)
	}

	doc, err = XLSXRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(doc.Data))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	got, _ := f.GetCellValue(solvedSheet, "D2")
	if got != "2023-12-31T22:00:00-05:00" {
		t.Fatalf("unexpected solved-at cell %q", got)
	}
}

func TestPDFRendererDocument(t *testing.T) {
	doc, err := PDFRenderer{}.Render(context.Background(), sampleInput())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if doc.Name != "daily-summary-2024-01-02.pdf" || doc.ContentType != "application/pdf" {
		t.Fatalf("unexpected document %q %q", doc.Name, doc.ContentType)
	}
	if doc.Title != "Daily Progress Report for Alice" {
		t.Fatalf("unexpected title %q", doc.Title)
	}
	if !bytes.HasPrefix(doc.Data, []byte("%PDF-")) || !bytes.Contains(doc.Data, []byte("%%EOF")) {
		t.Fatalf("output is not a complete pdf")
	}
	if !bytes.Contains(doc.Data, []byte("https://cses.fi/problemset/task/1667")) {
		t.Fatalf("item urls should be linked in the pdf")
	}
}

func TestNewSelectsFormat(t *testing.T) {
	if r, err := New(""); err != nil || r == nil {
		t.Fatalf("default format: %v", err)
	}
	if _, ok := mustNew(t, "xlsx").(XLSXRenderer); !ok {
		t.Fatalf("expected xlsx renderer")
	}
	if _, ok := mustNew(t, "").(PDFRenderer); !ok {
		t.Fatalf("pdf should be the default format")
	}
	if _, ok := mustNew(t, "HTML").(HTMLRenderer); !ok {
		t.Fatalf("expected html renderer")
	}
	if _, err := New("docx"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func mustNew(t *testing.T, format string) digest.DocumentRenderer {
	t.Helper()
	r, err := New(format)
	if err != nil {
		t.Fatalf("New(%q): %v", format, err)
	}
	return r
}

func TestPlainText(t *testing.T) {
	got := PlainText("<h3>A &amp; B</h3>\n<ul><li>one</li><li>two</li></ul>")
	if got != "A & B\none\ntwo" {
		t.Fatalf("unexpected plain text %q", got)
	}
}
