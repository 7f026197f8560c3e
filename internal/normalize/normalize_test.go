package normalize

import (
	"bytes"
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dropaudit/internal/extract"
)

const (
	addrA = "0xab5801a7d398351b8be11c439e05c5b3259aec9b"
	addrB = "0xde0b295669a9fd93d5f28d9ec85e40f4cb697bae"
)

type fakePDF struct {
	text string
	err  error
}

func (f *fakePDF) ExtractText(_ context.Context, _ []byte) (string, error) {
	return f.text, f.err
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("list.csv"))
	assert.Equal(t, FormatText, DetectFormat("notes.txt"))
	assert.Equal(t, FormatJSON, DetectFormat("thread.JSON"))
	assert.Equal(t, FormatXLSX, DetectFormat("book.xlsx"))
	assert.Equal(t, FormatXLS, DetectFormat("legacy.xls"))
	assert.Equal(t, FormatPDF, DetectFormat("report.PDF"))
	assert.Equal(t, FormatUnknown, DetectFormat("archive.zip"))
	assert.Equal(t, FormatUnknown, DetectFormat("noext"))
}

func TestNormalize_PlainTextVerbatim(t *testing.T) {
	n := New(nil)
	assert.Equal(t, "hello "+addrA, n.Normalize(context.Background(), "a.txt", []byte("hello "+addrA)))
	assert.Equal(t, "a,b,c", n.Normalize(context.Background(), "a.csv", []byte("a,b,c")))
	// Unknown extensions fall through to verbatim text.
	assert.Equal(t, "raw", n.Normalize(context.Background(), "a.bin", []byte("raw")))
}

func TestNormalize_PDF(t *testing.T) {
	n := New(&fakePDF{text: "extracted " + addrA})
	got := n.Normalize(context.Background(), "doc.pdf", []byte("%PDF"))
	assert.Equal(t, "extracted "+addrA, got)
}

func TestNormalize_PDFFailureYieldsEmpty(t *testing.T) {
	n := New(&fakePDF{err: eris.New("corrupt xref")})
	assert.Empty(t, n.Normalize(context.Background(), "doc.pdf", []byte("%PDF")))

	// No extractor configured at all.
	n = New(nil)
	assert.Empty(t, n.Normalize(context.Background(), "doc.pdf", []byte("%PDF")))
}

func buildWorkbook(t *testing.T, sheets ...[][]string) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for i, rows := range sheets {
		sheet, err := f.AddSheet("Sheet" + string(rune('A'+i)))
		require.NoError(t, err)
		for _, cells := range rows {
			row := sheet.AddRow()
			for _, c := range cells {
				row.AddCell().SetString(c)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestNormalize_WorkbookAllSheets(t *testing.T) {
	data := buildWorkbook(t,
		[][]string{{"wallet", addrA}, {"burn", extract.BurnAddress}},
		[][]string{{addrB}, {extract.BurnAddress, "note"}},
	)

	n := New(nil)
	text := n.Normalize(context.Background(), "book.xlsx", data)
	require.NotEmpty(t, text)

	// Both sheets contribute; burn addresses survive normalization (they are
	// filtered later, by extraction).
	assert.Contains(t, text, addrA)
	assert.Contains(t, text, addrB)
	assert.Contains(t, text, "wallet,"+addrA)

	got := extract.Addresses(text)
	assert.Equal(t, []string{addrA, addrB}, got)
}

func TestNormalize_WorkbookGarbageYieldsEmpty(t *testing.T) {
	n := New(nil)
	assert.Empty(t, n.Normalize(context.Background(), "book.xlsx", []byte("not a zip")))
}

func TestNormalize_JSONHarvest(t *testing.T) {
	doc := []byte(`{
		"title": "drop thread",
		"posts": [
			{"text": "gm ` + addrA + `", "author": "x"},
			{"body": "mine is ` + addrB + `"},
			{"comments": [{"message": "again ` + addrA + `"}]}
		],
		"ignored": "` + addrB + `000000"
	}`)

	n := New(nil)
	text := n.Normalize(context.Background(), "thread.json", doc)

	got := extract.Addresses(text)
	assert.ElementsMatch(t, []string{addrA, addrB}, got)
}

func TestNormalize_JSONHarvestOrderStable(t *testing.T) {
	// Two text fields on one object: harvested in key order (body before
	// message), the same on every run despite map iteration randomness.
	doc := []byte(`{"message": "first ` + addrA + `", "body": "second ` + addrB + `"}`)

	n := New(nil)
	for i := 0; i < 20; i++ {
		text := n.Normalize(context.Background(), "thread.json", doc)
		assert.Equal(t, []string{addrB, addrA}, extract.Addresses(text))
	}
}

func TestNormalize_JSONDepthBound(t *testing.T) {
	// Nest a text field 12 container levels deep: past the cap, not harvested.
	inner := `{"text": "deep ` + addrA + `"}`
	for i := 0; i < 12; i++ {
		inner = `{"items": [` + inner + `]}`
	}

	n := New(nil)
	text := n.Normalize(context.Background(), "deep.json", []byte(inner))
	assert.Empty(t, extract.Addresses(text))
}

func TestNormalize_InvalidJSONFallsBackToRaw(t *testing.T) {
	raw := []byte("not json but contains " + addrA)
	n := New(nil)
	assert.Equal(t, string(raw), n.Normalize(context.Background(), "x.json", raw))
}
