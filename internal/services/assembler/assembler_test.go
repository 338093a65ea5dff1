package assembler

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

const sampleContent = `# Executive Summary
Acme Bakery serves **fresh bread** daily.

## Market
- Lagos has 20m residents
- Demand grows 8% a year

### Pricing
Loaves sell for N1,200.`

func sampleDoc() Document {
	return Document{
		Title:        "Growth Proposal",
		BusinessName: "Acme Bakery",
		DocumentType: "Business Proposal",
		Content:      sampleContent,
		GeneratedAt:  fixedTime,
	}
}

func readZipPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			require.NoError(t, err)
			defer rc.Close()
			b, err := io.ReadAll(rc)
			require.NoError(t, err)
			return string(b)
		}
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func zipPartNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestDOCXLayout(t *testing.T) {
	data, err := NewDOCXAssembler().Assemble(sampleDoc(), DefaultTheme())
	require.NoError(t, err)

	body := readZipPart(t, data, "word/document.xml")
	assert.Contains(t, body, "Growth Proposal")
	assert.Contains(t, body, "Document Overview")
	assert.Contains(t, body, "Document Information")
	assert.Contains(t, body, "March 14, 2025")
	assert.Contains(t, body, "Lagos has 20m residents")
	assert.Contains(t, body, `<w:b/><w:color w:val="262626"/><w:sz w:val="22"/><w:szCs w:val="22"/></w:rPr><w:t xml:space="preserve">fresh bread</w:t>`)
	assert.Equal(t, 2, strings.Count(body, `w:type="page"`))

	overview := strings.Index(body, "Document Overview")
	heading := strings.Index(body, "Executive Summary")
	info := strings.Index(body, "Document Information")
	assert.True(t, overview < heading && heading < info)

	assert.Contains(t, zipPartNames(t, data), "word/styles.xml")
	assert.Contains(t, readZipPart(t, data, "[Content_Types].xml"), "wordprocessingml.document.main+xml")
}

func TestDOCXEmptyContentStillValid(t *testing.T) {
	doc := sampleDoc()
	doc.Content = ""
	data, err := NewDOCXAssembler().Assemble(doc, DefaultTheme())
	require.NoError(t, err)
	require.NotEmpty(t, data)

	body := readZipPart(t, data, "word/document.xml")
	assert.Contains(t, body, "Acme Bakery")
	assert.Contains(t, body, "Document Information")
}

func TestDOCXEscapesMarkup(t *testing.T) {
	doc := sampleDoc()
	doc.BusinessName = `Smith & Sons <Ltd>`
	doc.Content = "Profit < cost & \"quotes\"\x00"
	data, err := NewDOCXAssembler().Assemble(doc, DefaultTheme())
	require.NoError(t, err)

	body := readZipPart(t, data, "word/document.xml")
	assert.Contains(t, body, "Smith &amp; Sons &lt;Ltd&gt;")
	assert.NotContains(t, body, "\x00")
}

func TestPPTXSlides(t *testing.T) {
	doc := sampleDoc()
	doc.Content = "## Problem\n- Slow delivery\n## Solution\nSame day\n## Ask\nN10m"
	data, err := NewPPTXAssembler().Assemble(doc, DefaultTheme())
	require.NoError(t, err)

	names := zipPartNames(t, data)
	slides := 0
	for _, n := range names {
		if strings.HasPrefix(n, "ppt/slides/slide") {
			slides++
		}
	}
	assert.Equal(t, 5, slides)
	assert.Contains(t, names, "ppt/theme/theme1.xml")
	assert.Contains(t, names, "ppt/slideMasters/slideMaster1.xml")

	assert.Contains(t, readZipPart(t, data, "ppt/slides/slide1.xml"), "Growth Proposal")
	problem := readZipPart(t, data, "ppt/slides/slide2.xml")
	assert.Contains(t, problem, "Problem")
	assert.Contains(t, problem, `<a:buChar char="•"/>`)
	assert.Contains(t, readZipPart(t, data, "ppt/slides/slide5.xml"), "Thank You")

	pres := readZipPart(t, data, "ppt/presentation.xml")
	assert.Equal(t, 5, strings.Count(pres, "<p:sldId "))
}

func TestPPTXWithoutSectionsHasOneContentSlide(t *testing.T) {
	doc := sampleDoc()
	doc.Content = "We bake bread.\nEvery day."
	data, err := NewPPTXAssembler().Assemble(doc, DefaultTheme())
	require.NoError(t, err)

	pres := readZipPart(t, data, "ppt/presentation.xml")
	assert.Equal(t, 3, strings.Count(pres, "<p:sldId "))
}

func TestPPTXEmptyContent(t *testing.T) {
	doc := sampleDoc()
	doc.Content = ""
	data, err := NewPPTXAssembler().Assemble(doc, DefaultTheme())
	require.NoError(t, err)
	assert.Contains(t, readZipPart(t, data, "ppt/slides/slide2.xml"), "Growth Proposal")
}

func TestPDF(t *testing.T) {
	data, err := NewPDFAssembler().Assemble(sampleDoc(), DefaultTheme())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	doc := sampleDoc()
	doc.Content = ""
	data, err = NewPDFAssembler().Assemble(doc, DefaultTheme())
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestTXT(t *testing.T) {
	data, err := NewTXTAssembler().Assemble(sampleDoc(), DefaultTheme())
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.HasPrefix(out, "GROWTH PROPOSAL\n===============\n"))
	assert.Contains(t, out, "Business: Acme Bakery\n")
	assert.True(t, strings.HasSuffix(out, sampleContent+"\n"))
}

func TestXLSX(t *testing.T) {
	doc := sampleDoc()
	doc.DocumentType = "Cashflow Projection"
	doc.Content = "# Cashflow\n| Month | Inflow | Outflow |\n|---|---:|---|\n| Jan | 1,250,000 | 900000 |\n| Feb | 1,300,000 | 950000 |\nNotes follow."
	data, err := NewXLSXAssembler().Assemble(doc, DefaultTheme())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Content", "Tables"}, f.GetSheetList())
	v, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Acme Bakery", v)

	v, err = f.GetCellValue("Tables", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1250000", v)
	v, err = f.GetCellValue("Tables", "A3")
	require.NoError(t, err)
	assert.Equal(t, "Feb", v)

	rows, err := f.GetRows("Content")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"heading", "1", "Cashflow"}, rows[1])
	assert.Equal(t, "Notes follow.", rows[2][2])
}

func TestExtractTables(t *testing.T) {
	tables := ExtractTables("| a | b |\n| --- | --- |\n| 1 | 2 |\n\ntext\n| x | y |")
	require.Len(t, tables, 2)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, tables[0])
	assert.Equal(t, [][]string{{"x", "y"}}, tables[1])
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []Format{FormatDOCX, FormatPDF, FormatPPTX, FormatTXT, FormatXLSX}, r.Formats())

	a, ok := r.Get(FormatPPTX)
	require.True(t, ok)
	assert.Equal(t, "pptx", a.Extension())

	_, err := NewRegistry(NewDOCXAssembler(), NewDOCXAssembler())
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, ok := ParseFormat(" .DOCX ")
	assert.True(t, ok)
	assert.Equal(t, FormatDOCX, f)

	_, ok = ParseFormat("odt")
	assert.False(t, ok)
}

func TestConcurrentAssemblyDoesNotShareBuffers(t *testing.T) {
	r := DefaultRegistry()
	theme := DefaultTheme()
	businesses := []string{"Alpha Foods", "Beta Logistics"}

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 20; i++ {
		for _, name := range businesses {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				for _, format := range []Format{FormatDOCX, FormatPPTX} {
					a, _ := r.Get(format)
					doc := Document{BusinessName: name, DocumentType: "Company Profile", Content: "## About\n" + name + " overview", GeneratedAt: fixedTime}
					data, err := a.Assemble(doc, theme)
					if err != nil {
						errs <- err
						return
					}
					zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
					if err != nil {
						errs <- err
						return
					}
					var all strings.Builder
					for _, f := range zr.File {
						rc, _ := f.Open()
						b, _ := io.ReadAll(rc)
						rc.Close()
						all.Write(b)
					}
					for _, other := range businesses {
						if other != name && strings.Contains(all.String(), other) {
							errs <- fmt.Errorf("%s output contains %s", name, other)
							return
						}
					}
				}
			}(name)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
