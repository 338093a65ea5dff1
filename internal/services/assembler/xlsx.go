package assembler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/onegreenvn/bizdoc-services-backend/internal/services/converter"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// XLSXAssembler writes a summary sheet, the content blocks as rows and any
// markdown pipe tables (cashflow projections use them) as a separate sheet.
type XLSXAssembler struct{}

func NewXLSXAssembler() *XLSXAssembler { return &XLSXAssembler{} }

func (a *XLSXAssembler) Format() Format { return FormatXLSX }

func (a *XLSXAssembler) ContentType() string { return xlsxContentType }

func (a *XLSXAssembler) Extension() string { return "xlsx" }

func (a *XLSXAssembler) Assemble(doc Document, theme Theme) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF", Family: theme.FontFamily},
		Fill: excelize.Fill{Type: "pattern", Color: []string{theme.PrimaryColor}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: theme.SecondaryColor, Family: theme.FontFamily},
	})
	if err != nil {
		return nil, fmt.Errorf("create label style: %w", err)
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("create wrap style: %w", err)
	}

	const summary = "Summary"
	if err := f.SetSheetName(f.GetSheetName(0), summary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Title", doc.displayTitle()},
		{"Business Name", doc.BusinessName},
		{"Document Type", doc.DocumentType},
		{"Generated", doc.dateLabel() + " " + doc.timeLabel()},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
		_ = f.SetCellStyle(summary, cell, cell, labelStyle)
	}
	_ = f.SetColWidth(summary, "A", "A", 20)
	_ = f.SetColWidth(summary, "B", "B", 60)

	if err := writeBlocksSheet(f, doc.Content, headerStyle, wrapStyle); err != nil {
		return nil, err
	}
	tables := ExtractTables(doc.Content)
	if len(tables) > 0 {
		if err := writeTablesSheet(f, tables, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeBlocksSheet(f *excelize.File, content string, headerStyle, wrapStyle int) error {
	const sheet = "Content"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create content sheet: %w", err)
	}
	header := []interface{}{"Type", "Level", "Text"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write content header: %w", err)
	}
	_ = f.SetCellStyle(sheet, "A1", "C1", headerStyle)

	row := 2
	for _, b := range converter.ParseBlocks(withoutTables(content)) {
		if b.Kind == converter.BlockSpacer {
			continue
		}
		var level interface{}
		if b.Kind == converter.BlockHeading {
			level = b.Level
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{b.Kind.String(), level, converter.PlainText(b.Text)}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write content row %d: %w", row, err)
		}
		row++
	}
	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 8)
	_ = f.SetColWidth(sheet, "C", "C", 100)
	if row > 2 {
		last, _ := excelize.CoordinatesToCellName(3, row-1)
		_ = f.SetCellStyle(sheet, "C2", last, wrapStyle)
	}
	return nil
}

func writeTablesSheet(f *excelize.File, tables [][][]string, headerStyle int) error {
	const sheet = "Tables"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create tables sheet: %w", err)
	}
	row := 1
	maxCols := 0
	for _, table := range tables {
		for i, cells := range table {
			values := make([]interface{}, len(cells))
			for j, c := range cells {
				values[j] = cellValue(c)
			}
			if len(cells) > maxCols {
				maxCols = len(cells)
			}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(sheet, cell, &values); err != nil {
				return fmt.Errorf("write table row %d: %w", row, err)
			}
			if i == 0 && len(cells) > 0 {
				last, _ := excelize.CoordinatesToCellName(len(cells), row)
				_ = f.SetCellStyle(sheet, cell, last, headerStyle)
			}
			row++
		}
		row++
	}
	if maxCols > 0 {
		lastCol, _ := excelize.ColumnNumberToName(maxCols)
		_ = f.SetColWidth(sheet, "A", lastCol, 18)
	}
	return nil
}

var separatorCell = regexp.MustCompile(`^:?-{3,}:?$`)

// ExtractTables finds markdown pipe tables. Separator rows are dropped.
func ExtractTables(content string) [][][]string {
	var tables [][][]string
	var current [][]string
	for _, line := range converter.SplitLines(content) {
		trimmed := strings.TrimSpace(line)
		if !isTableLine(trimmed) {
			if len(current) > 0 {
				tables = append(tables, current)
				current = nil
			}
			continue
		}
		cells := splitTableRow(trimmed)
		if isSeparatorRow(cells) {
			continue
		}
		current = append(current, cells)
	}
	if len(current) > 0 {
		tables = append(tables, current)
	}
	return tables
}

// withoutTables blanks table rows so they do not merge into paragraphs
func withoutTables(content string) string {
	lines := converter.SplitLines(content)
	for i, line := range lines {
		if isTableLine(line) {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func isTableLine(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "|") && strings.Count(s, "|") >= 2
}

func splitTableRow(line string) []string {
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")
	parts := strings.Split(line, "|")
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = converter.PlainText(strings.TrimSpace(p))
	}
	return cells
}

func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if !separatorCell.MatchString(c) {
			return false
		}
	}
	return len(cells) > 0
}

// cellValue stores plain numbers ("1,250,000" or "12.5") as numbers
func cellValue(s string) interface{} {
	clean := strings.ReplaceAll(s, ",", "")
	if v, err := strconv.ParseFloat(clean, 64); err == nil {
		return v
	}
	return s
}
