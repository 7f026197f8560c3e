package normalize

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// sheetText concatenates every sheet of a workbook into comma-separated
// cell text, one line per row.
func sheetText(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", eris.Wrap(err, "normalize: open workbook")
	}

	var sb strings.Builder
	for _, sheet := range f.Sheets {
		for _, row := range sheet.Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}
			sb.WriteString(strings.Join(cells, ","))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
