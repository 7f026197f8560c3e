// Package fileparse reads address-list files row by row. Unlike the
// free-text extractor it trusts the file's own structure: each row is
// expected to carry one address, and rows that fail format validation are
// reported as validation errors instead of being silently dropped.
package fileparse

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/dropaudit/internal/extract"
	"github.com/sells-group/dropaudit/internal/model"
	"github.com/sells-group/dropaudit/internal/normalize"
)

// Result holds the addresses parsed from one file plus per-row errors.
// Addresses are lowercase, deduplicated, in first-seen order.
type Result struct {
	Addresses []model.AddressRecord
	Errors    []model.ValidationError
}

// Parse reads a file of addresses, dispatching on extension. The returned
// error covers structural failures only (unreadable container); malformed
// rows are collected into Result.Errors.
func Parse(filename string, data []byte) (*Result, error) {
	switch normalize.DetectFormat(filename) {
	case normalize.FormatCSV:
		return parseRows(filename, csvRows(data))
	case normalize.FormatXLSX, normalize.FormatXLS:
		rows, err := workbookRows(data)
		if err != nil {
			return nil, err
		}
		return parseRows(filename, rows)
	case normalize.FormatJSON:
		return parseJSON(filename, data)
	default:
		// txt and anything else: one candidate per line.
		return parseRows(filename, lineRows(data))
	}
}

// row is one candidate cell with its 1-based source row.
type row struct {
	value string
	num   int
}

func parseRows(filename string, rows []row) (*Result, error) {
	res := &Result{}
	seen := make(map[string]struct{})

	for _, r := range rows {
		candidate := strings.TrimSpace(r.value)
		if candidate == "" {
			continue
		}

		if !extract.IsValidAddress(candidate) {
			res.Errors = append(res.Errors, model.ValidationError{
				Address:    candidate,
				Reason:     "invalid address format",
				SourceFile: filename,
			})
			continue
		}

		addr := strings.ToLower(candidate)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		res.Addresses = append(res.Addresses, model.AddressRecord{Address: addr, SourceRow: r.num})
	}

	return res, nil
}

// csvRows yields the first non-empty cell of each record. Malformed CSV
// lines are tolerated via LazyQuotes and variable field counts.
func csvRows(data []byte) []row {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows []row
	num := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		num++
		if err != nil {
			continue
		}
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				rows = append(rows, row{value: cell, num: num})
				break
			}
		}
	}
	return rows
}

func lineRows(data []byte) []row {
	var rows []row
	for i, line := range strings.Split(string(data), "\n") {
		rows = append(rows, row{value: strings.TrimRight(line, "\r"), num: i + 1})
	}
	return rows
}

func workbookRows(data []byte) ([]row, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return nil, eris.Wrap(err, "fileparse: open workbook")
	}

	var rows []row
	num := 0
	for _, sheet := range f.Sheets {
		for _, r := range sheet.Rows {
			num++
			for _, cell := range r.Cells {
				if strings.TrimSpace(cell.String()) != "" {
					rows = append(rows, row{value: cell.String(), num: num})
					break
				}
			}
		}
	}
	return rows, nil
}

// parseJSON accepts either an array of address strings or an array of
// objects with an "address" field.
func parseJSON(filename string, data []byte) (*Result, error) {
	var asStrings []string
	if err := json.Unmarshal(data, &asStrings); err == nil {
		rows := make([]row, 0, len(asStrings))
		for i, s := range asStrings {
			rows = append(rows, row{value: s, num: i + 1})
		}
		return parseRows(filename, rows)
	}

	var asObjects []struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(data, &asObjects); err != nil {
		return nil, eris.Wrap(err, "fileparse: decode json address list")
	}

	rows := make([]row, 0, len(asObjects))
	for i, o := range asObjects {
		rows = append(rows, row{value: o.Address, num: i + 1})
	}
	return parseRows(filename, rows)
}
