package leads

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

const utf8BOM = "\ufeff"

// ResultColumns is the header of the rendered results sheet.
var ResultColumns = []string{
	"name",
	"role",
	"company",
	"industry",
	"intent",
	"score",
	"reasoning",
	"data_completeness",
}

// Sheet is a parsed lead upload.
type Sheet struct {
	Header  []string
	Records []RawRecord
}

// MissingColumns returns the required columns the header does not carry.
func (s *Sheet) MissingColumns() []string {
	var missing []string
	for _, field := range RequiredFields {
		if !slices.Contains(s.Header, field) {
			missing = append(missing, field)
		}
	}
	return missing
}

// ParseCSV reads a header-driven lead sheet. Column names are matched case
// insensitively. Blank cells, short rows and missing columns leave the value
// absent from the record.
func ParseCSV(r io.Reader) (*Sheet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	for i, col := range header {
		if i == 0 {
			col = strings.TrimPrefix(col, utf8BOM)
		}
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}

	sheet := &Sheet{Header: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		row := make(RawRecord, len(header))
		for i, col := range header {
			if col == "" || i >= len(rec) {
				continue
			}
			if strings.TrimSpace(rec[i]) == "" {
				continue
			}
			row[col] = rec[i]
		}
		sheet.Records = append(sheet.Records, row)
	}

	return sheet, nil
}

// WriteCSV renders scored leads with the ResultColumns header. Absent role,
// company and industry become empty cells.
func WriteCSV(w io.Writer, results []ScoredLead) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(ResultColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, res := range results {
		row := []string{
			res.Name,
			Text(res.Role),
			Text(res.Company),
			Text(res.Industry),
			string(res.Intent),
			strconv.Itoa(res.Score),
			res.Reasoning,
			string(res.DataCompleteness),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
