package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"

	"csv-summarizer/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// parseCSV reads the whole buffer and returns one row per data record. The
// first record is the header. Records wider than the header name their extra
// cells "_<index>"; shorter records simply lack the missing columns. Nothing
// is returned on error.
func parseCSV(ctx context.Context, data []byte) ([]domain.Row, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []domain.Row{}, nil
	}
	if err != nil {
		return nil, newError(ErrorParse, "parse csv header", err)
	}

	rows := make([]domain.Row, 0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, newError(ErrorParse, "parse csv", err)
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, newError(ErrorParse, "parse csv", err)
		}
		rows = append(rows, recordToRow(header, record))
	}
	return rows, nil
}

func recordToRow(header, record []string) domain.Row {
	var row domain.Row
	for i, value := range record {
		key := "_" + strconv.Itoa(i)
		if i < len(header) {
			key = header[i]
		}
		row.Set(key, value)
	}
	return row
}
