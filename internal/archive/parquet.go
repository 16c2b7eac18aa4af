package archive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/parquet-go/parquet-go"
)

type EncodeResult struct {
	Data        []byte
	RecordCount int64
}

// answerRow is one result row of one answered question. Column names are
// stored once per row as JSON so a single flat schema covers every query.
type answerRow struct {
	Question      string `parquet:"question"`
	SQL           string `parquet:"sql"`
	ColumnsJSON   string `parquet:"columns_json"`
	RowJSON       string `parquet:"row_json"`
	RowIndex      int64  `parquet:"row_index"`
	AskedAtUnixMs int64  `parquet:"asked_at_unix_ms"`
}

func EncodeAnswer(rec Record) (EncodeResult, error) {
	if len(rec.Rows) == 0 {
		return EncodeResult{}, fmt.Errorf("rows are required")
	}

	columnsJSON, err := json.Marshal(rec.Columns)
	if err != nil {
		return EncodeResult{}, fmt.Errorf("marshal columns: %w", err)
	}

	rows := make([]answerRow, 0, len(rec.Rows))
	for i, row := range rec.Rows {
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return EncodeResult{}, fmt.Errorf("marshal row %d: %w", i, err)
		}
		rows = append(rows, answerRow{
			Question:      rec.Question,
			SQL:           rec.SQL,
			ColumnsJSON:   string(columnsJSON),
			RowJSON:       string(rowJSON),
			RowIndex:      int64(i),
			AskedAtUnixMs: rec.AskedAt.UnixMilli(),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[answerRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return EncodeResult{}, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return EncodeResult{}, fmt.Errorf("close parquet writer: %w", err)
	}

	return EncodeResult{
		Data:        buf.Bytes(),
		RecordCount: int64(len(rows)),
	}, nil
}
