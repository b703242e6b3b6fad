package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/scalebench/internal/scalebench/table"
)

// Sink persists flushed rows.
type Sink interface {
	// Write appends rows, whose cells are ordered like labels. A header line is written first if writeHeader is set.
	Write(labels []string, rows []table.IndexedRow, writeHeader bool) error
}

// CSVSink appends rows to a CSV file, creating it if necessary.
// The first column holds the iteration index and has an empty header cell.
type CSVSink struct {
	Path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{Path: path}
}

func (s *CSVSink) Write(labels []string, rows []table.IndexedRow, writeHeader bool) (err error) {
	f, err := os.OpenFile(s.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = errors.WithStack(closeErr)
		}
	}()
	return WriteCSV(f, labels, rows, writeHeader)
}

// WriteCSV writes rows to w in the same format as CSVSink.
func WriteCSV(w io.Writer, labels []string, rows []table.IndexedRow, writeHeader bool) error {
	writer := csv.NewWriter(w)
	if writeHeader {
		header := append([]string{""}, labels...)
		if err := writer.Write(header); err != nil {
			return errors.WithStack(err)
		}
	}
	record := make([]string, len(labels)+1)
	for _, row := range rows {
		if len(row.Cells) != len(labels) {
			return errors.Errorf("row %d has %d cells but there are %d columns", row.Iteration, len(row.Cells), len(labels))
		}
		record[0] = strconv.Itoa(row.Iteration)
		for i, cell := range row.Cells {
			record[i+1] = FormatCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	writer.Flush()
	return errors.WithStack(writer.Error())
}

// FormatCell renders a cell as a CSV field. Unset cells are empty, durations are written in seconds.
func FormatCell(cell table.Cell) string {
	if !cell.Set || cell.Value == nil {
		return ""
	}
	switch v := cell.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Duration:
		return strconv.FormatFloat(v.Seconds(), 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
