package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/scalebench/internal/scalebench/table"
)

func set(v interface{}) table.Cell {
	return table.Cell{Value: v, Set: true}
}

var labels = []string{"a", "b", "c"}

func TestWriteCSV_WithHeader(t *testing.T) {
	var buf bytes.Buffer
	rows := []table.IndexedRow{
		{Iteration: 0, Cells: table.Row{set(0), set(0), set(0)}},
		{Iteration: 1, Cells: table.Row{set(1.25), set("x"), {}}},
	}

	require.NoError(t, WriteCSV(&buf, labels, rows, true))

	assert.Equal(t, ",a,b,c\n0,0,0,0\n1,1.25,x,\n", buf.String())
}

func TestWriteCSV_WithoutHeader(t *testing.T) {
	var buf bytes.Buffer
	rows := []table.IndexedRow{{Iteration: 7, Cells: table.Row{{}, {}, {}}}}

	require.NoError(t, WriteCSV(&buf, labels, rows, false))

	assert.Equal(t, "7,,,\n", buf.String())
}

func TestWriteCSV_RowWidthMismatch(t *testing.T) {
	var buf bytes.Buffer
	rows := []table.IndexedRow{{Iteration: 0, Cells: table.Row{set(1)}}}

	assert.Error(t, WriteCSV(&buf, labels, rows, false))
}

func TestFormatCell(t *testing.T) {
	tests := map[string]struct {
		cell table.Cell
		want string
	}{
		"unset":        {table.Cell{}, ""},
		"set nil":      {table.Cell{Set: true}, ""},
		"string":       {set("hello"), "hello"},
		"float":        {set(0.123456), "0.123456"},
		"whole float":  {set(2.0), "2"},
		"int":          {set(42), "42"},
		"int64":        {set(int64(-3)), "-3"},
		"bool":         {set(true), "true"},
		"duration":     {set(1500 * time.Millisecond), "1.5"},
		"other":        {set([]int{1}), "[1]"},
		"string comma": {set("a,b"), "a,b"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatCell(tc.cell))
		})
	}
}

func TestCSVSink_AppendsAcrossWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scale_test.csv")
	sink := NewCSVSink(path)

	require.NoError(t, sink.Write(labels, []table.IndexedRow{{Iteration: 0, Cells: table.Row{set(0), {}, {}}}}, true))
	require.NoError(t, sink.Write(labels, []table.IndexedRow{{Iteration: 1, Cells: table.Row{set(1), {}, {}}}}, false))
	require.NoError(t, sink.Write(labels, nil, false))

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ",a,b,c\n0,0,,\n1,1,,\n", string(contents))
}

func TestCSVSink_UnwritableLocation(t *testing.T) {
	sink := NewCSVSink(filepath.Join(t.TempDir(), "missing", "scale_test.csv"))
	assert.Error(t, sink.Write(labels, nil, true))
}
