// Package table buffers probe results as a sparse table with one row per iteration and one column per label.
package table

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/armadaproject/scalebench/internal/common/benchmarkerrors"
	"github.com/armadaproject/scalebench/internal/scalebench/metrics"
	"github.com/armadaproject/scalebench/internal/scalebench/registry"
)

// Cell is one slot of a row. Unset cells have never been reported for their iteration.
type Cell struct {
	Value interface{}
	Set   bool
}

// Row holds one cell per registered column.
type Row []Cell

// IndexedRow is a row together with the iteration it belongs to.
type IndexedRow struct {
	Iteration int
	Cells     Row
}

// DropRecorder is told about results that were discarded without touching the table.
type DropRecorder interface {
	RecordDroppedResult(reason string)
}

// Aggregator owns the result table and the column index.
// Aggregate is the only way probe results reach the table, and it is safe to call from many goroutines at once.
type Aggregator struct {
	columns  *registry.ColumnIndex
	recorder DropRecorder

	mu   sync.Mutex
	rows map[int]Row
}

func NewAggregator(columns *registry.ColumnIndex, recorder DropRecorder) *Aggregator {
	return &Aggregator{
		columns:  columns,
		recorder: recorder,
		rows:     map[int]Row{},
	}
}

// AddRow allocates an empty row for iteration. Every cell starts unset.
func (a *Aggregator) AddRow(iteration int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows[iteration] = make(Row, a.columns.Len())
}

// Aggregate writes every value of result into the row named by its row key.
//
// A result without a row key is discarded silently: probes are expected to always supply one, and a probe that
// does not simply loses its data. A label that was never registered is a configuration error and is returned as
// an ErrUnregisteredLabel; values already written for the same result stay written.
// When two results write the same cell, the later one wins.
func (a *Aggregator) Aggregate(result registry.Result) error {
	if result.RowKey == nil {
		log.Debugf("discarding result without row key: %v", result.Values)
		a.recordDrop(metrics.DropReasonMissingRowKey)
		return nil
	}
	iteration := *result.RowKey

	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.rows[iteration]
	if !ok {
		log.Warnf("discarding result for iteration %d which is not buffered", iteration)
		a.recordDrop(metrics.DropReasonUnknownRow)
		return nil
	}
	for label, value := range result.Values {
		idx, ok := a.columns.Index(label)
		if !ok {
			return errors.WithStack(&benchmarkerrors.ErrUnregisteredLabel{Label: label, Iteration: iteration})
		}
		row[idx] = Cell{Value: value, Set: true}
	}
	return nil
}

func (a *Aggregator) recordDrop(reason string) {
	if a.recorder != nil {
		a.recorder.RecordDroppedResult(reason)
	}
}

// Snapshot returns a deep copy of the buffered rows ordered by iteration.
func (a *Aggregator) Snapshot() []IndexedRow {
	a.mu.Lock()
	defer a.mu.Unlock()

	iterations := maps.Keys(a.rows)
	sort.Ints(iterations)
	snapshot := make([]IndexedRow, 0, len(iterations))
	for _, iteration := range iterations {
		cells := make(Row, len(a.rows[iteration]))
		copy(cells, a.rows[iteration])
		snapshot = append(snapshot, IndexedRow{Iteration: iteration, Cells: cells})
	}
	return snapshot
}

// Reset discards every buffered row. Iteration numbers are not reused by the caller afterwards.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rows = map[int]Row{}
}

// Len returns the number of buffered rows.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Labels returns the column labels in order.
func (a *Aggregator) Labels() []string {
	return a.columns.Labels()
}
