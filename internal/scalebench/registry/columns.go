package registry

// ColumnIndex maps every registered label to its column in the result table.
// Columns are assigned in first-seen order and never move once assigned.
//
// A ColumnIndex is built once at startup and is read-only while a run is in progress;
// it is not safe to call Register concurrently with lookups.
type ColumnIndex struct {
	indices map[string]int
	labels  []string
}

// Register builds a ColumnIndex from the labels declared by metrics, in order.
func Register(metrics []Metric) *ColumnIndex {
	c := &ColumnIndex{indices: map[string]int{}}
	c.Register(metrics...)
	return c
}

// Register adds the labels of metrics that have not been seen before. Existing labels keep their index.
func (c *ColumnIndex) Register(metrics ...Metric) {
	for _, metric := range metrics {
		for _, label := range metric.Labels {
			if _, ok := c.indices[label]; ok {
				continue
			}
			c.indices[label] = len(c.labels)
			c.labels = append(c.labels, label)
		}
	}
}

// Index returns the column of label and whether it has been registered.
func (c *ColumnIndex) Index(label string) (int, bool) {
	idx, ok := c.indices[label]
	return idx, ok
}

// Labels returns the registered labels in column order.
func (c *ColumnIndex) Labels() []string {
	labels := make([]string, len(c.labels))
	copy(labels, c.labels)
	return labels
}

// Len returns the number of columns.
func (c *ColumnIndex) Len() int {
	return len(c.labels)
}
