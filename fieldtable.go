package sonicsv

// fieldTable is a growable, per-row scratch table of fields. It is
// cleared (not reallocated) at the start of every row, the same
// reuse-don't-reallocate discipline encoding/csv's ReuseRecord option
// applies to whole records.
type fieldTable struct {
	fields []Field
}

func newFieldTable(capacityHint int) *fieldTable {
	return &fieldTable{fields: make([]Field, 0, capacityHint)}
}

// reset truncates the table to zero length without releasing capacity.
func (t *fieldTable) reset() {
	t.fields = t.fields[:0]
}

// addField appends a completed field to the row in progress.
func (t *fieldTable) addField(f Field) {
	t.fields = append(t.fields, f)
}

func (t *fieldTable) len() int { return len(t.fields) }

// snapshotFields copies the table's current contents into dst (reusing
// its backing array when it has enough capacity) and returns the result,
// the same "reuse the caller-owned slice" convention encoding/csv's
// ReuseRecord uses for *Row.Fields between callback invocations.
func (t *fieldTable) snapshotFields(dst []Field) []Field {
	if cap(dst) < len(t.fields) {
		dst = make([]Field, len(t.fields))
	} else {
		dst = dst[:len(t.fields)]
	}
	copy(dst, t.fields)
	return dst
}
