package mockdata

// Record is one decoded mock row: an ordered mapping of column name to
// value. Key order is the order of first insertion, which the synthesizer
// relies on for deterministic column order.
type Record struct {
	keys   []string
	values map[string]Value
}

// Set stores a value under name, appending the key on first insertion.
func (r *Record) Set(name string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

// Columns returns the column names in insertion order.
func (r *Record) Columns() []string {
	return r.keys
}

// Get returns the value stored under name.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Len returns the number of columns in the record.
func (r *Record) Len() int {
	return len(r.keys)
}
