package grid

// Dataset pairs a single variable name with its field. It is the unit passed
// between index stages and handed to the sink.
type Dataset struct {
	Name  string
	Field *Field
}

// NewDataset wraps f under name.
func NewDataset(name string, f *Field) *Dataset {
	return &Dataset{Name: name, Field: f}
}

// Release releases the dataset's field.
func (d *Dataset) Release() {
	if d == nil {
		return
	}
	d.Field.Release()
}
