package config

// Rename maps a source column to its semantic name.
type Rename struct {
	From string
	To   string
}

// Schema describes the columns the normalizer drops and renames.
// The upstream dataset has a fixed layout, so this is the single place to edit
// when it changes.
type Schema struct {
	DropColumns []string
	Renames     []Rename
}

// Column names of the upstream SMS spam dataset.
const (
	ColumnLabel = "v1"
	ColumnText  = "v2"

	ColumnTarget = "target"
	ColumnBody   = "text"
)

// DefaultSchema returns the schema of the upstream dataset.
func DefaultSchema() Schema {
	return Schema{
		DropColumns: []string{"Unnamed: 2", "Unnamed: 3", "Unnamed: 4"},
		Renames: []Rename{
			{From: ColumnLabel, To: ColumnTarget},
			{From: ColumnText, To: ColumnBody},
		},
	}
}

// Columns returns every column the schema requires to be present, in check order.
func (s Schema) Columns() []string {
	cols := make([]string, 0, len(s.DropColumns)+len(s.Renames))
	cols = append(cols, s.DropColumns...)
	for _, r := range s.Renames {
		cols = append(cols, r.From)
	}
	return cols
}
