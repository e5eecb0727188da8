package domain

// FlatRow is one exported record, aligned with the headers of its sheet.
type FlatRow []string

type Sheet struct {
	Name    string
	Headers []string
	Rows    []FlatRow
}

// Projection is the tabular form of a query result, ready for a formatter.
type Projection struct {
	Main Sheet
	Team *Sheet
}
