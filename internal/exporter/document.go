package exporter

// CellKind identifies which field of a Cell carries its value
type CellKind int

const (
	CellEmpty CellKind = iota
	CellString
	CellInt
	CellFloat
	CellBool
	// CellUnknown marks a value the file did not record. It is rendered as
	// the literal text "unknown" and never as zero.
	CellUnknown
)

// UnknownText is how CellUnknown is written by every encoder
const UnknownText = "unknown"

// Cell is one typed spreadsheet value
type Cell struct {
	Kind  CellKind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// Row is an ordered list of cells aligned with the sheet columns
type Row []Cell

// Column describes a sheet column
type Column struct {
	Header string
	Width  float64
}

// Sheet is a named table
type Sheet struct {
	Name    string
	Columns []Column
	Rows    []Row
}

// Document is the encoder-independent report
type Document struct {
	Sheets []Sheet
}

// Sheet returns the sheet with the given name, or nil
func (d *Document) Sheet(name string) *Sheet {
	for i := range d.Sheets {
		if d.Sheets[i].Name == name {
			return &d.Sheets[i]
		}
	}
	return nil
}

// Headers returns the column headers in order
func (s *Sheet) Headers() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Header
	}
	return out
}

// Cell constructors
func Empty() Cell          { return Cell{Kind: CellEmpty} }
func String(s string) Cell { return Cell{Kind: CellString, Str: s} }
func Int(n int64) Cell     { return Cell{Kind: CellInt, Int: n} }
func Float(f float64) Cell { return Cell{Kind: CellFloat, Float: f} }
func Bool(b bool) Cell     { return Cell{Kind: CellBool, Bool: b} }
func Unknown() Cell        { return Cell{Kind: CellUnknown} }

// OptionalInt renders nil as an unknown cell
func OptionalInt(p *int64) Cell {
	if p == nil {
		return Unknown()
	}
	return Int(*p)
}

// OptionalFloat renders nil as an unknown cell
func OptionalFloat(p *float64) Cell {
	if p == nil {
		return Unknown()
	}
	return Float(*p)
}

// Text renders the cell for text-only sinks
func (c Cell) Text() string {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellInt:
		return formatInt(c.Int)
	case CellFloat:
		return formatFloat(c.Float)
	case CellBool:
		return formatBool(c.Bool)
	case CellUnknown:
		return UnknownText
	default:
		return ""
	}
}

// Value returns the cell as a Go value suitable for a spreadsheet cell
func (c Cell) Value() interface{} {
	switch c.Kind {
	case CellString:
		return c.Str
	case CellInt:
		return c.Int
	case CellFloat:
		return c.Float
	case CellBool:
		return c.Bool
	case CellUnknown:
		return UnknownText
	default:
		return nil
	}
}
