package main

// Column describes a single source column from the PostgreSQL catalog.
type Column struct {
	Name       string
	DataType   string // formatted type, e.g. "integer", "character varying(150)"
	Nullable   bool
	OrdinalPos int
}

// ConstraintKind enumerates the constraint types the replicator handles.
type ConstraintKind int

const (
	PrimaryKey ConstraintKind = iota
	Unique
	Check
	ForeignKey
)

func (k ConstraintKind) String() string {
	switch k {
	case PrimaryKey:
		return "PRIMARY KEY"
	case Unique:
		return "UNIQUE"
	case Check:
		return "CHECK"
	case ForeignKey:
		return "FOREIGN KEY"
	}
	return "UNKNOWN"
}

// Constraint describes an introspected table constraint.
type Constraint struct {
	Name       string
	Kind       ConstraintKind
	Columns    []string // participating local columns, in key order
	Definition string   // pg_get_constraintdef output, used verbatim for CHECK

	// Foreign-key specifics.
	RefSchema  string
	RefTable   string
	RefColumns []string
	UpdateRule string // NO ACTION, RESTRICT, CASCADE, SET NULL, SET DEFAULT
	DeleteRule string
}

// TableStructure holds everything introspected about one source table.
type TableStructure struct {
	Name        string
	Columns     []Column
	Constraints []Constraint
}

// ColumnNames returns the column names in ordinal order.
func (t *TableStructure) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ProjectedColumn is one output column of a compiled projection.
// Passthrough marks expressions that are a bare, unmodified source column;
// those reuse the source column type in the target table.
type ProjectedColumn struct {
	Name        string
	Expr        string
	Passthrough bool
	SourceType  string
	Nullable    bool
}
