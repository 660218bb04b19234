package main

// ProjectionSpec selects and transforms the columns a table job carries to
// the target. Entries preserve config-file order. Inclusive mode (the "*"
// key) starts from every source column and applies overrides; exclusive mode
// keeps only the listed entries.
type ProjectionSpec struct {
	Inclusive bool
	Entries   []ProjectionEntry
}

// ProjectionEntry maps a target column to a source SQL expression. Expr is
// trusted config-author SQL and is inserted verbatim. Exclude marks the
// column for removal (inclusive mode only).
type ProjectionEntry struct {
	Column  string
	Expr    string
	Exclude bool
}

// compileProjection resolves a projection against the introspected source
// columns and returns the target column list in final order. A nil spec is
// the identity projection: every source column, unchanged, in source order.
func compileProjection(p *ProjectionSpec, source []Column) ([]ProjectedColumn, error) {
	if p == nil {
		return identityProjection(source), nil
	}
	if p.Inclusive {
		return compileInclusive(p, source)
	}
	return compileExclusive(p, source)
}

func identityProjection(source []Column) []ProjectedColumn {
	out := make([]ProjectedColumn, len(source))
	for i, c := range source {
		out[i] = ProjectedColumn{
			Name:        c.Name,
			Expr:        pgIdent(c.Name),
			Passthrough: true,
			SourceType:  c.DataType,
			Nullable:    c.Nullable,
		}
	}
	return out
}

// compileExclusive keeps exactly the listed entries, in listing order.
// Exclusion markers are rejected: with no implicit columns there is nothing
// to exclude from, so the intent is ambiguous.
func compileExclusive(p *ProjectionSpec, source []Column) ([]ProjectedColumn, error) {
	if len(p.Entries) == 0 {
		return nil, configErrorf("projection selects no columns")
	}
	byName := columnIndex(source)

	out := make([]ProjectedColumn, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.Exclude {
			return nil, configErrorf("projection: cannot exclude %q without \"*\"", e.Column)
		}
		pc, err := resolveEntry(e, byName)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, nil
}

// compileInclusive starts from all source columns identity-projected, then
// applies each entry: excludes remove the column, overrides replace it in
// place, new columns append at the position of first mention.
func compileInclusive(p *ProjectionSpec, source []Column) ([]ProjectedColumn, error) {
	byName := columnIndex(source)

	out := identityProjection(source)
	for _, e := range p.Entries {
		pos := -1
		for i := range out {
			if out[i].Name == e.Column {
				pos = i
				break
			}
		}
		switch {
		case e.Exclude:
			if pos >= 0 {
				out = append(out[:pos], out[pos+1:]...)
			}
		default:
			pc, err := resolveEntry(e, byName)
			if err != nil {
				return nil, err
			}
			if pos >= 0 {
				out[pos] = pc
			} else {
				out = append(out, pc)
			}
		}
	}
	return out, nil
}

func resolveEntry(e ProjectionEntry, byName map[string]Column) (ProjectedColumn, error) {
	// A bare reference to an existing source column keeps its type; any
	// other expression is treated as transformed and lands as text.
	if src, ok := byName[e.Column]; ok && (e.Expr == "" || e.Expr == e.Column || e.Expr == pgIdent(e.Column)) {
		return ProjectedColumn{
			Name:        e.Column,
			Expr:        pgIdent(e.Column),
			Passthrough: true,
			SourceType:  src.DataType,
			Nullable:    src.Nullable,
		}, nil
	}
	if e.Expr == "" {
		return ProjectedColumn{}, configErrorf("projection: %q is not a source column and has no expression", e.Column)
	}
	return ProjectedColumn{
		Name:     e.Column,
		Expr:     e.Expr,
		Nullable: true,
	}, nil
}

func columnIndex(source []Column) map[string]Column {
	byName := make(map[string]Column, len(source))
	for _, c := range source {
		byName[c.Name] = c
	}
	return byName
}
