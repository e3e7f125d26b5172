package store

import (
	"strings"
)

type assignment struct {
	column string
	value  any
}

// Patch is an ordered set of column assignments for a partial update. Column
// names only ever come from the typed update structs in this package, so no
// caller input reaches the SQL text.
type Patch struct {
	assignments []assignment
}

func (p *Patch) set(column string, value any) {
	p.assignments = append(p.assignments, assignment{column: column, value: value})
}

// setBilingual assigns <field>_en and <field>_fa. A nil value leaves them alone.
func (p *Patch) setBilingual(field string, b *Bilingual) {
	if b == nil {
		return
	}
	n := b.Normalize()
	p.set(field+"_en", n.EN)
	p.set(field+"_fa", n.FA)
}

func (p *Patch) setString(column string, v *string) {
	if v != nil {
		p.set(column, strings.TrimSpace(*v))
	}
}

func (p *Patch) setBool(column string, v *bool) {
	if v != nil {
		p.set(column, boolToInt(*v))
	}
}

// Len returns the number of column assignments.
func (p *Patch) Len() int {
	return len(p.assignments)
}

// Columns returns the assigned column names in order.
func (p *Patch) Columns() []string {
	cols := make([]string, len(p.assignments))
	for i, a := range p.assignments {
		cols[i] = a.column
	}
	return cols
}

// clause renders "col = ?, col = ?" plus the matching arguments.
func (p *Patch) clause() (string, []any) {
	parts := make([]string, len(p.assignments))
	args := make([]any, len(p.assignments))
	for i, a := range p.assignments {
		parts[i] = a.column + " = ?"
		args[i] = a.value
	}
	return strings.Join(parts, ", "), args
}

// updateSQL builds an UPDATE for table that always bumps updated_at.
func (p *Patch) updateSQL(table, id, updatedAt string) (string, []any) {
	set, args := p.clause()
	if set != "" {
		set += ", "
	}
	set += "updated_at = ?"
	args = append(args, updatedAt, id)
	return "UPDATE " + table + " SET " + set + " WHERE id = ?", args
}
