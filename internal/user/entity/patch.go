package entity

// Column names a patch may touch. id and created_at are deliberately absent.
const (
	ColUsername = "username"
	ColEmail    = "email"
	ColPassword = "password"
	ColRemark   = "remark"
	ColIsAdmin  = "is_admin"
	ColHeight   = "height"
	ColWeight   = "weight"
	ColAge      = "age"
)

// MutableColumns lists the patchable columns in the order they appear in
// generated UPDATE statements.
var MutableColumns = []string{
	ColUsername, ColEmail, ColPassword, ColRemark, ColIsAdmin, ColHeight, ColWeight, ColAge,
}

// Patch is a partial update: a mapping from column to new value where only
// the columns present are written. A nil value on a nullable column clears
// it, which is different from the column being absent.
type Patch struct {
	values map[string]any
}

func NewPatch() *Patch { return &Patch{values: map[string]any{}} }

func (p *Patch) set(col string, v any) *Patch {
	if p.values == nil {
		p.values = map[string]any{}
	}
	p.values[col] = v
	return p
}

func (p *Patch) SetUsername(v string) *Patch { return p.set(ColUsername, v) }
func (p *Patch) SetEmail(v string) *Patch    { return p.set(ColEmail, v) }

// SetPasswordHash stores an already hashed password. Plaintext never goes here.
func (p *Patch) SetPasswordHash(v string) *Patch { return p.set(ColPassword, v) }
func (p *Patch) SetIsAdmin(v bool) *Patch         { return p.set(ColIsAdmin, v) }

func (p *Patch) SetRemark(v *string) *Patch {
	if v == nil {
		return p.set(ColRemark, nil)
	}
	return p.set(ColRemark, *v)
}

func (p *Patch) SetHeight(v *float64) *Patch {
	if v == nil {
		return p.set(ColHeight, nil)
	}
	return p.set(ColHeight, *v)
}

func (p *Patch) SetWeight(v *float64) *Patch {
	if v == nil {
		return p.set(ColWeight, nil)
	}
	return p.set(ColWeight, *v)
}

func (p *Patch) SetAge(v *int64) *Patch {
	if v == nil {
		return p.set(ColAge, nil)
	}
	return p.set(ColAge, *v)
}

// Has reports whether col was supplied.
func (p *Patch) Has(col string) bool {
	if p == nil {
		return false
	}
	_, ok := p.values[col]
	return ok
}

// Value returns the supplied value for col (nil when cleared or absent).
func (p *Patch) Value(col string) any {
	if p == nil {
		return nil
	}
	return p.values[col]
}

// Len is the number of supplied columns.
func (p *Patch) Len() int {
	if p == nil {
		return 0
	}
	return len(p.values)
}

// Columns returns the supplied columns in MutableColumns order.
func (p *Patch) Columns() []string {
	cols := make([]string, 0, p.Len())
	for _, c := range MutableColumns {
		if p.Has(c) {
			cols = append(cols, c)
		}
	}
	return cols
}
