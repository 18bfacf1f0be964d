package expr

// Typed is a column whose comparison helpers only accept values of the
// column's Go type.
//
//	var Name = expr.Text(Company.C("name"))
//	query.From(Company).Where(Name.HasPrefix("AC"))
type Typed[T any] struct {
	x Expr
}

// Of returns e with helpers typed for values of T.
func Of[T any](e Expr) Typed[T] { return Typed[T]{x: e} }

// Expr returns the wrapped column.
func (c Typed[T]) Expr() Expr { return c.x }

// EQ returns c = v.
func (c Typed[T]) EQ(v T) *Binary { return EQ(c.x, v) }

// NEQ returns c <> v.
func (c Typed[T]) NEQ(v T) *Binary { return NEQ(c.x, v) }

// GT returns c > v.
func (c Typed[T]) GT(v T) *Binary { return GT(c.x, v) }

// GTE returns c >= v.
func (c Typed[T]) GTE(v T) *Binary { return GTE(c.x, v) }

// LT returns c < v.
func (c Typed[T]) LT(v T) *Binary { return LT(c.x, v) }

// LTE returns c <= v.
func (c Typed[T]) LTE(v T) *Binary { return LTE(c.x, v) }

// In returns c IN (vs...).
func (c Typed[T]) In(vs ...T) *Binary { return In(c.x, vs...) }

// NotIn returns c NOT IN (vs...).
func (c Typed[T]) NotIn(vs ...T) *Binary { return NotIn(c.x, vs...) }

// IsNull returns c IS NULL.
func (c Typed[T]) IsNull() *Unary { return IsNull(c.x) }

// NotNull returns c IS NOT NULL.
func (c Typed[T]) NotNull() *Unary { return NotNull(c.x) }

// TextColumn adds the string matching helpers to a typed string column.
type TextColumn struct {
	Typed[string]
}

// Text returns e with helpers typed for strings.
func Text(e Expr) TextColumn { return TextColumn{Of[string](e)} }

func (c TextColumn) Contains(s string) *Binary      { return Contains(c.x, s) }
func (c TextColumn) ContainsFold(s string) *Binary  { return ContainsFold(c.x, s) }
func (c TextColumn) HasPrefix(s string) *Binary     { return HasPrefix(c.x, s) }
func (c TextColumn) HasPrefixFold(s string) *Binary { return HasPrefixFold(c.x, s) }
func (c TextColumn) HasSuffix(s string) *Binary     { return HasSuffix(c.x, s) }
func (c TextColumn) HasSuffixFold(s string) *Binary { return HasSuffixFold(c.x, s) }
func (c TextColumn) EqualFold(s string) *Binary     { return EqualFold(c.x, s) }
