// Package filter describes listing queries as typed constraints over a closed
// set of columns and compiles them to parameterized SQL conditions.
package filter

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Field is a filterable listings column.
type Field string

// Kind is the value shape a field accepts.
type Kind int

const (
	KindNumeric Kind = iota
	KindText
	KindFlag
)

// Numeric fields
const (
	Price                    Field = "price"
	Beds                     Field = "beds"
	Baths                    Field = "baths"
	Sqft                     Field = "sqft"
	YearBuilt                Field = "year_built"
	HOAFee                   Field = "hoa_fee"
	DaysOnMarket             Field = "days_on_market"
	DaysOnCompass            Field = "days_on_compass"
	PricePerSqft             Field = "price_per_sqft"
	EstimatedRent            Field = "estimated_rent"
	RentYield                Field = "rent_yield"
	EstimatedMonthlyCashflow Field = "estimated_monthly_cashflow"
	WalkScore                Field = "walk_score"
	TransitScore             Field = "transit_score"
	BikeScore                Field = "bike_score"
	Latitude                 Field = "latitude"
	Longitude                Field = "longitude"
)

// Text fields
const (
	City           Field = "city"
	State          Field = "state"
	Zip            Field = "zip"
	Status         Field = "status"
	MLSNumber      Field = "mls_number"
	MLSType        Field = "mls_type"
	TaxInformation Field = "tax_information"
	Style          Field = "style"
	Source         Field = "source"
	FromCollection Field = "from_collection"
)

// Favorite is the 0/1 user flag.
const Favorite Field = "favorite"

var fieldKinds = map[Field]Kind{
	Price:                    KindNumeric,
	Beds:                     KindNumeric,
	Baths:                    KindNumeric,
	Sqft:                     KindNumeric,
	YearBuilt:                KindNumeric,
	HOAFee:                   KindNumeric,
	DaysOnMarket:             KindNumeric,
	DaysOnCompass:            KindNumeric,
	PricePerSqft:             KindNumeric,
	EstimatedRent:            KindNumeric,
	RentYield:                KindNumeric,
	EstimatedMonthlyCashflow: KindNumeric,
	WalkScore:                KindNumeric,
	TransitScore:             KindNumeric,
	BikeScore:                KindNumeric,
	Latitude:                 KindNumeric,
	Longitude:                KindNumeric,
	City:                     KindText,
	State:                    KindText,
	Zip:                      KindText,
	Status:                   KindText,
	MLSNumber:                KindText,
	MLSType:                  KindText,
	TaxInformation:           KindText,
	Style:                    KindText,
	Source:                   KindText,
	FromCollection:           KindText,
	Favorite:                 KindFlag,
}

// ParseField looks a column name up in the allow-list.
func ParseField(name string) (Field, bool) {
	f := Field(name)
	_, ok := fieldKinds[f]
	return f, ok
}

// Kind returns the value shape of a known field.
func (f Field) Kind() (Kind, bool) {
	k, ok := fieldKinds[f]
	return k, ok
}

// Fields returns every filterable field sorted by name.
func Fields() []Field {
	out := make([]Field, 0, len(fieldKinds))
	for f := range fieldKinds {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Constraint is one of Range, NotNull or Equals.
type Constraint interface {
	isConstraint()
}

// Range is an inclusive numeric range. A nil bound is open.
type Range struct {
	Min *float64
	Max *float64
}

// NotNull requires the column to hold a value.
type NotNull struct{}

// Equals requires an exact match. Numeric fields take a number, text fields a
// string and the favorite flag a bool or 0/1.
type Equals struct {
	Value any
}

func (Range) isConstraint()   {}
func (NotNull) isConstraint() {}
func (Equals) isConstraint()  {}

// Between is shorthand for a closed range.
func Between(min, max float64) Range {
	return Range{Min: &min, Max: &max}
}

// AtLeast is shorthand for a range with only a lower bound.
func AtLeast(min float64) Range {
	return Range{Min: &min}
}

// AtMost is shorthand for a range with only an upper bound.
func AtMost(max float64) Range {
	return Range{Max: &max}
}

// Spec maps fields to constraints. A nil or empty Spec matches everything.
type Spec map[Field]Constraint

// ErrInvalidFilter is matched by every *InvalidFilterError.
var ErrInvalidFilter = errors.New("invalid filter")

// InvalidFilterError names the field that could not be applied.
type InvalidFilterError struct {
	Field  string
	Reason string
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("invalid filter on %q: %s", e.Field, e.Reason)
}

func (e *InvalidFilterError) Unwrap() error {
	return ErrInvalidFilter
}

func invalid(f Field, format string, args ...any) *InvalidFilterError {
	return &InvalidFilterError{Field: string(f), Reason: fmt.Sprintf(format, args...)}
}

// Condition is a single SQL predicate with ? placeholders.
type Condition struct {
	SQL  string
	Args []any
}

// Validate checks every entry without compiling it.
func (s Spec) Validate() error {
	_, err := s.Compile()
	return err
}

// Compile turns the spec into conditions ordered by field name. Either every
// entry compiles or an *InvalidFilterError is returned and nothing is.
func (s Spec) Compile() ([]Condition, error) {
	fields := make([]Field, 0, len(s))
	for f := range s {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })

	conds := make([]Condition, 0, len(fields))
	for _, f := range fields {
		kind, ok := f.Kind()
		if !ok {
			return nil, invalid(f, "unknown field")
		}
		cs, err := compileOne(f, kind, s[f])
		if err != nil {
			return nil, err
		}
		conds = append(conds, cs...)
	}
	return conds, nil
}

func compileOne(f Field, kind Kind, c Constraint) ([]Condition, error) {
	col := string(f)

	switch c := c.(type) {
	case nil:
		return nil, invalid(f, "missing constraint")

	case NotNull:
		return []Condition{{SQL: col + " IS NOT NULL"}}, nil

	case Range:
		if kind != KindNumeric {
			return nil, invalid(f, "range requires a numeric field")
		}
		if c.Min != nil && !finite(*c.Min) {
			return nil, invalid(f, "minimum is not a finite number")
		}
		if c.Max != nil && !finite(*c.Max) {
			return nil, invalid(f, "maximum is not a finite number")
		}
		if c.Min != nil && c.Max != nil && *c.Min > *c.Max {
			return nil, invalid(f, "minimum %g is greater than maximum %g", *c.Min, *c.Max)
		}
		var conds []Condition
		if c.Min != nil {
			conds = append(conds, Condition{SQL: col + " >= ?", Args: []any{*c.Min}})
		}
		if c.Max != nil {
			conds = append(conds, Condition{SQL: col + " <= ?", Args: []any{*c.Max}})
		}
		return conds, nil

	case Equals:
		v, err := equalityValue(f, kind, c.Value)
		if err != nil {
			return nil, err
		}
		return []Condition{{SQL: col + " = ?", Args: []any{v}}}, nil

	default:
		return nil, invalid(f, "unsupported constraint %T", c)
	}
}

func equalityValue(f Field, kind Kind, v any) (any, error) {
	if v == nil {
		return nil, invalid(f, "equality value is nil")
	}

	switch kind {
	case KindNumeric:
		n, ok := toFloat(v)
		if !ok {
			return nil, invalid(f, "expected a number, got %T", v)
		}
		if !finite(n) {
			return nil, invalid(f, "value is not a finite number")
		}
		return n, nil

	case KindText:
		s, ok := v.(string)
		if !ok {
			return nil, invalid(f, "expected a string, got %T", v)
		}
		return s, nil

	case KindFlag:
		switch b := v.(type) {
		case bool:
			if b {
				return 1, nil
			}
			return 0, nil
		case int, int32, int64:
			if n, _ := toFloat(b); n == 0 || n == 1 {
				return int(n), nil
			}
		}
		return nil, invalid(f, "expected true/false or 0/1, got %v", v)
	}

	return nil, invalid(f, "unknown field kind")
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
