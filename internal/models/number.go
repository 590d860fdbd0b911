package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
)

// Number is a nullable float column. The pipeline scripts write some numeric
// columns as text or integers, so Scan coerces every storage class to
// float64. A value that cannot be parsed is logged and read as null rather
// than failing the whole query.
type Number struct {
	Float64 float64
	Valid   bool
}

// Num returns a valid Number.
func Num(v float64) Number {
	return Number{Float64: v, Valid: true}
}

// Positive reports whether the number is present, finite and greater than zero.
func (n Number) Positive() bool {
	return n.Present() && n.Float64 > 0
}

// Present reports whether the number is set and finite.
func (n Number) Present() bool {
	return n.Valid && !math.IsNaN(n.Float64) && !math.IsInf(n.Float64, 0)
}

// Ptr returns nil for a null number.
func (n Number) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

func (n Number) String() string {
	if !n.Valid {
		return "null"
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

// Scan implements sql.Scanner.
func (n *Number) Scan(src any) error {
	*n = Number{}
	switch v := src.(type) {
	case nil:
		return nil
	case float64:
		*n = Num(v)
	case float32:
		*n = Num(float64(v))
	case int64:
		*n = Num(float64(v))
	case int32:
		*n = Num(float64(v))
	case int:
		*n = Num(float64(v))
	case bool:
		if v {
			*n = Num(1)
		} else {
			*n = Num(0)
		}
	case []byte:
		n.parse(string(v))
	case string:
		n.parse(v)
	default:
		log.Printf("[models] unsupported numeric value type=%T treated as null", src)
	}
	return nil
}

func (n *Number) parse(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		log.Printf("[models] non-numeric value %q treated as null", s)
		return
	}
	*n = Num(f)
}

// Value implements driver.Valuer.
func (n Number) Value() (driver.Value, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Float64, nil
}

// GormDataType maps the column to a floating point type on every dialect.
func (Number) GormDataType() string {
	return "float"
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Present() {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		n.parse(str)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("number: %w", err)
	}
	*n = Num(f)
	return nil
}
