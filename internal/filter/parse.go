package filter

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// ParseQuery builds a Spec from HTTP query parameters:
//
//	min_<field>=N, max_<field>=N   inclusive range on a numeric field
//	<field>=V                      equality
//	has=<field>                    not null, may repeat
//
// Keys listed in reserved are skipped. Any other key that does not name a
// known field is rejected.
func ParseQuery(q url.Values, reserved ...string) (Spec, error) {
	skip := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		skip[r] = true
	}

	spec := Spec{}
	ranges := map[Field]*Range{}

	set := func(f Field, c Constraint) error {
		if _, dup := spec[f]; dup {
			return invalid(f, "conflicting constraints")
		}
		spec[f] = c
		return nil
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	// deterministic error reporting
	sort.Strings(keys)

	for _, key := range keys {
		if skip[key] {
			continue
		}
		values := q[key]
		if len(values) == 0 {
			continue
		}

		switch {
		case key == "has":
			for _, name := range values {
				f, ok := ParseField(strings.TrimSpace(name))
				if !ok {
					return nil, invalid(Field(name), "unknown field")
				}
				if err := set(f, NotNull{}); err != nil {
					return nil, err
				}
			}

		case strings.HasPrefix(key, "min_"), strings.HasPrefix(key, "max_"):
			name := key[4:]
			f, ok := ParseField(name)
			if !ok {
				return nil, invalid(Field(name), "unknown field")
			}
			if k, _ := f.Kind(); k != KindNumeric {
				return nil, invalid(f, "range requires a numeric field")
			}
			if len(values) > 1 {
				return nil, invalid(f, "%s given more than once", key)
			}
			n, err := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
			if err != nil || !finite(n) {
				return nil, invalid(f, "%s=%q is not a number", key, values[0])
			}
			r := ranges[f]
			if r == nil {
				r = &Range{}
				ranges[f] = r
			}
			if key[:4] == "min_" {
				r.Min = &n
			} else {
				r.Max = &n
			}

		default:
			f, ok := ParseField(key)
			if !ok {
				return nil, invalid(Field(key), "unknown field")
			}
			if len(values) > 1 {
				return nil, invalid(f, "given more than once")
			}
			v, err := parseEquality(f, values[0])
			if err != nil {
				return nil, err
			}
			if err := set(f, Equals{Value: v}); err != nil {
				return nil, err
			}
		}
	}

	for f, r := range ranges {
		if err := set(f, *r); err != nil {
			return nil, err
		}
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseEquality(f Field, raw string) (any, error) {
	kind, _ := f.Kind()
	raw = strings.TrimSpace(raw)

	switch kind {
	case KindNumeric:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil || !finite(n) {
			return nil, invalid(f, "%q is not a number", raw)
		}
		return n, nil
	case KindFlag:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, invalid(f, "%q is not a boolean", raw)
		}
		return b, nil
	default:
		return raw, nil
	}
}
