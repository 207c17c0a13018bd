package person

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Validate checks the invariants of a Person built by a caller.
func Validate(p Person) error {
	if p.Age < 0 {
		return &ValidationError{Field: FieldAge, Value: strconv.Itoa(p.Age), Reason: "must not be negative"}
	}
	return nil
}

// ParseInt parses a whole number typed by a user. Surrounding whitespace is ignored.
func ParseInt(field, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ValidationError{Field: field, Value: s, Reason: "not an integer"}
	}
	return n, nil
}

// ParseAge parses an age typed by a user: a non-negative integer.
func ParseAge(field, s string) (int, error) {
	n, err := ParseInt(field, s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &ValidationError{Field: field, Value: s, Reason: "must not be negative"}
	}
	return n, nil
}

// ParsePerson builds a Person from raw text inputs.
func ParsePerson(firstName, lastName, age string) (Person, error) {
	n, err := ParseAge(FieldAge, age)
	if err != nil {
		return Person{}, err
	}
	return Person{FirstName: firstName, LastName: lastName, Age: n}, nil
}

// ParsePatch builds a Patch from raw text inputs. Empty inputs are left out of
// the patch, so they leave the stored value unchanged.
func ParsePatch(firstName, lastName, age string) (Patch, error) {
	var p Patch
	if firstName != "" {
		p.FirstName = &firstName
	}
	if lastName != "" {
		p.LastName = &lastName
	}
	if strings.TrimSpace(age) != "" {
		n, err := ParseAge(FieldAge, age)
		if err != nil {
			return Patch{}, err
		}
		p.Age = &n
	}
	return p, nil
}

// PatchFromMap converts a decoded JSON object into a Patch. Unknown keys and
// values of the wrong type are rejected.
func PatchFromMap(m map[string]any) (Patch, error) {
	var p Patch
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := m[k]
		switch k {
		case FieldFirstName, FieldLastName:
			s, ok := v.(string)
			if !ok {
				return Patch{}, &ValidationError{Field: k, Value: fmt.Sprint(v), Reason: "must be a string"}
			}
			if k == FieldFirstName {
				p.FirstName = &s
			} else {
				p.LastName = &s
			}
		case FieldAge:
			n, err := toInt(v)
			if err != nil {
				return Patch{}, &ValidationError{Field: k, Value: fmt.Sprint(v), Reason: err.Error()}
			}
			if n < 0 {
				return Patch{}, &ValidationError{Field: k, Value: strconv.Itoa(n), Reason: "must not be negative"}
			}
			p.Age = &n
		default:
			return Patch{}, &ValidationError{Field: k, Reason: "unknown field"}
		}
	}
	return p, nil
}

var (
	errNotInteger = errors.New("not an integer")
	errOutOfRange = errors.New("out of range")
)

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, errOutOfRange
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, errNotInteger
		}
		// -math.MinInt is 2^63 on 64-bit, exactly representable as a float64.
		if n < math.MinInt || n >= -math.MinInt {
			return 0, errOutOfRange
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return toInt(i)
		}
		if errors.Is(err, strconv.ErrRange) {
			return 0, errOutOfRange
		}
		f, err := n.Float64()
		if err != nil {
			return 0, errNotInteger
		}
		return toInt(f)
	}
	return 0, errNotInteger
}
