package patient

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Optional carries a value together with whether it was supplied at all.
// The zero Optional is absent.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Patch is a sparse update to a patient. Only fields with Set are applied;
// the id and the derived fields cannot be patched.
type Patch struct {
	Name   Optional[string]
	City   Optional[string]
	Age    Optional[int]
	Gender Optional[string]
	Height Optional[float64]
	Weight Optional[float64]
}

// Validate checks the supplied fields against the record constraints.
func (p Patch) Validate() error {
	verr := &ValidationError{}
	p.validate(verr)
	return verr.orNil()
}

func (p Patch) validate(verr *ValidationError) {
	set := p.supplied()
	validateFields(p.Apply(Fields{}), verr, func(field string) bool { return set[field] })
}

func (p Patch) supplied() map[string]bool {
	return map[string]bool{
		"name":   p.Name.Set,
		"city":   p.City.Set,
		"age":    p.Age.Set,
		"gender": p.Gender.Set,
		"height": p.Height.Set,
		"weight": p.Weight.Set,
	}
}

// Apply returns f with every supplied field of p written over it.
func (p Patch) Apply(f Fields) Fields {
	if p.Name.Set {
		f.Name = p.Name.Value
	}
	if p.City.Set {
		f.City = p.City.Value
	}
	if p.Age.Set {
		f.Age = p.Age.Value
	}
	if p.Gender.Set {
		f.Gender = p.Gender.Value
	}
	if p.Height.Set {
		f.Height = p.Height.Value
	}
	if p.Weight.Set {
		f.Weight = p.Weight.Value
	}
	return f
}

// Draft is the body of a create request: an id plus every authored field.
type Draft struct {
	ID Optional[string]
	Patch
}

// Patient checks that every field was supplied and builds the validated
// patient.
func (d Draft) Patient() (Patient, error) {
	verr := &ValidationError{}
	if !d.ID.Set {
		verr.add("id", "missing", "Field required")
	} else if d.ID.Value == "" {
		verr.add("id", "string_too_short", "String should have at least 1 character")
	}
	for _, field := range fieldOrder {
		if !d.supplied()[field] {
			verr.add(field, "missing", "Field required")
		}
	}
	d.Patch.validate(verr)
	if err := verr.orNil(); err != nil {
		return Patient{}, err
	}
	return NewPatient(d.ID.Value, d.Apply(Fields{}))
}

var fieldOrder = []string{"name", "city", "age", "gender", "height", "weight"}

// DecodePatch reads a JSON object into a Patch. Unknown keys, including id,
// bmi and verdict, are ignored. Type mismatches and explicit nulls are
// reported as a *ValidationError.
func DecodePatch(data []byte) (Patch, error) {
	verr := &ValidationError{}
	raw, ok := decodeObject(data, verr)
	if !ok {
		return Patch{}, verr
	}
	p := decodePatch(raw, verr)
	if err := verr.orNil(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// DecodeDraft reads a JSON object into a Draft. Presence is not enforced
// here; Draft.Patient does that.
func DecodeDraft(data []byte) (Draft, error) {
	verr := &ValidationError{}
	raw, ok := decodeObject(data, verr)
	if !ok {
		return Draft{}, verr
	}
	d := Draft{
		ID:    decodeField(raw, "id", parseString, verr),
		Patch: decodePatch(raw, verr),
	}
	if err := verr.orNil(); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func decodeObject(data []byte, verr *ValidationError) (map[string]json.RawMessage, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		verr.add("body", "missing", "Field required")
		return nil, false
	}
	if !json.Valid(data) {
		verr.add("body", "json_invalid", "JSON decode error")
		return nil, false
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		verr.add("body", "model_attributes_type", "Input should be a valid dictionary or object to extract fields from")
		return nil, false
	}
	return raw, true
}

func decodePatch(raw map[string]json.RawMessage, verr *ValidationError) Patch {
	return Patch{
		Name:   decodeField(raw, "name", parseString, verr),
		City:   decodeField(raw, "city", parseString, verr),
		Age:    decodeField(raw, "age", parseInt, verr),
		Gender: decodeField(raw, "gender", parseString, verr),
		Height: decodeField(raw, "height", parseFloat, verr),
		Weight: decodeField(raw, "weight", parseFloat, verr),
	}
}

type fieldParser[T any] struct {
	parse      func(json.RawMessage) (T, bool)
	constraint string
	message    string

	// fromString, when set, also accepts the value as a JSON string.
	fromString    func(string) (T, bool)
	strConstraint string
	strMessage    string
}

var (
	parseString = fieldParser[string]{
		parse: func(m json.RawMessage) (string, bool) {
			var s string
			return s, json.Unmarshal(m, &s) == nil
		},
		constraint: "string_type",
		message:    "Input should be a valid string",
	}
	// parseInt accepts integral JSON numbers such as 42 and 42.0, and
	// strings holding an integer.
	parseInt = fieldParser[int]{
		parse: func(m json.RawMessage) (int, bool) {
			var f float64
			if json.Unmarshal(m, &f) != nil || f != math.Trunc(f) {
				return 0, false
			}
			return clampInt(f), true
		},
		constraint: "int_type",
		message:    "Input should be a valid integer",
		fromString: func(s string) (int, bool) {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
					return int(n), true
				}
				return 0, false
			}
			return int(n), true
		},
		strConstraint: "int_parsing",
		strMessage:    "Input should be a valid integer, unable to parse string as an integer",
	}
	parseFloat = fieldParser[float64]{
		parse: func(m json.RawMessage) (float64, bool) {
			var f float64
			return f, json.Unmarshal(m, &f) == nil
		},
		constraint: "float_type",
		message:    "Input should be a valid number",
		fromString: func(s string) (float64, bool) {
			f, err := strconv.ParseFloat(s, 64)
			return f, err == nil
		},
		strConstraint: "float_parsing",
		strMessage:    "Input should be a valid number, unable to parse string as a number",
	}
)

// clampInt converts an integral float, saturating at the int range so an
// out-of-range age still fails the bounds check rather than the type check.
func clampInt(f float64) int {
	switch {
	case f >= math.MaxInt:
		return math.MaxInt
	case f <= math.MinInt:
		return math.MinInt
	}
	return int(f)
}

func decodeField[T any](raw map[string]json.RawMessage, name string, p fieldParser[T], verr *ValidationError) Optional[T] {
	m, ok := raw[name]
	if !ok {
		return Optional[T]{}
	}
	if string(bytes.TrimSpace(m)) == "null" {
		verr.add(name, "null", "Input should not be null")
		return Optional[T]{}
	}
	if v, ok := p.parse(m); ok {
		return Some(v)
	}
	var str string
	if p.fromString != nil && json.Unmarshal(m, &str) == nil {
		if v, ok := p.fromString(strings.TrimSpace(str)); ok {
			return Some(v)
		}
		verr.add(name, p.strConstraint, p.strMessage)
		return Optional[T]{}
	}
	verr.add(name, p.constraint, p.message)
	return Optional[T]{}
}
