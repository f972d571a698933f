package patient

import (
	"math"
	"strconv"
	"strings"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

var validGenders = map[Gender]bool{
	GenderMale: true, GenderFemale: true, GenderOther: true,
}

// ParseGender normalises s to lowercase and reports whether it names a
// supported gender.
func ParseGender(s string) (Gender, bool) {
	g := Gender(strings.ToLower(s))
	return g, validGenders[g]
}

type Verdict string

const (
	VerdictUnderweight Verdict = "Underweight"
	VerdictNormal      Verdict = "Normal weight"
	VerdictOverweight  Verdict = "Overweight"
	VerdictObesity     Verdict = "Obesity"
)

const (
	MinAge = 0
	MaxAge = 150
)

// Fields holds the authored attributes of a patient. Everything else on a
// Record is derived from these.
type Fields struct {
	Name   string
	City   string
	Age    int
	Gender string
	Height float64
	Weight float64
}

// Record is the stored value of a patient. The id is the collection key and
// is not part of the record. BMI and Verdict are only ever set by NewRecord.
type Record struct {
	Name    string  `json:"name"`
	City    string  `json:"city"`
	Age     int     `json:"age"`
	Gender  Gender  `json:"gender"`
	Height  float64 `json:"height"`
	Weight  float64 `json:"weight"`
	BMI     float64 `json:"bmi"`
	Verdict Verdict `json:"verdict"`
}

// Patient is a record paired with its id, as shown to clients.
type Patient struct {
	ID string `json:"id"`
	Record
}

// NewRecord validates f, lowercases the gender and computes the derived
// fields. All violated constraints are reported in one *ValidationError.
func NewRecord(f Fields) (Record, error) {
	verr := &ValidationError{}
	validateFields(f, verr, func(string) bool { return true })
	if err := verr.orNil(); err != nil {
		return Record{}, err
	}
	bmi := ComputeBMI(f.Height, f.Weight)
	if math.IsInf(bmi, 0) || math.IsNaN(bmi) {
		verr.add("height", "finite_number", "Height is too small for a finite BMI")
		return Record{}, verr
	}
	g, _ := ParseGender(f.Gender)
	return Record{
		Name:    f.Name,
		City:    f.City,
		Age:     f.Age,
		Gender:  g,
		Height:  f.Height,
		Weight:  f.Weight,
		BMI:     bmi,
		Verdict: ClassifyBMI(bmi),
	}, nil
}

// NewPatient is NewRecord plus a non-empty id.
func NewPatient(id string, f Fields) (Patient, error) {
	verr := &ValidationError{}
	if id == "" {
		verr.add("id", "string_too_short", "String should have at least 1 character")
	}
	rec, err := NewRecord(f)
	if err != nil {
		verr.Fields = append(verr.Fields, err.(*ValidationError).Fields...)
	}
	if err := verr.orNil(); err != nil {
		return Patient{}, err
	}
	return Patient{ID: id, Record: rec}, nil
}

// Fields returns the authored attributes of r.
func (r Record) Fields() Fields {
	return Fields{
		Name:   r.Name,
		City:   r.City,
		Age:    r.Age,
		Gender: string(r.Gender),
		Height: r.Height,
		Weight: r.Weight,
	}
}

// rederive recomputes BMI and Verdict from the stored height and weight.
func (r *Record) rederive() {
	if r.Height > 0 && r.Weight > 0 {
		bmi := ComputeBMI(r.Height, r.Weight)
		if math.IsInf(bmi, 0) || math.IsNaN(bmi) {
			return
		}
		r.BMI = bmi
		r.Verdict = ClassifyBMI(bmi)
	}
}

// ComputeBMI returns weight / height² rounded half-to-even to two decimals
// on the exact binary value.
func ComputeBMI(height, weight float64) float64 {
	return round2(weight / (height * height))
}

func round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

// ClassifyBMI buckets a rounded BMI. Values in [24.9, 25) are not covered by
// the normal or overweight bands and fall through to Obesity.
func ClassifyBMI(bmi float64) Verdict {
	switch {
	case bmi < 18.5:
		return VerdictUnderweight
	case bmi >= 18.5 && bmi < 24.9:
		return VerdictNormal
	case bmi >= 25 && bmi < 29.9:
		return VerdictOverweight
	default:
		return VerdictObesity
	}
}

// validateFields checks every field for which include returns true.
func validateFields(f Fields, verr *ValidationError, include func(string) bool) {
	if include("name") {
		checkNonEmpty("name", f.Name, verr)
	}
	if include("city") {
		checkNonEmpty("city", f.City, verr)
	}
	if include("age") {
		switch {
		case f.Age <= MinAge:
			verr.add("age", "greater_than", "Input should be greater than 0")
		case f.Age >= MaxAge:
			verr.add("age", "less_than", "Input should be less than 150")
		}
	}
	if include("gender") {
		if _, ok := ParseGender(f.Gender); !ok {
			verr.add("gender", "literal_error", "Input should be 'male', 'female' or 'other'")
		}
	}
	if include("height") {
		checkPositive("height", f.Height, verr)
	}
	if include("weight") {
		checkPositive("weight", f.Weight, verr)
	}
}

func checkNonEmpty(field, v string, verr *ValidationError) {
	if v == "" {
		verr.add(field, "string_too_short", "String should have at least 1 character")
	}
}

func checkPositive(field string, v float64, verr *ValidationError) {
	switch {
	case math.IsInf(v, 0) || math.IsNaN(v):
		verr.add(field, "finite_number", "Input should be a finite number")
	case !(v > 0):
		verr.add(field, "greater_than", "Input should be greater than 0")
	}
}
