package patient

import (
	"errors"
	"math"
	"testing"
)

func validFields() Fields {
	return Fields{Name: "Ravi", City: "Pune", Age: 30, Gender: "male", Height: 1.75, Weight: 70}
}

func TestComputeBMI(t *testing.T) {
	tests := []struct {
		height, weight float64
		want           float64
	}{
		{1.75, 70, 22.86},
		{1.8, 90, 27.78},
		{1.6, 45, 17.58},
		{2.0, 100, 25},
	}
	for _, tt := range tests {
		if got := ComputeBMI(tt.height, tt.weight); got != tt.want {
			t.Errorf("ComputeBMI(%v, %v) = %v, want %v", tt.height, tt.weight, got, tt.want)
		}
	}
}

func TestRound2_HalfEvenOnBinaryValue(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12}, // exact tie rounds to even
		{0.375, 0.38},
		{2.675, 2.67}, // stored just below the tie
		{22.857142857, 22.86},
		{25, 25},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Errorf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClassifyBMI(t *testing.T) {
	tests := []struct {
		bmi  float64
		want Verdict
	}{
		{10, VerdictUnderweight},
		{18.49, VerdictUnderweight},
		{18.5, VerdictNormal},
		{22.86, VerdictNormal},
		{24.89, VerdictNormal},
		{24.9, VerdictObesity},
		{24.95, VerdictObesity},
		{25, VerdictOverweight},
		{29.89, VerdictOverweight},
		{29.9, VerdictObesity},
		{42, VerdictObesity},
	}
	for _, tt := range tests {
		if got := ClassifyBMI(tt.bmi); got != tt.want {
			t.Errorf("ClassifyBMI(%v) = %q, want %q", tt.bmi, got, tt.want)
		}
	}
}

func TestNewRecord(t *testing.T) {
	rec, err := NewRecord(validFields())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.BMI != 22.86 {
		t.Errorf("expected bmi 22.86, got %v", rec.BMI)
	}
	if rec.Verdict != VerdictNormal {
		t.Errorf("expected Normal weight, got %s", rec.Verdict)
	}
	if rec.Fields() != validFields() {
		t.Errorf("Fields() = %+v, want %+v", rec.Fields(), validFields())
	}
}

func TestNewRecord_NormalisesGender(t *testing.T) {
	f := validFields()
	f.Gender = "Female"
	rec, err := NewRecord(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Gender != GenderFemale {
		t.Errorf("expected female, got %s", rec.Gender)
	}
}

func TestNewRecord_ReportsEveryViolation(t *testing.T) {
	_, err := NewRecord(Fields{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	for _, field := range []string{"name", "city", "age", "gender", "height", "weight"} {
		if !verr.Has(field) {
			t.Errorf("expected violation for %s", field)
		}
	}
	if len(verr.Fields) != 6 {
		t.Errorf("expected 6 violations, got %d", len(verr.Fields))
	}
}

func TestNewRecord_Constraints(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Fields)
		field      string
		constraint string
	}{
		{"age zero", func(f *Fields) { f.Age = 0 }, "age", "greater_than"},
		{"age 150", func(f *Fields) { f.Age = 150 }, "age", "less_than"},
		{"empty name", func(f *Fields) { f.Name = "" }, "name", "string_too_short"},
		{"unknown gender", func(f *Fields) { f.Gender = "unknown" }, "gender", "literal_error"},
		{"negative height", func(f *Fields) { f.Height = -1 }, "height", "greater_than"},
		{"zero weight", func(f *Fields) { f.Weight = 0 }, "weight", "greater_than"},
		{"nan weight", func(f *Fields) { f.Weight = math.NaN() }, "weight", "finite_number"},
		{"infinite height", func(f *Fields) { f.Height = math.Inf(1) }, "height", "finite_number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFields()
			tt.mutate(&f)
			_, err := NewRecord(f)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected one violation, got %+v", verr.Fields)
			}
			got := verr.Fields[0]
			if got.Field != tt.field || got.Constraint != tt.constraint {
				t.Errorf("got %s/%s, want %s/%s", got.Field, got.Constraint, tt.field, tt.constraint)
			}
		})
	}
}

func TestNewRecord_RejectsNonFiniteBMI(t *testing.T) {
	f := validFields()
	f.Height = 1e-200

	_, err := NewRecord(f)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !verr.Has("height") || verr.Fields[0].Constraint != "finite_number" {
		t.Errorf("unexpected violations %+v", verr.Fields)
	}
	if Outcome(err) != "invalid" {
		t.Errorf("expected outcome invalid, got %s", Outcome(err))
	}
}

func TestNewRecord_AgeBounds(t *testing.T) {
	for _, age := range []int{1, 149} {
		f := validFields()
		f.Age = age
		if _, err := NewRecord(f); err != nil {
			t.Errorf("age %d: unexpected error: %v", age, err)
		}
	}
}

func TestNewPatient_EmptyID(t *testing.T) {
	f := validFields()
	f.City = ""
	_, err := NewPatient("", f)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if !verr.Has("id") || !verr.Has("city") {
		t.Errorf("expected id and city violations, got %+v", verr.Fields)
	}
}

func TestParseGender(t *testing.T) {
	if g, ok := ParseGender("OTHER"); !ok || g != GenderOther {
		t.Errorf("ParseGender(OTHER) = %q, %v", g, ok)
	}
	if _, ok := ParseGender("m"); ok {
		t.Error("expected m to be rejected")
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{&ValidationError{Fields: []FieldError{{Field: "age"}}}, "invalid"},
		{ErrNotFound, "not_found"},
		{ErrConflict, "conflict"},
		{invalidArgument("bad"), "bad_argument"},
		{storageErr("load", errors.New("disk")), "storage_error"},
		{errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		if got := Outcome(tt.err); got != tt.want {
			t.Errorf("Outcome(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}
}

func TestStorageErr_DoesNotDoubleWrap(t *testing.T) {
	inner := storageErr("load", errors.New("disk"))
	outer := storageErr("save", inner)
	if outer != inner {
		t.Errorf("expected the original StorageError back, got %v", outer)
	}
	if !errors.Is(outer, ErrStorage) {
		t.Error("expected errors.Is(err, ErrStorage)")
	}
}

func TestArgumentMessage(t *testing.T) {
	err := invalidArgument("Invalid order. Must be 'asc' or 'desc'")
	if got := ArgumentMessage(err); got != "Invalid order. Must be 'asc' or 'desc'" {
		t.Errorf("unexpected message %q", got)
	}
}
