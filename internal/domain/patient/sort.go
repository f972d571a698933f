package patient

import "sort"

type SortField string

const (
	SortByHeight SortField = "height"
	SortByWeight SortField = "weight"
	SortByBMI    SortField = "bmi"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// ParseSortField accepts height, weight or bmi.
func ParseSortField(s string) (SortField, error) {
	switch f := SortField(s); f {
	case SortByHeight, SortByWeight, SortByBMI:
		return f, nil
	}
	return "", invalidArgument("Invalid sort_by field. Must be one of ['height', 'weight', 'bmi']")
}

// ParseSortOrder accepts asc or desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case Ascending, Descending:
		return o, nil
	}
	return "", invalidArgument("Invalid order. Must be 'asc' or 'desc'")
}

func (f SortField) value(p Patient) float64 {
	switch f {
	case SortByHeight:
		return p.Height
	case SortByWeight:
		return p.Weight
	default:
		return p.BMI
	}
}

// sortPatients orders ps in place. Equal keys keep their relative order in
// both directions.
func sortPatients(ps []Patient, field SortField, order SortOrder) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := field.value(ps[i]), field.value(ps[j])
		if order == Descending {
			return a > b
		}
		return a < b
	})
}
