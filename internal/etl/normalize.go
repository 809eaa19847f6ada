package etl

import (
	"math"
	"strconv"
	"strings"
)

// ── Field Normalizer ───────────────────────────────────────
// Turns a raw export cell into a rounded number or absence.
// Absence is the only failure signal; nothing here returns an error.

// Value is the result of normalizing a cell: a finite number or absent.
type Value struct {
	num     float64
	present bool
}

// Absent is the value of a cell that holds no usable number.
var Absent = Value{}

// Number wraps a present numeric value.
func Number(f float64) Value { return Value{num: f, present: true} }

// Float64 returns the number and whether it is present.
func (v Value) Float64() (float64, bool) { return v.num, v.present }

// IsAbsent reports whether the cell held no usable number.
func (v Value) IsAbsent() bool { return !v.present }

// placeholders are the export markers for unavailable data, upper-cased:
// suppressed, not evaluated, not applicable, new, excluded, did not sit,
// low coverage, small population.
var placeholders = map[string]struct{}{
	"":       {},
	"SUPP":   {},
	"NE":     {},
	"NA":     {},
	"N/A":    {},
	"NEW":    {},
	"X":      {},
	"DNS":    {},
	"LOWCOV": {},
	"SP":     {},
	"-":      {},
}

// IsPlaceholder reports whether a cleaned token marks unavailable data.
func IsPlaceholder(token string) bool {
	_, ok := placeholders[strings.ToUpper(token)]
	return ok
}

var cellCleaner = strings.NewReplacer("%", "", ",", "")

// Normalize parses a raw cell and rounds it to precision decimal places.
func Normalize(raw string, precision int) Value {
	token := strings.TrimSpace(cellCleaner.Replace(strings.TrimSpace(raw)))
	if IsPlaceholder(token) {
		return Absent
	}
	// Only decimal notation is numeric; ParseFloat would also take hex
	// floats such as 0x1p4.
	if strings.ContainsAny(token, "xX") {
		return Absent
	}
	f, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Absent
	}
	return Number(Round(f, precision))
}

// NormalizeCell normalizes a row's column; a missing column is absent.
func NormalizeCell(r Row, column string, precision int) Value {
	raw, ok := r.Get(column)
	if !ok {
		return Absent
	}
	return Normalize(raw, precision)
}

// Round rounds f to precision decimal places, half to even on the exact
// binary value of f. 12.345 rounds up at two places because its double lies
// above the tie; 0.125 is an exact tie and rounds to 0.12.
func Round(f float64, precision int) float64 {
	if precision < 0 {
		precision = 0
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', precision, 64), 64)
	if err != nil {
		return f
	}
	if r == 0 {
		return 0 // drop the sign of -0
	}
	return r
}
