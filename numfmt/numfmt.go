// Package numfmt provides the deterministic floating-point formatter
// spec.md §6 requires: "specify a formatter and use it uniformly" so that
// HINCRBYFLOAT/ZINCRBY results converge identically across replicas
// regardless of platform rounding differences, which is the entire reason
// the HINCRBYFLOAT replication rewrite (§6) exists in the first place.
package numfmt

import "strconv"

// FormatFloat renders f as the shortest decimal string that round-trips
// back to f exactly, with at most 17 significant digits (float64's
// round-trip guarantee bound), matching spec.md §6's reply-formatting
// rule for double replies.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ParseFloat parses s as a float64 with strconv.ParseFloat, so it accepts
// everything that function accepts, including infinities, NaN and
// hexadecimal floats.
func ParseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
