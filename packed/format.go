package packed

import "strconv"

// intToString renders an integer entry's bytes the same way a string entry
// holding the decimal form of that integer would render, so Value.AsBytes
// gives byte-lexicographic comparisons a stable view across both entry
// kinds.
func intToString(i int64) string {
	return strconv.FormatInt(i, 10)
}
