package fork

import "strconv"

// runAtom renders a run-length atom: a single marker byte followed by
// the decimal run length, e.g. "<13" or "]4".
func runAtom(marker byte, length int) string {
	return string(marker) + strconv.Itoa(length)
}
