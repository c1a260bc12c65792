// Package tabkey derives the canonical cache key for a video tab.
package tabkey

import "strings"

// separator starts the chain of extra query parameters (playlist, index,
// timestamp, tracking) that follow the video id on a watch URL.
const separator = "&"

// Key is the canonical identity of a video session.
type Key string

// Normalize strips everything from the first separator onward.
// Normalize(Normalize(a)) == Normalize(a) for every address.
func Normalize(address string) Key {
	before, _, _ := strings.Cut(address, separator)
	return Key(before)
}

// LiveKeys returns the set of canonical keys for the given tab addresses.
func LiveKeys(addresses []string) map[Key]struct{} {
	live := make(map[Key]struct{}, len(addresses))
	for _, addr := range addresses {
		live[Normalize(addr)] = struct{}{}
	}
	return live
}

func (k Key) String() string { return string(k) }
