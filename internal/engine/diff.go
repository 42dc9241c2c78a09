package engine

// Diff splits two collections by membership: elements appearing only in a and
// elements appearing only in b. Input order is preserved and duplicates are
// collapsed. Commits use it twice, once to find tiles newly placed on the
// table and once to prove every newly placed tile came out of the acting
// player's hand.
func Diff[T comparable](a, b []T) (onlyA, onlyB []T) {
	inA := make(map[T]struct{}, len(a))
	for _, v := range a {
		inA[v] = struct{}{}
	}
	inB := make(map[T]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	seen := make(map[T]struct{}, len(a)+len(b))
	for _, v := range a {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := inB[v]; !ok {
			onlyA = append(onlyA, v)
		}
	}
	clear(seen)
	for _, v := range b {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		if _, ok := inA[v]; !ok {
			onlyB = append(onlyB, v)
		}
	}
	return onlyA, onlyB
}
