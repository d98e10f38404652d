package models

// Transitions maps each status to its allowed successors. A status with an
// empty successor list is terminal.
type Transitions[S ~string] map[S][]S

// Allows reports whether from -> to is a legal move.
func (t Transitions[S]) Allows(from, to S) bool {
	allowed, exists := t[from]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func (t Transitions[S]) Known(s S) bool {
	_, ok := t[s]
	return ok
}

func (t Transitions[S]) IsTerminal(s S) bool {
	allowed, ok := t[s]
	return ok && len(allowed) == 0
}
