package components

// Sentinel turns a "near the end of the list" condition into a single
// trigger on the transition from not visible to visible.
type Sentinel struct {
	visible bool
}

// Observe records the current visibility and reports whether it just became visible.
func (s *Sentinel) Observe(visible bool) bool {
	triggered := visible && !s.visible
	s.visible = visible
	return triggered
}

func (s *Sentinel) Reset() {
	s.visible = false
}

// NearEnd reports whether index is within lookahead rows of the end of a list of n items.
func NearEnd(index, n, lookahead int) bool {
	if lookahead < 0 {
		lookahead = 0
	}
	return index >= n-1-lookahead
}
