package sequence

// Resolve returns the best Ready frame for target without blocking: the
// frame at target itself if Ready, otherwise the Ready frame closest in
// index. Equal distances go to the lower index. ok is false while no frame
// is Ready at all.
func Resolve(s *Store, target int) (f Frame, ok bool) {
	if f, ok := s.Get(target); ok {
		return f, true
	}

	best := -1
	s.eachReady(func(c Frame) bool {
		if best < 0 {
			f, best = c, c.Index
			return true
		}
		d, bd := distance(c.Index, target), distance(best, target)
		if d < bd || (d == bd && c.Index < best) {
			f, best = c, c.Index
		}
		return true
	})
	return f, best >= 0
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
