package battleship

// NextLiveIndex searches the roster after current, wrapping around, for
// the next contestant satisfying isLive. The search covers the whole
// roster once, so current itself is the last candidate.
func NextLiveIndex(roster []*Contestant, current int, isLive func(*Contestant) bool) (int, bool) {
	n := len(roster)
	if n == 0 {
		return 0, false
	}

	for step := 1; step <= n; step++ {
		idx := ((current+step)%n + n) % n
		if isLive(roster[idx]) {
			return idx, true
		}
	}
	return 0, false
}

func liveCount(roster []*Contestant) int {
	count := 0
	for _, c := range roster {
		if c.IsAlive() {
			count++
		}
	}
	return count
}
