package schedule

import "sort"

// AnnealTables spreads each power-supply group's move start times evenly
// across a common window to reduce peak concurrent power draw — spec
// §4.5's anneal_tables. annealTimeSec <= 0 means "do not anneal" (the
// Python original takes a nilable anneal_time argument for the same
// purpose; a non-positive duration is this port's equivalent sentinel).
// The window actually used is max(annealTimeSec, the longest table's total
// time), since a group can never be squeezed shorter than its slowest move.
func (s *Stage) AnnealTables(annealTimeSec float64) (float64, error) {
	if annealTimeSec <= 0 || len(s.Tables) == 0 {
		return 0, nil
	}

	times := make(map[string]float64, len(s.Tables))
	origMax := 0.0
	for posid, table := range s.Tables {
		total := table.TotalTime()
		times[posid] = total
		if total > origMax {
			origMax = total
		}
	}
	window := annealTimeSec
	if origMax > window {
		window = origMax
	}

	supplies := make([]string, 0, len(s.cfg.SupplyGroups))
	for supply := range s.cfg.SupplyGroups {
		supplies = append(supplies, supply)
	}
	sort.Strings(supplies)

	for _, supply := range supplies {
		present := make([]string, 0, len(s.cfg.SupplyGroups[supply]))
		for _, posid := range s.cfg.SupplyGroups[supply] {
			if _, ok := times[posid]; ok {
				present = append(present, posid)
			}
		}
		if len(present) == 0 {
			continue
		}

		var group []string
		groupTime := 0.0
		for i, posid := range present {
			group = append(group, posid)
			groupTime += times[posid]
			isLast := i == len(present)-1
			if groupTime <= window && !isLast {
				continue
			}

			n := len(group)
			nominalSpacing := window / float64(n+1)
			center := 0.0
			for _, p := range group {
				center += nominalSpacing
				start := center - times[p]/2
				if start < 0 {
					start = 0
				}
				finish := start + times[p]
				if finish > window {
					start = window - times[p]
				}
				if err := s.Tables[p].SetPrepause(0, start); err != nil {
					return 0, err
				}
			}
			group = nil
			groupTime = 0
		}
	}
	return window, nil
}
