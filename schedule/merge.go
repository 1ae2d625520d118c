package schedule

import "go.viam.com/fpp/movetable"

// mergeStages concatenates one or more stages' per-positioner tables in
// order, equalizing each stage's table times first so every positioner
// reaches each stage boundary together — spec §4.5 "Stage merging". A
// positioner present in a later stage but not an earlier one (or vice
// versa) simply contributes no rows for the stage it's absent from.
func mergeStages(stages ...*Stage) (map[string]*movetable.Table, error) {
	posids := make(map[string]bool)
	for _, stage := range stages {
		if _, err := stage.EqualizeTableTimes(); err != nil {
			return nil, err
		}
		for posid := range stage.Tables {
			posids[posid] = true
		}
	}

	merged := make(map[string]*movetable.Table, len(posids))
	for posid := range posids {
		var combined *movetable.Table
		for _, stage := range stages {
			table, ok := stage.Tables[posid]
			if !ok {
				continue
			}
			if combined == nil {
				combined = table.Clone()
				continue
			}
			if err := combined.Extend(table); err != nil {
				return nil, err
			}
		}
		merged[posid] = combined
	}
	return merged, nil
}
