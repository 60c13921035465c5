package query

import "sort"

// personField returns the value of the named numeric attribute, or 0 if
// key names no known field of PersonRow (§4.9: "missing keys sort as
// zero").
func personField(p PersonRow, key string) float64 {
	switch key {
	case "touches":
		return float64(p.Touches)
	case "commit_count":
		return float64(p.CommitCount)
	case "sensitive_touches":
		return p.SensitiveTouches
	case "primary_tz_minutes":
		return float64(p.PrimaryTZMinutes)
	default:
		return 0
	}
}

func fileField(f FileRow, key string) float64 {
	switch key {
	case "touches":
		return float64(f.Touches)
	case "commit_count":
		return float64(f.CommitCount)
	case "bus_factor":
		return float64(f.BusFactor)
	case "sensitivity_score":
		return f.SensitivityScore
	default:
		return 0
	}
}

func edgeField(e EdgeRow, key string) float64 {
	switch key {
	case "touches":
		return float64(e.Touches)
	case "recency_weight":
		return e.RecencyWeight
	case "sensitive_weight":
		return e.SensitiveWeight
	default:
		return 0
	}
}

func cochangeField(c CoChangeRow, key string) float64 {
	switch key {
	case "cochange_count":
		return float64(c.CochangeCount)
	case "jaccard":
		return c.Jaccard
	default:
		return 0
	}
}

// sortLimitPeople sorts descending by key (ties broken lexicographically
// by person_id) and truncates to limit (limit <= 0 means unlimited).
func sortLimitPeople(rows []PersonRow, key string, limit int) []PersonRow {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := personField(rows[i], key), personField(rows[j], key)
		if vi != vj {
			return vi > vj
		}
		return rows[i].PersonID < rows[j].PersonID
	})
	return truncatePeople(rows, limit)
}

func truncatePeople(rows []PersonRow, limit int) []PersonRow {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func sortLimitFiles(rows []FileRow, key string, limit int) []FileRow {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := fileField(rows[i], key), fileField(rows[j], key)
		if vi != vj {
			return vi > vj
		}
		return rows[i].Path < rows[j].Path
	})
	return truncateFiles(rows, limit)
}

func truncateFiles(rows []FileRow, limit int) []FileRow {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func sortLimitEdges(rows []EdgeRow, key string, limit int) []EdgeRow {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := edgeField(rows[i], key), edgeField(rows[j], key)
		if vi != vj {
			return vi > vj
		}
		if rows[i].PersonID != rows[j].PersonID {
			return rows[i].PersonID < rows[j].PersonID
		}
		return rows[i].FileID < rows[j].FileID
	})
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}

func sortLimitCoChange(rows []CoChangeRow, key string, limit int) []CoChangeRow {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := cochangeField(rows[i], key), cochangeField(rows[j], key)
		if vi != vj {
			return vi > vj
		}
		return rows[i].FileB < rows[j].FileB
	})
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
