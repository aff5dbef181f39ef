package scoring

type Totals struct {
	DailyPoints    int `json:"daily_points"`
	BonusPoints    int `json:"bonus_points"`
	OnetimePoints  int `json:"onetime_points"`
	PeriodicPoints int `json:"periodic_points"`
	TotalPoints    int `json:"total_points"`
}

// Aggregate recomputes a participant's points from every stored record.
// Totals are never patched incrementally, so deletions and rescoring cannot
// drift.
func Aggregate(daily []DailyRecord, onetime []OnetimeRecord, periodic []PeriodicRecord) Totals {
	var t Totals
	for _, d := range daily {
		t.DailyPoints += d.PointsEarned
		t.BonusPoints += d.BonusPoints
	}
	for _, o := range onetime {
		t.OnetimePoints += o.PointsEarned
	}
	for _, p := range periodic {
		t.PeriodicPoints += p.PointsEarned
	}
	t.TotalPoints = t.DailyPoints + t.BonusPoints + t.OnetimePoints + t.PeriodicPoints
	return t
}
