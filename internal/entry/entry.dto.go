package entry

type SubmitDailyEntryRequest struct {
	// EntryDate defaults to the participant's today.
	EntryDate string         `json:"entry_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Values    map[string]any `json:"values" validate:"required"`
}

type CompleteTaskRequest struct {
	Value any `json:"value"`
}

type SubmitDailyEntryResponse struct {
	Entry         *DailyEntry `json:"entry"`
	TotalPoints   int         `json:"total_points"`
	CurrentStreak int         `json:"current_streak"`
}
