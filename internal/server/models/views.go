package models

// ChallengeSummary is a list row: the challenge plus where "today" falls in it.
type ChallengeSummary struct {
	Challenge
	CurrentDayNumber int  `json:"current_day_number"`
	IsFinished       bool `json:"is_finished"`
}

// ChallengeDetail is the full day grid of one challenge.
//
// DailyProgress[i] is the completion percentage of day i+1.
type ChallengeDetail struct {
	Challenge        Challenge      `json:"challenge"`
	CurrentDate      string         `json:"current_date"`
	CurrentDayNumber int            `json:"current_day_number"`
	IsFinished       bool           `json:"is_finished"`
	TasksByDay       map[int][]Task `json:"tasks_by_day"`
	DailyProgress    []int          `json:"daily_progress"`
}
