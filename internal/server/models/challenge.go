package models

import "time"

type Challenge struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"-"`
	Name         string    `json:"name"`
	StartDate    Date      `json:"start_date"`
	DurationDays int       `json:"duration_days"`
	CreatedAt    time.Time `json:"created_at"`
}

// Task is one row of a challenge's day grid.
type Task struct {
	ID          int64  `json:"id"`
	ChallengeID int64  `json:"challenge_id"`
	Name        string `json:"name"`
	DayNumber   int    `json:"day_number"`
	IsFixed     bool   `json:"is_fixed"`
	IsCompleted bool   `json:"is_completed"`
}
