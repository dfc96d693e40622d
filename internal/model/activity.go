package model

import "time"

// Activity is one logged occurrence of something the user did on a given
// day. Date carries day precision only (normalized to midnight UTC by the
// service); streaks are computed from the set of distinct dates.
type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// Streak summarizes a user's activity consistency. Current is the number
// of consecutive days with at least one activity, counting back from
// today (or yesterday, so an unfinished day doesn't break the run).
type Streak struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}
