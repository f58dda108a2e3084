package domain

import "time"

// TrackedJob is a listing the user saved, with its lifecycle state.
type TrackedJob struct {
	ID        int64      `json:"id"`
	Listing   JobListing `json:"listing"`
	Status    Status     `json:"status"`
	Notes     string     `json:"notes"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// StatusChange is one entry of a tracked job's status history.
type StatusChange struct {
	ID           int64     `json:"id"`
	TrackedJobID int64     `json:"trackedJobId"`
	Title        string    `json:"title,omitempty"`
	Company      string    `json:"company,omitempty"`
	From         Status    `json:"from"`
	To           Status    `json:"to"`
	At           time.Time `json:"at"`
}
