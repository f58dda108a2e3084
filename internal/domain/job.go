package domain

import (
	"encoding/json"
	"time"
)

// JobListing is one search result as the provider returned it.
type JobListing struct {
	ExternalID string       `json:"externalId"`
	Title      string       `json:"title"`
	Company    string       `json:"company"`
	Location   string       `json:"location"`
	PostedAt   time.Time    `json:"postedAt"`
	Deadline   time.Time    `json:"deadline"`
	Salary     *SalaryRange `json:"salary,omitempty"`
	URL        string       `json:"url"`
	Experience string       `json:"experience,omitempty"`
	Education  string       `json:"education,omitempty"`
	LogoURL    string       `json:"logoUrl,omitempty"`
	Remote     bool         `json:"remote"`
	Featured   bool         `json:"featured"`
	Summary    string       `json:"summary,omitempty"`

	// Raw holds provider fields not mapped above.
	Raw map[string]json.RawMessage `json:"raw,omitempty"`
}

type SalaryRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}
