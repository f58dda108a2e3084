package search

import "strings"

type JobType string

const (
	JobTypeFullTime JobType = "full-time"
	JobTypePartTime JobType = "part-time"
	JobTypeContract JobType = "contract"
	JobTypeIntern   JobType = "intern"
)

type JobLevel string

const (
	JobLevelEntry JobLevel = "entry"
	JobLevelMid   JobLevel = "mid"
	JobLevelTop   JobLevel = "top"
)

type PostedWithin string

const (
	PostedToday     PostedWithin = "today"
	PostedLast2Days PostedWithin = "last-2-days"
	PostedLast3Days PostedWithin = "last-3-days"
	PostedLast4Days PostedWithin = "last-4-days"
	PostedLast5Days PostedWithin = "last-5-days"
)

type WorkArrangement string

const (
	WorkOffice   WorkArrangement = "office"
	WorkFromHome WorkArrangement = "work-from-home"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderAny    Gender = "any"
)

// Filter is the user's search criteria. Range bounds of 0 mean "not set".
type Filter struct {
	Keyword         string          `json:"keyword,omitempty" validate:"max=200"`
	Location        string          `json:"location,omitempty" validate:"max=64"`
	JobTypes        []JobType       `json:"jobType,omitempty" validate:"dive,oneof=full-time part-time contract intern"`
	JobLevel        JobLevel        `json:"jobLevel,omitempty" validate:"omitempty,oneof=entry mid top"`
	PostedWithin    PostedWithin    `json:"postedWithin,omitempty" validate:"omitempty,oneof=today last-2-days last-3-days last-4-days last-5-days"`
	ExperienceMin   int             `json:"experienceMin,omitempty" validate:"gte=0"`
	ExperienceMax   int             `json:"experienceMax,omitempty" validate:"gte=0"`
	SalaryMin       int             `json:"salaryMin,omitempty" validate:"gte=0"`
	SalaryMax       int             `json:"salaryMax,omitempty" validate:"gte=0"`
	AgeMin          int             `json:"ageMin,omitempty" validate:"gte=0"`
	AgeMax          int             `json:"ageMax,omitempty" validate:"gte=0"`
	Gender          Gender          `json:"gender,omitempty" validate:"omitempty,oneof=male female any"`
	WorkArrangement WorkArrangement `json:"workArrangement,omitempty" validate:"omitempty,oneof=office work-from-home"`
	FresherOnly     bool            `json:"fresherOnly,omitempty"`
	Page            int             `json:"page,omitempty" validate:"gte=1"`
	PageSize        int             `json:"pageSize,omitempty" validate:"gte=1"`
}

// WithPage returns a copy of f asking for page n.
func (f Filter) WithPage(n int) Filter {
	out := f
	out.JobTypes = append([]JobType(nil), f.JobTypes...)
	out.Page = n
	return out
}

// normalized fills defaults and trims free text. It never fixes invalid values.
func (f Filter) normalized(defaultPageSize int) Filter {
	out := f.WithPage(f.Page)
	out.Keyword = strings.TrimSpace(out.Keyword)
	out.Location = strings.TrimSpace(out.Location)
	if out.Page == 0 {
		out.Page = 1
	}
	if out.PageSize == 0 {
		out.PageSize = defaultPageSize
	}
	return out
}
