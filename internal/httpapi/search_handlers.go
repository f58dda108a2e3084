package httpapi

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/search"
)

type SearchHandler struct {
	Searcher Searcher
	Log      *logging.Logger
}

// Search runs GET /search?keyword=...&page=... and returns one page.
func (h SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	page, err := h.Searcher.Search(r.Context(), f)
	if err != nil {
		writeErr(w, r, h.Log, err)
		return
	}
	writeJSON(w, page)
}

// parseFilter reads query parameters named like the Filter's JSON fields.
// jobType may repeat or hold a comma separated list.
func parseFilter(q url.Values) (search.Filter, error) {
	f := search.Filter{
		Keyword:         q.Get("keyword"),
		Location:        q.Get("location"),
		JobLevel:        search.JobLevel(q.Get("jobLevel")),
		PostedWithin:    search.PostedWithin(q.Get("postedWithin")),
		Gender:          search.Gender(q.Get("gender")),
		WorkArrangement: search.WorkArrangement(q.Get("workArrangement")),
	}
	for _, v := range q["jobType"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.JobTypes = append(f.JobTypes, search.JobType(t))
			}
		}
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"experienceMin", &f.ExperienceMin},
		{"experienceMax", &f.ExperienceMax},
		{"salaryMin", &f.SalaryMin},
		{"salaryMax", &f.SalaryMax},
		{"ageMin", &f.AgeMin},
		{"ageMax", &f.AgeMax},
		{"page", &f.Page},
		{"pageSize", &f.PageSize},
	}
	for _, p := range ints {
		raw := strings.TrimSpace(q.Get(p.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return search.Filter{}, &search.ValidationError{Field: p.name, Reason: "must be an integer"}
		}
		*p.dst = n
	}

	if raw := q.Get("fresherOnly"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return search.Filter{}, &search.ValidationError{Field: "fresherOnly", Reason: "must be true or false"}
		}
		f.FresherOnly = b
	}
	return f, nil
}
