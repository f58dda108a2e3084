package search

// This file is the only place that knows the job board's field names.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobpulse-engine/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.bdjobs.com"
	DefaultSearchPath = "/Jobs/api/JobSearch/GetJobSearch"
	DefaultSiteURL    = "https://bdjobs.com"

	providerOK = "1"
)

var (
	jobTypeParam = map[JobType]string{
		JobTypeFullTime: "FullTime",
		JobTypePartTime: "PartTime",
		JobTypeContract: "Contract",
		JobTypeIntern:   "Intern",
	}
	jobLevelParam = map[JobLevel]string{
		JobLevelEntry: "Entry",
		JobLevelMid:   "Mid",
		JobLevelTop:   "Top",
	}
	postedWithinParam = map[PostedWithin]string{
		PostedToday:     "1",
		PostedLast2Days: "2",
		PostedLast3Days: "3",
		PostedLast4Days: "4",
		PostedLast5Days: "5",
	}
	workplaceParam = map[WorkArrangement]string{
		WorkOffice:   "0",
		WorkFromHome: "1",
	}
	genderParam = map[Gender]string{
		GenderMale:   "M",
		GenderFemale: "F",
		GenderAny:    "B",
	}

	// Sent empty on every request; the endpoint expects the full set.
	blankParams = []string{
		"Icat", "industry", "category", "org", "jobNature", "Fcat", "Qot",
		"deadline", "MExp", "genderB", "MPostings", "MCat", "version",
		"Newspaper", "armyp", "QDisablePerson", "pwd", "facilitiesForPWD",
		"SaveFilterList", "UserFilterName", "HUserFilterName", "earlyJobAccess",
	}

	dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}
)

// encodeQuery maps a normalized, validated filter onto provider parameters.
func encodeQuery(f Filter) url.Values {
	q := url.Values{}
	for _, k := range blankParams {
		q.Set(k, "")
	}

	types := make([]string, 0, len(f.JobTypes))
	for _, jt := range f.JobTypes {
		types = append(types, jobTypeParam[jt])
	}

	q.Set("keyword", f.Keyword)
	q.Set("location", f.Location)
	q.Set("jobType", strings.Join(types, ","))
	q.Set("jobLevel", jobLevelParam[f.JobLevel])
	q.Set("postedWithin", postedWithinParam[f.PostedWithin])
	q.Set("pg", strconv.Itoa(f.Page))
	q.Set("rpp", strconv.Itoa(f.PageSize))
	q.Set("qAge", rangeParam(f.AgeMin, f.AgeMax))
	q.Set("Salary", rangeParam(f.SalaryMin, f.SalaryMax))
	q.Set("experience", rangeParam(f.ExperienceMin, f.ExperienceMax))
	q.Set("gender", genderParam[f.Gender])
	q.Set("workplace", workplaceParam[f.WorkArrangement])
	q.Set("isPro", "0")
	q.Set("ToggleJobs", "true")
	q.Set("isFresher", strconv.FormatBool(f.FresherOnly))
	return q
}

func rangeParam(lo, hi int) string {
	if lo <= 0 && hi <= 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", lo, hi)
}

type wireResponse struct {
	Message     *string           `json:"message"`
	StatusCode  *flexString       `json:"statuscode"`
	Data        []json.RawMessage `json:"data"`
	PremiumData []json.RawMessage `json:"premiumData"`
	Common      *wireCommon       `json:"common"`
}

type wireCommon struct {
	TotalRecordsFound *flexInt `json:"total_records_found"`
	TotalPages        flexInt  `json:"totalpages"`
	TotalVacancies    flexInt  `json:"total_vacancies"`
}

// decodePage validates the provider body and maps it to a Page.
// Any structural problem fails the whole page.
func decodePage(body []byte, f Filter, siteURL string) (Page, error) {
	var w wireResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&w); err != nil {
		return Page{}, &ResponseSchemaError{Field: "$", Reason: "invalid JSON: " + err.Error()}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Page{}, &ResponseSchemaError{Field: "$", Reason: "trailing data after JSON document"}
	}
	if w.StatusCode == nil {
		return Page{}, &ResponseSchemaError{Field: "statuscode", Reason: "missing"}
	}
	if string(*w.StatusCode) != providerOK {
		msg := ""
		if w.Message != nil {
			msg = *w.Message
		}
		return Page{}, &ProviderError{Code: string(*w.StatusCode), Message: msg}
	}
	if w.Common == nil {
		return Page{}, &ResponseSchemaError{Field: "common", Reason: "missing"}
	}
	if w.Common.TotalRecordsFound == nil {
		return Page{}, &ResponseSchemaError{Field: "common.total_records_found", Reason: "missing"}
	}
	if *w.Common.TotalRecordsFound < 0 || w.Common.TotalPages < 0 {
		return Page{}, &ResponseSchemaError{Field: "common.total_records_found", Reason: "negative count"}
	}

	listings := make([]domain.JobListing, 0, len(w.Data)+len(w.PremiumData))
	for i, raw := range w.Data {
		l, err := mapRecord(raw, fmt.Sprintf("data[%d]", i), siteURL)
		if err != nil {
			return Page{}, err
		}
		listings = append(listings, l)
	}
	for i, raw := range w.PremiumData {
		l, err := mapRecord(raw, fmt.Sprintf("premiumData[%d]", i), siteURL)
		if err != nil {
			return Page{}, err
		}
		l.Featured = true
		listings = append(listings, l)
	}

	total := int(*w.Common.TotalRecordsFound)
	return Page{
		Listings:    listings,
		TotalCount:  total,
		TotalPages:  int(w.Common.TotalPages),
		CurrentPage: f.Page,
		PageSize:    f.PageSize,
		HasNextPage: f.Page*f.PageSize < total,
	}, nil
}

func mapRecord(raw json.RawMessage, path, siteURL string) (domain.JobListing, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return domain.JobListing{}, &ResponseSchemaError{Field: path, Reason: "record is not an object"}
	}

	r := recordReader{fields: fields, path: path}
	l := domain.JobListing{
		ExternalID: strings.TrimSpace(r.id("Jobid")),
		Title:      strings.TrimSpace(r.str("jobTitle", true)),
		Company:    strings.TrimSpace(r.str("companyName", true)),
		Location:   strings.TrimSpace(r.str("location", false)),
		PostedAt:   r.date("publishDate"),
		Deadline:   r.date("deadlineDB"),
		Experience: strings.TrimSpace(r.str("experience", false)),
		Education:  strings.TrimSpace(r.str("eduRec", false)),
		LogoURL:    strings.TrimSpace(r.str("logo", false)),
		Remote:     r.boolean("OnlineJob"),
		Summary:    htmlToText(r.str("jobContext", false)),
	}
	lo, hasMin := r.integer("minSalary")
	hi, hasMax := r.integer("maxSalary")
	if r.err != nil {
		return domain.JobListing{}, r.err
	}
	if hasMin || hasMax {
		l.Salary = &domain.SalaryRange{Min: lo, Max: hi}
	}
	l.URL = siteURL + "/jobs/details/" + url.PathEscape(l.ExternalID)
	if len(r.fields) > 0 {
		l.Raw = r.fields
	}
	return l, nil
}

// recordReader consumes fields from one provider record. Consumed keys are
// removed so the remainder can travel in JobListing.Raw. The first problem
// is kept in err and later reads become no-ops.
type recordReader struct {
	fields map[string]json.RawMessage
	path   string
	err    error
}

func (r *recordReader) fail(key, reason string) {
	if r.err == nil {
		r.err = &ResponseSchemaError{Field: r.path + "." + key, Reason: reason}
	}
}

func (r *recordReader) take(key string) (json.RawMessage, bool) {
	v, ok := r.fields[key]
	delete(r.fields, key)
	if !ok || string(v) == "null" {
		return nil, false
	}
	return v, true
}

func (r *recordReader) id(key string) string {
	v, ok := r.take(key)
	if r.err != nil {
		return ""
	}
	var s flexString
	if !ok {
		r.fail(key, "missing")
		return ""
	}
	if err := json.Unmarshal(v, &s); err != nil || strings.TrimSpace(string(s)) == "" {
		r.fail(key, "must be a non-empty string or number")
		return ""
	}
	return string(s)
}

func (r *recordReader) str(key string, required bool) string {
	v, ok := r.take(key)
	if r.err != nil {
		return ""
	}
	if !ok {
		if required {
			r.fail(key, "missing")
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		r.fail(key, "must be a string")
		return ""
	}
	return s
}

func (r *recordReader) date(key string) time.Time {
	s := strings.TrimSpace(r.str(key, false))
	if r.err != nil || s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	r.fail(key, fmt.Sprintf("unparseable date %q", s))
	return time.Time{}
}

func (r *recordReader) boolean(key string) bool {
	v, ok := r.take(key)
	if r.err != nil || !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(v, &b); err != nil {
		r.fail(key, "must be a boolean")
	}
	return b
}

func (r *recordReader) integer(key string) (int, bool) {
	v, ok := r.take(key)
	if r.err != nil || !ok {
		return 0, false
	}
	var n flexInt
	if err := json.Unmarshal(v, &n); err != nil {
		r.fail(key, "must be a number")
		return 0, false
	}
	return int(n), true
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return fmt.Errorf("want string or number, got %s", b)
	}
	*s = flexString(num.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string. Empty strings are 0.
type flexInt int

func (n *flexInt) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	str := strings.TrimSpace(string(s))
	if str == "" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("want integer, got %q", str)
	}
	*n = flexInt(v)
	return nil
}
