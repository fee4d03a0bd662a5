// Package model defines shared data structures for the ingest service.
package model

import "time"

// Source is one listing-search page to ingest, tagged with the category it
// was configured under.
type Source struct {
	JobType string
	URL     string
}

// Listing is a normalised offer extracted from a listing-search page.
// JobType is empty until the orchestrator tags it.
type Listing struct {
	Title            string    `json:"title"`
	RequiredSkills   []string  `json:"requiredSkills"`
	AdditionalSkills []string  `json:"additionalSkills"`
	WorkplaceType    string    `json:"workplaceType"`
	RemoteInterview  bool      `json:"remoteInterview"`
	URL              string    `json:"url"`
	Slug             string    `json:"slug"`
	PaymentFrom      *float64  `json:"paymentFrom,omitempty"`
	PaymentTo        *float64  `json:"paymentTo,omitempty"`
	Location         string    `json:"location"`
	Company          string    `json:"company"`
	Date             time.Time `json:"date"`
	JobType          string    `json:"jobType,omitempty"`
}

// DateString renders Date the way every store persists it.
func (l Listing) DateString() string {
	return l.Date.Format("2006-01-02")
}

// TagJobType returns copies of listings carrying the given job type.
func TagJobType(listings []Listing, jobType string) []Listing {
	out := make([]Listing, len(listings))
	for i, l := range listings {
		l.JobType = jobType
		out[i] = l
	}
	return out
}
