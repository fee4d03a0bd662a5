package scraper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"jobmate/ingest-service/internal/model"
)

const (
	// pagesMarker opens the embedded pages array in a listing-search response.
	pagesMarker = `{"pages":`
	// metaMarker follows the pages payload and precedes response metadata.
	metaMarker = `"meta":`

	unknown = "Unknown"
)

// Stage names the extraction step that rejected a response.
type Stage string

const (
	StageMarkerNotFound Stage = "marker-not-found"
	StageParseFailure   Stage = "parse-failure"
	StageMissingField   Stage = "missing-required-field"
)

// MalformedResponseError reports a listing-search response whose payload
// could not be located or decoded. It is fatal to the source URL only.
type MalformedResponseError struct {
	Stage  Stage
	Detail string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	msg := fmt.Sprintf("malformed response (%s): %s", e.Stage, e.Detail)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// IsStage reports whether err is a MalformedResponseError raised at stage.
func IsStage(err error, stage Stage) bool {
	var mErr *MalformedResponseError
	return errors.As(err, &mErr) && mErr.Stage == stage
}

// Extractor turns a raw listing-search response into listings.
type Extractor struct {
	DetailBaseURL string
	now           func() time.Time
}

// NewExtractor constructs an Extractor. Listing URLs are built as
// {detailBaseURL}/{slug}.
func NewExtractor(detailBaseURL string, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{DetailBaseURL: strings.TrimRight(detailBaseURL, "/"), now: now}
}

// rawPage mirrors one entry of the embedded pages array.
type rawPage struct {
	Data *[]rawListing `json:"data"`
}

// rawListing mirrors a single offer object of the source.
type rawListing struct {
	Slug             *string         `json:"slug"`
	Title            *string         `json:"title"`
	RequiredSkills   skillList       `json:"requiredSkills"`
	NiceToHaveSkills skillList       `json:"niceToHaveSkills"`
	WorkplaceType    string          `json:"workplaceType"`
	RemoteInterview  bool            `json:"remoteInterview"`
	EmploymentTypes  []rawEmployment `json:"employmentTypes"`
	City             *string         `json:"city"`
	CompanyName      *string         `json:"companyName"`
}

type rawEmployment struct {
	FromPln amount `json:"fromPln"`
	ToPln   amount `json:"toPln"`
}

// amount accepts a JSON number, a numeric string or null.
type amount struct{ v *float64 }

func (a *amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		a.v = nil
		return nil
	}
	text := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &text); err != nil {
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			a.v = nil
			return nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("amount %s: %w", b, err)
	}
	a.v = &f
	return nil
}

// skillList accepts either ["Go","SQL"] or [{"name":"Go"},...]. Order and
// duplicates are preserved.
type skillList []string

func (s *skillList) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = nil
		return nil
	}
	var names []string
	if err := json.Unmarshal(b, &names); err == nil {
		*s = names
		return nil
	}
	var objs []struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &objs); err != nil {
		return err
	}
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Name)
	}
	*s = out
	return nil
}

// Extract locates the pages payload between the known markers, decodes it
// and maps every listing of the first page. A response without the markers
// is an error, never an empty result.
func (e *Extractor) Extract(body string) ([]model.Listing, error) {
	pages, err := slicePages(body)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 || pages[0].Data == nil {
		return nil, &MalformedResponseError{Stage: StageMissingField, Detail: "first page has no data array"}
	}

	raw := *pages[0].Data
	day := e.runDate()
	listings := make([]model.Listing, 0, len(raw))
	for i, r := range raw {
		l, err := e.mapListing(r, day)
		if err != nil {
			return nil, &MalformedResponseError{
				Stage:  StageMissingField,
				Detail: fmt.Sprintf("listing %d", i),
				Err:    err,
			}
		}
		listings = append(listings, l)
	}
	return listings, nil
}

// slicePages cuts the text strictly between the markers and decodes it. The
// slice is tried as-is first, then repaired by closing the page object and
// the array it was cut out of.
func slicePages(body string) ([]rawPage, error) {
	start := strings.Index(body, pagesMarker)
	if start < 0 {
		return nil, &MalformedResponseError{Stage: StageMarkerNotFound, Detail: "opening marker " + pagesMarker}
	}
	start += len(pagesMarker)
	end := strings.Index(body[start:], metaMarker)
	if end < 0 {
		return nil, &MalformedResponseError{Stage: StageMarkerNotFound, Detail: "closing marker " + metaMarker}
	}

	slice := strings.TrimRight(body[start:start+end], " \t\r\n")
	slice = strings.TrimSuffix(slice, ",")

	var pages []rawPage
	firstErr := json.Unmarshal([]byte(slice), &pages)
	if firstErr == nil {
		return pages, nil
	}
	var repaired []rawPage
	if err := json.Unmarshal([]byte(slice+"}]"), &repaired); err != nil {
		return nil, &MalformedResponseError{Stage: StageParseFailure, Detail: "pages payload", Err: errors.Join(firstErr, err)}
	}
	return repaired, nil
}

func (e *Extractor) mapListing(r rawListing, day time.Time) (model.Listing, error) {
	if r.Slug == nil || strings.TrimSpace(*r.Slug) == "" {
		return model.Listing{}, errors.New("slug is missing")
	}
	if r.Title == nil {
		return model.Listing{}, fmt.Errorf("title is missing for slug %q", *r.Slug)
	}

	l := model.Listing{
		Title:            *r.Title,
		RequiredSkills:   nonNil(r.RequiredSkills),
		AdditionalSkills: nonNil(r.NiceToHaveSkills),
		WorkplaceType:    r.WorkplaceType,
		RemoteInterview:  r.RemoteInterview,
		URL:              e.DetailBaseURL + "/" + *r.Slug,
		Slug:             *r.Slug,
		Location:         orUnknown(r.City),
		Company:          orUnknown(r.CompanyName),
		Date:             day,
	}

	if len(r.EmploymentTypes) > 0 {
		l.PaymentFrom = r.EmploymentTypes[0].FromPln.v
		l.PaymentTo = r.EmploymentTypes[0].ToPln.v
	}
	if l.PaymentFrom != nil && l.PaymentTo != nil && *l.PaymentFrom > *l.PaymentTo {
		log.Printf("[extractor] %s: payment range %v > %v, swapping", l.URL, *l.PaymentFrom, *l.PaymentTo)
		l.PaymentFrom, l.PaymentTo = l.PaymentTo, l.PaymentFrom
	}
	return l, nil
}

func (e *Extractor) runDate() time.Time {
	now := e.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}

func orUnknown(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return unknown
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
