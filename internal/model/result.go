package model

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorKind is the machine-checkable discriminator carried by failed results.
type ErrorKind string

const (
	KindUnsupportedCountry ErrorKind = "unsupported_country"
	KindMissingCredential  ErrorKind = "missing_credential"
	KindTransportFailure   ErrorKind = "transport_failure"
	KindRateLimited        ErrorKind = "rate_limited"
	KindUnauthorized       ErrorKind = "unauthorized"
	KindBadParameters      ErrorKind = "bad_parameters"
	KindNoDataFound        ErrorKind = "no_data_found"
	KindMalformedDocument  ErrorKind = "malformed_document"
	KindInvalidRequest     ErrorKind = "invalid_request"
)

// TimeRange describes the window a product request covered.
type TimeRange struct {
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	HoursRequested int       `json:"hours_requested,omitempty"`
	DaysRequested  int       `json:"days_requested,omitempty"`
	HoursAhead     int       `json:"hours_ahead,omitempty"`
	DaysAhead      int       `json:"days_ahead,omitempty"`
	TargetDate     string    `json:"target_date,omitempty"`
	DelayHours     int       `json:"data_delay_hours"`
	Timezone       string    `json:"timezone,omitempty"`
}

// Result is what every product function returns, on success and on failure.
type Result struct {
	Status      Status      `json:"status"`
	DataPoints  []DataPoint `json:"data_points"`
	TotalPoints int         `json:"total_points"`
	TimeRange   *TimeRange  `json:"time_range,omitempty"`

	DataType     string `json:"data_type,omitempty"`
	CountryCode  string `json:"country_code,omitempty"`
	AreaCode     string `json:"area_code,omitempty"`
	FromCountry  string `json:"from_country,omitempty"`
	ToCountry    string `json:"to_country,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	ProcessType  string `json:"process_type,omitempty"`
	Unit         string `json:"unit,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Note         string `json:"note,omitempty"`
	MethodUsed   string `json:"method_used,omitempty"`

	FlowDirection       string   `json:"flow_direction,omitempty"`
	UnavailabilityTypes []string `json:"unavailability_types,omitempty"`
	AffectedUnits       []string `json:"affected_units,omitempty"`

	Error                string    `json:"error,omitempty"`
	ErrorKind            ErrorKind `json:"error_kind,omitempty"`
	ErrorCode            string    `json:"error_code,omitempty"`
	ErrorAnalysis        string    `json:"error_analysis,omitempty"`
	RetryAfter           string    `json:"retry_after,omitempty"`
	// RawContent is the start of an unparseable response body.
	RawContent           string    `json:"raw_content,omitempty"`
	SupportedCountries   []string  `json:"supported_countries,omitempty"`
	Suggestions          []string  `json:"suggestions,omitempty"`
	AlternativeFunctions []string  `json:"alternative_functions,omitempty"`
}

func (r *Result) OK() bool {
	return r != nil && r.Status == StatusSuccess
}

// Failed builds an error result with an empty point list.
func Failed(kind ErrorKind, msg string) *Result {
	return &Result{
		Status:     StatusError,
		DataPoints: []DataPoint{},
		Error:      msg,
		ErrorKind:  kind,
	}
}
