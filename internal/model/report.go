package model

// ExceptionHeading is a heading routed to the unsupported or unprocessed list.
type ExceptionHeading struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	URL         string `json:"url" yaml:"url"`
	PdmNumber   string `json:"pdmNumber" yaml:"pdmNumber"`
	CompanyType string `json:"companyType" yaml:"companyType"`
	Family      string `json:"family" yaml:"family"`
	Quality     string `json:"quality" yaml:"quality"`
	Error       string `json:"error" yaml:"error"`
}

// NoPdmHeading is a heading with a missing or non-numeric profile description.
type NoPdmHeading struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Family string `json:"family" yaml:"family"`
}

// DeletedHeading is a heading present in the previous snapshot only.
type DeletedHeading struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	URL     string `json:"url" yaml:"url"`
	Family  string `json:"family" yaml:"family"`
	Quality string `json:"quality" yaml:"quality"`
}

// ExceptionLists buckets every heading that did not enter a clean group.
type ExceptionLists struct {
	Unsupported []ExceptionHeading `json:"unsupported" yaml:"unsupported"`
	Unprocessed []ExceptionHeading `json:"unprocessed" yaml:"unprocessed"`
	NoPdmNumber []NoPdmHeading     `json:"noPdmNumber" yaml:"noPdmNumber"`
	Deleted     []DeletedHeading   `json:"deleted" yaml:"deleted"`
}

// Summary holds the account-level counts.
type Summary struct {
	TotalHeadings        int `json:"totalHeadings" yaml:"totalHeadings"`
	TotalPdms            int `json:"totalPdms" yaml:"totalPdms"`
	ExistingHeadings     int `json:"existingHeadings" yaml:"existingHeadings"`
	ExistingUniqueLinks  int `json:"existingUniqueLinks" yaml:"existingUniqueLinks"`
	AddedHeadings        int `json:"addedHeadings" yaml:"addedHeadings"`
	AddedUniqueLinks     int `json:"addedUniqueLinks" yaml:"addedUniqueLinks"`
	UnsupportedCount     int `json:"unsupportedCount" yaml:"unsupportedCount"`
	UnprocessedCount     int `json:"unprocessedCount" yaml:"unprocessedCount"`
	NoPdmNumberCount     int `json:"noPdmNumberCount" yaml:"noPdmNumberCount"`
	DeletedCount         int `json:"deletedCount" yaml:"deletedCount"`
	ValidationErrorCount int `json:"validationErrorCount" yaml:"validationErrorCount"`
	FailedPdmCount       int `json:"failedPdmCount" yaml:"failedPdmCount"`
}

// TextReview is the optional AI feedback for one group's PDM text.
type TextReview struct {
	PdmNumber string `json:"pdmNumber" yaml:"pdmNumber"`
	Feedback  string `json:"feedback" yaml:"feedback"`
}

// Report bundles everything one report-generation request produces.
type Report struct {
	Rows              []CanonicalRow     `json:"rows" yaml:"rows"`
	PdmGroups         []PdmGroup         `json:"pdmGroups" yaml:"pdmGroups"`
	ValidationResults []ValidationResult `json:"validationResults" yaml:"validationResults"`
	Summary           Summary            `json:"summary" yaml:"summary"`
	Exceptions        ExceptionLists     `json:"exceptionLists" yaml:"exceptionLists"`
	TextReviews       []TextReview       `json:"textReviews,omitempty" yaml:"textReviews,omitempty"`
	ReviewWarning     string             `json:"reviewWarning,omitempty" yaml:"reviewWarning,omitempty"`
}

// Group returns the group with the given PDM number.
func (r *Report) Group(pdmNumber string) (PdmGroup, bool) {
	for _, g := range r.PdmGroups {
		if g.PdmNumber == pdmNumber {
			return g, true
		}
	}
	return PdmGroup{}, false
}

// Passed reports whether the group has no validation result.
func (r *Report) Passed(pdmNumber string) bool {
	for _, v := range r.ValidationResults {
		if v.PdmNumber == pdmNumber {
			return false
		}
	}
	return true
}

// ReviewOutcome is what the optional review stage hands back. Warning is set
// when the stage could not finish; Reviews may then be partial.
type ReviewOutcome struct {
	Reviews []TextReview
	Warning string
}
