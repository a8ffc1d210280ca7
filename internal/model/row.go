// Package model holds the value objects that flow through the PDM quality-control pipeline.
package model

import "strings"

// HeadingType tags a heading against the previous snapshot.
type HeadingType string

const (
	HeadingAdded    HeadingType = "Added"
	HeadingExisting HeadingType = "Existing"
	HeadingDeleted  HeadingType = "Deleted"
)

// Sentinel pdmText values assigned during classification.
const (
	NoPdmForHeading       = "This Heading does not have PDM"
	PdmMissingInLibrary   = "This PDM number does not have PDM text in Library"
	NoURLAssigned         = "No URL assigned"
	NotSpecified          = "Not specified"
	NoCommonFamily        = "No common family"
	QualityUnsupported    = "unsupported"
	QualityUnprocessed    = "unprocessed"
	QualityProfileContent = "supported by profile content"
)

// AfterproofRow is one line of the current heading export.
type AfterproofRow struct {
	ClassificationID   string
	ClassificationName string
	Category           string
	Family             string
	RankPoints         string
	CompanyType        string
	SiteLink           string
	Quality            string
	ProfileDescription string
	Definition         string
}

// BeforeproofRow is one line of the previous snapshot. The source sheet puts
// the name before the id; the fields here are already in named form.
type BeforeproofRow struct {
	ClassificationName string
	ClassificationID   string
	Category           string
	Family             string
	RankPoints         string
	CompanyType        string
	SiteLink           string
	Quality            string
	ProfileDescription string
	Definition         string
}

// PdmLookupRow maps a profile-description number to its library text.
type PdmLookupRow struct {
	Number string
	Title  string
	Text   string
}

// CanonicalRow is one heading instance after classification.
type CanonicalRow struct {
	ClassificationID   string      `json:"classificationId" yaml:"classificationId"`
	ClassificationName string      `json:"classificationName" yaml:"classificationName"`
	Category           string      `json:"category" yaml:"category"`
	Family             string      `json:"family" yaml:"family"`
	RankPoints         string      `json:"rankPoints" yaml:"rankPoints"`
	CompanyType        string      `json:"companyType" yaml:"companyType"`
	SiteLink           string      `json:"siteLink" yaml:"siteLink"`
	Quality            string      `json:"quality" yaml:"quality"`
	ProfileDescription string      `json:"profileDescription" yaml:"profileDescription"`
	PdmText            string      `json:"pdmText" yaml:"pdmText"`
	HeadingType        HeadingType `json:"headingType" yaml:"headingType"`
}

// TypeOfProof is the export-facing name for Quality.
func (r CanonicalRow) TypeOfProof() string {
	return r.Quality
}

// IsNumeric reports whether s, once trimmed, is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FoldKey lowercases and trims s for case- and whitespace-insensitive matching.
func FoldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// HasCompanyType reports whether v is a real company type rather than blank
// or the "Not specified" placeholder.
func HasCompanyType(v string) bool {
	key := FoldKey(v)
	return key != "" && key != strings.ToLower(NotSpecified)
}
