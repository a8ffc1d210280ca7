package model

// PdmTextStatus describes how a group's PDM text was resolved.
type PdmTextStatus string

const (
	PdmTextOK               PdmTextStatus = "ok"
	PdmTextNoPdmForHeading  PdmTextStatus = "no_pdm_for_heading"
	PdmTextMissingInLibrary PdmTextStatus = "pdm_text_missing_in_library"
)

// StatusForText maps a resolved pdmText to its status by exact sentinel match.
func StatusForText(text string) PdmTextStatus {
	switch text {
	case NoPdmForHeading:
		return PdmTextNoPdmForHeading
	case PdmMissingInLibrary:
		return PdmTextMissingInLibrary
	default:
		return PdmTextOK
	}
}

// HeadingSummary is one member of a PDM group.
type HeadingSummary struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Type        HeadingType `json:"type" yaml:"type"`
	URL         string      `json:"url" yaml:"url"`
	Family      string      `json:"family" yaml:"family"`
	CompanyType string      `json:"companyType" yaml:"companyType"`
	Quality     string      `json:"quality" yaml:"quality"`
	PdmNumber   string      `json:"pdmNumber" yaml:"pdmNumber"`
}

// HasURL reports whether the member carries a real URL.
func (h HeadingSummary) HasURL() bool {
	return h.URL != "" && h.URL != NoURLAssigned
}

// PdmGroup collects the headings that share one profile-description number.
// Membership is fixed once the grouper finalizes it.
type PdmGroup struct {
	PdmNumber           string           `json:"pdmNumber" yaml:"pdmNumber"`
	Headings            []HeadingSummary `json:"headings" yaml:"headings"`
	URLs                []string         `json:"urls" yaml:"urls"`
	Families            []string         `json:"families" yaml:"families"`
	PdmText             string           `json:"pdmText" yaml:"pdmText"`
	PdmTextStatus       PdmTextStatus    `json:"pdmTextStatus" yaml:"pdmTextStatus"`
	PdmTextVariants     []string         `json:"pdmTextVariants,omitempty" yaml:"pdmTextVariants,omitempty"`
	PdmTextDiff         string           `json:"pdmTextDiff,omitempty" yaml:"pdmTextDiff,omitempty"`
	WordCount           int              `json:"wordCount" yaml:"wordCount"`
	DisplayCommonFamily string           `json:"displayCommonFamily" yaml:"displayCommonFamily"`
	DisplayCompanyType  string           `json:"displayCompanyType" yaml:"displayCompanyType"`
	DisplayQuality      string           `json:"displayQuality" yaml:"displayQuality"`
}

// Size returns the number of member headings.
func (g PdmGroup) Size() int {
	return len(g.Headings)
}

// ValidationResult lists the violations found for one group.
type ValidationResult struct {
	PdmNumber string   `json:"pdmNumber" yaml:"pdmNumber"`
	Errors    []string `json:"errors" yaml:"errors"`
}
