// Package validate runs the per-group consistency and business-rule checks
// over finalized PDM groups. Violations are returned as data, never as errors.
package validate

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sells-group/pdm-qc/internal/majority"
	"github.com/sells-group/pdm-qc/internal/model"
)

const (
	msgMissingInLibrary = "PDM text not found in library."
	msgDuplicate        = "Duplicate PDM found!"
	msgDoubleSpaces     = "PDM Text contains double spaces."
	msgEdgeWhitespace   = "PDM Text has leading or trailing spaces."
)

var (
	multiSpace = regexp.MustCompile(`\s{2,}`)
	digitRun   = regexp.MustCompile(`\d{4,}`)
)

type brandPattern struct {
	name string
	re   *regexp.Regexp
}

// Validator applies a Policy. It is immutable after New and safe for
// concurrent use; every Validate call owns its own Accumulator.
type Validator struct {
	policy Policy
	brands []brandPattern
	allow  map[string]struct{}
	deny   map[string]struct{}
}

// New compiles the policy's brand patterns and quality lists.
func New(p Policy) *Validator {
	v := &Validator{
		policy: p,
		allow:  foldSet(p.QualityAllow),
		deny:   foldSet(p.QualityDeny),
	}
	for _, b := range p.ForbiddenBrands {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		v.brands = append(v.brands, brandPattern{
			name: b,
			re:   brandRegexp(b),
		})
	}
	return v
}

// brandRegexp matches b as a whole word. A word boundary only applies at an
// edge whose rune is a word character; punctuation edges are guarded by a
// non-word rune or the ends of the text instead.
func brandRegexp(b string) *regexp.Regexp {
	lead, trail := `(?:^|\W)`, `(?:\W|$)`
	if isWordByte(b[0]) {
		lead = `\b`
	}
	if isWordByte(b[len(b)-1]) {
		trail = `\b(?:®)?`
	}
	return regexp.MustCompile(`(?i)` + lead + regexp.QuoteMeta(b) + trail)
}

// isWordByte mirrors RE2's ASCII \w class.
func isWordByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// Validate is shorthand for New(p).Validate(groups).
func Validate(groups []model.PdmGroup, p Policy) []model.ValidationResult {
	return New(p).Validate(groups)
}

// Accumulator holds the cross-group state of one Validate call.
type Accumulator struct {
	ReferenceDomain string
	seenTexts       map[string]struct{}
}

// NewAccumulator computes the reference domain across all groups.
func NewAccumulator(groups []model.PdmGroup) *Accumulator {
	return &Accumulator{
		ReferenceDomain: ReferenceDomain(groups),
		seenTexts:       make(map[string]struct{}),
	}
}

// seen records text and reports whether an earlier group already used it.
func (a *Accumulator) seen(text string) bool {
	if _, ok := a.seenTexts[text]; ok {
		return true
	}
	a.seenTexts[text] = struct{}{}
	return false
}

// Validate checks groups in order and returns one result per group that has
// at least one violation.
func (v *Validator) Validate(groups []model.PdmGroup) []model.ValidationResult {
	acc := NewAccumulator(groups)

	var results []model.ValidationResult
	for _, g := range groups {
		if errs := v.Group(g, acc); len(errs) > 0 {
			results = append(results, model.ValidationResult{PdmNumber: g.PdmNumber, Errors: errs})
		}
	}
	return results
}

// Group runs every check against one group in fixed order.
func (v *Validator) Group(g model.PdmGroup, acc *Accumulator) []string {
	if g.PdmTextStatus == model.PdmTextMissingInLibrary {
		return []string{msgMissingInLibrary}
	}

	var errs []string
	add := func(msgs ...string) {
		errs = append(errs, msgs...)
	}

	add(checkLinks(g)...)
	add(checkFamilies(g)...)
	add(v.checkURLs(g, acc.ReferenceDomain)...)
	add(checkFormatting(g.PdmText)...)
	if g.PdmText != "" && acc.seen(g.PdmText) {
		add(msgDuplicate)
	}
	add(v.checkBrands(g.PdmText)...)
	add(checkLargeNumbers(g.PdmText)...)
	add(v.checkMaxHeadings(g)...)
	add(checkCompanyTypes(g)...)
	add(v.checkQualityLists(g)...)
	add(checkQualityConsistency(g)...)
	add(checkSpecialQuality(g)...)

	return errs
}

func checkLinks(g model.PdmGroup) []string {
	distinct := make(map[string]struct{})
	first := ""
	for _, u := range g.URLs {
		if u == "" || u == model.NoURLAssigned {
			continue
		}
		if first == "" {
			first = u
		}
		distinct[u] = struct{}{}
	}
	if len(distinct) < 2 {
		return nil
	}

	var diff []string
	for _, h := range g.Headings {
		if h.HasURL() && h.URL != first {
			diff = append(diff, fmt.Sprintf("%s (%s)", h.Name, h.URL))
		}
	}
	return []string{fmt.Sprintf("Links are not consistent. Expected %s; headings with different links: %s.", first, strings.Join(diff, ", "))}
}

func checkFamilies(g model.PdmGroup) []string {
	members := make([][]string, len(g.Headings))
	for i, h := range g.Headings {
		members[i] = majority.SplitList(h.Family)
	}

	common := majority.Strict(members, nil)
	if len(common) == 0 {
		return []string{fmt.Sprintf("No common family across headings: %s.", strings.Join(headingNames(g), ", "))}
	}

	var missing []string
	for i, h := range g.Headings {
		have := make(map[string]struct{}, len(members[i]))
		for _, f := range members[i] {
			have[f] = struct{}{}
		}
		for _, c := range common {
			if _, ok := have[c]; !ok {
				missing = append(missing, h.Name)
				break
			}
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("Family mismatch. Common family: %s; headings without it: %s.", strings.Join(common, ", "), strings.Join(missing, ", "))}
}

func (v *Validator) checkURLs(g model.PdmGroup, reference string) []string {
	var errs []string
	for _, h := range g.Headings {
		if !h.HasURL() {
			if !exemptFromURL(h.Quality) {
				errs = append(errs, fmt.Sprintf("No URL assigned for heading '%s'.", h.Name))
			}
			continue
		}

		switch {
		case !urlPattern.MatchString(h.URL):
			errs = append(errs, fmt.Sprintf("Invalid URL format for heading '%s': %s", h.Name, h.URL))
		case strings.HasPrefix(strings.ToLower(h.URL), "http://"):
			errs = append(errs, fmt.Sprintf("URL for heading '%s' uses http:// (less secure): %s", h.Name, h.URL))
		}

		if host := Hostname(h.URL); reference != "" && host != "" && host != reference {
			errs = append(errs, fmt.Sprintf("Domain mismatch for heading '%s': %s does not match %s.", h.Name, host, reference))
		}

		lower := strings.ToLower(h.URL)
		for _, rule := range v.policy.ForbiddenURLs {
			if rule.Substring != "" && strings.Contains(lower, strings.ToLower(rule.Substring)) {
				errs = append(errs, fmt.Sprintf("%s (%s: %s)", rule.Message, h.Name, h.URL))
			}
		}
	}
	return errs
}

func exemptFromURL(quality string) bool {
	switch model.FoldKey(quality) {
	case model.QualityUnsupported, model.QualityProfileContent:
		return true
	default:
		return false
	}
}

func checkFormatting(text string) []string {
	var errs []string
	if multiSpace.MatchString(text) {
		errs = append(errs, msgDoubleSpaces)
	}
	if text != strings.TrimSpace(text) {
		errs = append(errs, msgEdgeWhitespace)
	}
	return errs
}

func (v *Validator) checkBrands(text string) []string {
	var found []string
	for _, b := range v.brands {
		if b.re.MatchString(text) {
			found = append(found, b.name)
		}
	}
	if len(found) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("PDM Text contains forbidden brand names: %s.", strings.Join(found, ", "))}
}

// checkLargeNumbers flags runs of four or more digits that are not part of a
// decimal, e.g. 12345 but not 0.12345 or 12345.5.
func checkLargeNumbers(text string) []string {
	var found []string
	seen := make(map[string]struct{})
	for _, loc := range digitRun.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && text[start-1] == '.' {
			continue
		}
		if end+1 < len(text) && text[end] == '.' && isDigit(text[end+1]) {
			continue
		}
		n := text[start:end]
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		found = append(found, n)
	}
	if len(found) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("PDM Text contains large numbers without commas: %s.", strings.Join(found, ", "))}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (v *Validator) checkMaxHeadings(g model.PdmGroup) []string {
	limit := v.policy.MaxHeadings
	if limit <= 0 || g.Size() <= limit {
		return nil
	}
	return []string{fmt.Sprintf("PDM has %d headings, exceeding the maximum of %d.", g.Size(), limit)}
}

// normalizeCompanyType folds a company-type list so order and case do not
// matter. The bool is false when the value is blank or "Not specified".
func normalizeCompanyType(v string) (string, bool) {
	if !model.HasCompanyType(v) {
		return "", false
	}
	parts := majority.SplitList(strings.ToLower(v))
	sort.Strings(parts)
	return strings.Join(parts, ","), true
}

func displayCompanyType(v string) string {
	if !model.HasCompanyType(v) {
		return model.NotSpecified
	}
	return strings.TrimSpace(v)
}

func checkCompanyTypes(g model.PdmGroup) []string {
	if g.Size() < 2 {
		return nil
	}

	ref := g.Headings[0]
	refNorm, _ := normalizeCompanyType(ref.CompanyType)

	var errs []string
	for _, h := range g.Headings[1:] {
		norm, ok := normalizeCompanyType(h.CompanyType)
		if ok && norm == refNorm {
			continue
		}
		errs = append(errs, fmt.Sprintf("Company Type mismatch for heading '%s':\nReference '%s': %s\n'%s': %s",
			h.Name, ref.Name, displayCompanyType(ref.CompanyType), h.Name, displayCompanyType(h.CompanyType)))
	}
	return errs
}

func (v *Validator) checkQualityLists(g model.PdmGroup) []string {
	if len(v.allow) == 0 && len(v.deny) == 0 {
		return nil
	}

	var errs []string
	for _, h := range g.Headings {
		q := model.FoldKey(h.Quality)
		if q == "" {
			continue
		}
		if _, denied := v.deny[q]; denied {
			errs = append(errs, fmt.Sprintf("Type of Proof '%s' is not allowed (heading '%s').", strings.TrimSpace(h.Quality), h.Name))
			continue
		}
		if len(v.allow) > 0 {
			if _, ok := v.allow[q]; !ok {
				errs = append(errs, fmt.Sprintf("Type of Proof '%s' is not in the approved list (heading '%s').", strings.TrimSpace(h.Quality), h.Name))
			}
		}
	}
	return errs
}

func checkQualityConsistency(g model.PdmGroup) []string {
	values := make([]string, len(g.Headings))
	var set []string
	for i, h := range g.Headings {
		values[i] = h.Quality
		if strings.TrimSpace(h.Quality) != "" {
			set = append(set, fmt.Sprintf("%s (%s)", h.Name, strings.TrimSpace(h.Quality)))
		}
	}
	if len(set) == 0 {
		return nil
	}

	if winner, ok := majority.Value(values, majority.CaseFold); ok {
		var minority []string
		for _, h := range g.Headings {
			if majority.CaseFold(h.Quality) != majority.CaseFold(winner) {
				minority = append(minority, fmt.Sprintf("%s (%s)", h.Name, qualityOrNotSpecified(h.Quality)))
			}
		}
		if len(minority) == 0 {
			return nil
		}
		return []string{fmt.Sprintf("Type of Proof mismatch. Majority: %s; headings that differ: %s.", winner, strings.Join(minority, ", "))}
	}

	if len(set) >= 2 {
		return []string{fmt.Sprintf("Type of Proof is inconsistent across headings: %s.", strings.Join(set, ", "))}
	}
	return nil
}

func qualityOrNotSpecified(q string) string {
	if q = strings.TrimSpace(q); q != "" {
		return q
	}
	return model.NotSpecified
}

func checkSpecialQuality(g model.PdmGroup) []string {
	var errs []string
	for _, h := range g.Headings {
		switch model.FoldKey(h.Quality) {
		case model.QualityUnsupported:
			var has []string
			if h.HasURL() {
				has = append(has, "URL")
			}
			if strings.TrimSpace(h.PdmNumber) != "" {
				has = append(has, "PDM Number")
			}
			if model.HasCompanyType(h.CompanyType) {
				has = append(has, "Company Type")
			}
			if len(has) > 0 {
				errs = append(errs, fmt.Sprintf("Unsupported heading '%s' should not have: %s.", h.Name, strings.Join(has, ", ")))
			}
		case model.QualityProfileContent:
			if h.HasURL() {
				errs = append(errs, fmt.Sprintf("Heading '%s' is supported by profile content and should not have a URL.", h.Name))
			}
		}
	}
	return errs
}

func headingNames(g model.PdmGroup) []string {
	names := make([]string, len(g.Headings))
	for i, h := range g.Headings {
		names[i] = h.Name
	}
	return names
}

func foldSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if key := model.FoldKey(v); key != "" {
			set[key] = struct{}{}
		}
	}
	return set
}
