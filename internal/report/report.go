// Package report partitions canonical rows into PDM groups, derives the
// groups' display fields and buckets the headings that do not group cleanly.
package report

import (
	"net/url"
	"strings"

	"github.com/sells-group/pdm-qc/internal/majority"
	"github.com/sells-group/pdm-qc/internal/model"
)

// groupBuilder accumulates one PDM group in row order.
type groupBuilder struct {
	group model.PdmGroup
	texts []string
	seen  map[string]struct{}
}

func (b *groupBuilder) add(r model.CanonicalRow) {
	url := r.SiteLink
	if strings.TrimSpace(url) == "" {
		url = model.NoURLAssigned
	}
	b.group.Headings = append(b.group.Headings, model.HeadingSummary{
		ID:          r.ClassificationID,
		Name:        r.ClassificationName,
		Type:        r.HeadingType,
		URL:         url,
		Family:      r.Family,
		CompanyType: r.CompanyType,
		Quality:     r.Quality,
		PdmNumber:   r.ProfileDescription,
	})
	b.group.URLs = append(b.group.URLs, url)
	b.group.Families = append(b.group.Families, r.Family)

	if r.PdmText == "" {
		return
	}
	if _, ok := b.seen[r.PdmText]; !ok {
		b.seen[r.PdmText] = struct{}{}
		b.texts = append(b.texts, r.PdmText)
	}
}

// uniqueSet counts distinct values under a key function.
type uniqueSet struct {
	key  func(string) string
	keys map[string]struct{}
}

func newUniqueSet(key func(string) string) uniqueSet {
	return uniqueSet{key: key, keys: make(map[string]struct{})}
}

func (s uniqueSet) add(v string) {
	if k := s.key(v); k != "" {
		s.keys[k] = struct{}{}
	}
}

func (s uniqueSet) len() int { return len(s.keys) }

// linkKey trims a URL and lowercases its scheme and host. The path, query and
// fragment keep their case.
func linkKey(v string) string {
	v = strings.TrimSpace(v)
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return v
	}
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// Build groups the rows and fills the summary and exception lists. Validation
// results are left empty; see the validate package.
func Build(rows []model.CanonicalRow) model.Report {
	rep := model.Report{Rows: rows}

	var (
		order      []string
		builders   = make(map[string]*groupBuilder)
		addedNames = newUniqueSet(model.FoldKey)
		addedURLs  = newUniqueSet(linkKey)
		existNames = newUniqueSet(model.FoldKey)
		existURLs  = newUniqueSet(linkKey)
	)

	for _, r := range rows {
		headingType := strings.ToLower(string(r.HeadingType))

		if strings.Contains(headingType, "deleted") {
			rep.Exceptions.Deleted = append(rep.Exceptions.Deleted, model.DeletedHeading{
				ID:      r.ClassificationID,
				Name:    r.ClassificationName,
				URL:     r.SiteLink,
				Family:  r.Family,
				Quality: r.Quality,
			})
			continue
		}

		added := strings.Contains(headingType, "added")
		existing := strings.Contains(headingType, "existing")
		if !added && !existing {
			continue
		}
		rep.Summary.TotalHeadings++

		numeric := model.IsNumeric(r.ProfileDescription)

		switch quality := model.FoldKey(r.Quality); {
		case quality == model.QualityUnsupported:
			rep.Exceptions.Unsupported = append(rep.Exceptions.Unsupported, exceptionHeading(r))
		case quality == model.QualityUnprocessed:
			rep.Exceptions.Unprocessed = append(rep.Exceptions.Unprocessed, exceptionHeading(r))
		case !numeric:
			rep.Exceptions.NoPdmNumber = append(rep.Exceptions.NoPdmNumber, model.NoPdmHeading{
				ID:     r.ClassificationID,
				Name:   r.ClassificationName,
				Family: r.Family,
			})
		default:
			if existing {
				existNames.add(r.ClassificationName)
				existURLs.add(r.SiteLink)
			} else {
				addedNames.add(r.ClassificationName)
				addedURLs.add(r.SiteLink)
			}
		}

		if !numeric {
			continue
		}
		key := strings.TrimSpace(r.ProfileDescription)
		b, ok := builders[key]
		if !ok {
			b = &groupBuilder{
				group: model.PdmGroup{PdmNumber: key},
				seen:  make(map[string]struct{}),
			}
			builders[key] = b
			order = append(order, key)
		}
		b.add(r)
	}

	rep.PdmGroups = make([]model.PdmGroup, 0, len(order))
	for _, key := range order {
		rep.PdmGroups = append(rep.PdmGroups, finalize(builders[key]))
	}

	rep.Summary.TotalPdms = len(rep.PdmGroups)
	rep.Summary.ExistingHeadings = existNames.len()
	rep.Summary.ExistingUniqueLinks = existURLs.len()
	rep.Summary.AddedHeadings = addedNames.len()
	rep.Summary.AddedUniqueLinks = addedURLs.len()
	rep.Summary.UnsupportedCount = len(rep.Exceptions.Unsupported)
	rep.Summary.UnprocessedCount = len(rep.Exceptions.Unprocessed)
	rep.Summary.NoPdmNumberCount = len(rep.Exceptions.NoPdmNumber)
	rep.Summary.DeletedCount = len(rep.Exceptions.Deleted)

	return rep
}

// exceptionHeading records an unsupported or unprocessed heading and flags the
// attributes it should not carry.
func exceptionHeading(r model.CanonicalRow) model.ExceptionHeading {
	var has []string
	if r.SiteLink != "" {
		has = append(has, "URL")
	}
	if r.ProfileDescription != "" {
		has = append(has, "PDM Number")
	}
	if model.HasCompanyType(r.CompanyType) {
		has = append(has, "Company Type")
	}

	var diag string
	if len(has) > 0 {
		diag = "Has: " + strings.Join(has, ", ")
	}

	return model.ExceptionHeading{
		ID:          r.ClassificationID,
		Name:        r.ClassificationName,
		URL:         r.SiteLink,
		PdmNumber:   r.ProfileDescription,
		CompanyType: r.CompanyType,
		Family:      r.Family,
		Quality:     r.Quality,
		Error:       diag,
	}
}

func finalize(b *groupBuilder) model.PdmGroup {
	g := b.group

	if len(b.texts) > 0 {
		g.PdmText = b.texts[0]
	}
	g.PdmTextStatus = model.StatusForText(g.PdmText)
	if g.PdmTextStatus == model.PdmTextOK {
		g.WordCount = len(strings.Fields(g.PdmText))
	}
	if len(b.texts) > 1 {
		g.PdmTextVariants = append([]string(nil), b.texts...)
		g.PdmTextDiff = TextDiff(b.texts[0], b.texts[1])
	}

	families := make([][]string, len(g.Headings))
	companyTypes := make([]string, len(g.Headings))
	qualities := make([]string, len(g.Headings))
	for i, h := range g.Headings {
		families[i] = majority.SplitList(h.Family)
		companyTypes[i] = h.CompanyType
		qualities[i] = h.Quality
	}

	if common := majority.Strict(families, nil); len(common) > 0 {
		g.DisplayCommonFamily = strings.Join(common, ", ")
	} else {
		g.DisplayCommonFamily = model.NoCommonFamily
	}
	g.DisplayCompanyType = displayValue(companyTypes)
	g.DisplayQuality = displayValue(qualities)

	return g
}

// displayValue returns the strict-majority value, else the first non-empty
// value, else "Not specified".
func displayValue(values []string) string {
	if v, ok := majority.Value(values, majority.CaseFold); ok {
		return v
	}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return model.NotSpecified
}
