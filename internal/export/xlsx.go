// Package export renders a generated report as a multi-sheet workbook or as
// JSON/YAML documents.
package export

import (
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/pdm-qc/internal/model"
	"github.com/sells-group/pdm-qc/internal/pipeline"
	"github.com/sells-group/pdm-qc/internal/validate"
)

// Sheet names, in workbook order.
const (
	SheetAccountSummary  = "Account Summary"
	SheetUnsupported     = "Unsupported Headings"
	SheetUnprocessed     = "Unprocessed Headings"
	SheetNoPdmNumber     = "Headings with No PDM Number"
	SheetDeleted         = "Deleted Headings"
	SheetPdmDetails      = "PDM Details"
	SheetValidation      = "Primary Validation"
	SheetClassifications = "Classification Details"
	SheetTextReview      = "Text Review"
)

// Workbook builds the report workbook. The Text Review sheet is added only
// when the review stage ran.
func Workbook(rep *model.Report, policy validate.Policy) (*xlsx.File, error) {
	if rep == nil {
		return nil, pipeline.ErrNoReport
	}

	f := xlsx.NewFile()
	builders := []struct {
		name  string
		build func(*xlsx.Sheet)
	}{
		{SheetAccountSummary, func(s *xlsx.Sheet) { accountSummary(s, rep) }},
		{SheetUnsupported, func(s *xlsx.Sheet) { exceptionSheet(s, rep.Exceptions.Unsupported) }},
		{SheetUnprocessed, func(s *xlsx.Sheet) { exceptionSheet(s, rep.Exceptions.Unprocessed) }},
		{SheetNoPdmNumber, func(s *xlsx.Sheet) { noPdmSheet(s, rep.Exceptions.NoPdmNumber) }},
		{SheetDeleted, func(s *xlsx.Sheet) { deletedSheet(s, rep.Exceptions.Deleted) }},
		{SheetPdmDetails, func(s *xlsx.Sheet) { pdmDetails(s, rep.PdmGroups, policy) }},
		{SheetValidation, func(s *xlsx.Sheet) { primaryValidation(s, rep) }},
		{SheetClassifications, func(s *xlsx.Sheet) { classificationDetails(s, rep.Rows) }},
	}
	if len(rep.TextReviews) > 0 || rep.ReviewWarning != "" {
		builders = append(builders, struct {
			name  string
			build func(*xlsx.Sheet)
		}{SheetTextReview, func(s *xlsx.Sheet) { textReview(s, rep) }})
	}

	for _, b := range builders {
		sheet, err := f.AddSheet(b.name)
		if err != nil {
			return nil, eris.Wrapf(err, "export: add sheet %q", b.name)
		}
		b.build(sheet)
	}
	return f, nil
}

// WriteXLSX writes the report workbook to w.
func WriteXLSX(w io.Writer, rep *model.Report, policy validate.Policy) error {
	f, err := Workbook(rep, policy)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// SaveXLSX writes the report workbook to path.
func SaveXLSX(path string, rep *model.Report, policy validate.Policy) error {
	f, err := Workbook(rep, policy)
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

var headerStyle = func() *xlsx.Style {
	s := xlsx.NewStyle()
	s.Font.Bold = true
	s.ApplyFont = true
	return s
}()

func header(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		cell := row.AddCell()
		cell.SetString(c)
		cell.SetStyle(headerStyle)
	}
}

func addRow(sheet *xlsx.Sheet, values ...string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func accountSummary(sheet *xlsx.Sheet, rep *model.Report) {
	s := rep.Summary
	header(sheet, "Metric", "Value")
	for _, kv := range []struct {
		label string
		value int
	}{
		{"Total Headings", s.TotalHeadings},
		{"Total PDMs", s.TotalPdms},
		{"Existing Headings", s.ExistingHeadings},
		{"Existing Unique Links", s.ExistingUniqueLinks},
		{"Added Headings", s.AddedHeadings},
		{"Added Unique Links", s.AddedUniqueLinks},
		{"Unsupported Headings", s.UnsupportedCount},
		{"Unprocessed Headings", s.UnprocessedCount},
		{"Headings with No PDM Number", s.NoPdmNumberCount},
		{"Deleted Headings", s.DeletedCount},
		{"PDMs with Validation Errors", s.FailedPdmCount},
		{"Validation Errors", s.ValidationErrorCount},
	} {
		row := sheet.AddRow()
		row.AddCell().SetString(kv.label)
		row.AddCell().SetInt(kv.value)
	}
	if rep.ReviewWarning != "" {
		addRow(sheet, "Text Review", rep.ReviewWarning)
	}
}

func exceptionSheet(sheet *xlsx.Sheet, items []model.ExceptionHeading) {
	header(sheet, "Heading ID", "Heading Name", "URL", "PDM Number", "Company Type", "Family", "Type of Proof", "Error")
	for _, h := range items {
		addRow(sheet, h.ID, h.Name, h.URL, h.PdmNumber, h.CompanyType, h.Family, h.Quality, h.Error)
	}
}

func noPdmSheet(sheet *xlsx.Sheet, items []model.NoPdmHeading) {
	header(sheet, "Heading ID", "Heading Name", "Family")
	for _, h := range items {
		addRow(sheet, h.ID, h.Name, h.Family)
	}
}

func deletedSheet(sheet *xlsx.Sheet, items []model.DeletedHeading) {
	header(sheet, "Heading ID", "Heading Name", "URL", "Family", "Type of Proof")
	for _, h := range items {
		addRow(sheet, h.ID, h.Name, h.URL, h.Family, h.Quality)
	}
}

func pdmDetails(sheet *xlsx.Sheet, groups []model.PdmGroup, policy validate.Policy) {
	header(sheet, "PDM Number", "Headings", "Heading Names", "URLs", "Families",
		"Common Family", "Company Type", "Type of Proof", "PDM Text", "Text Status",
		"Word Count", "Word Count Note", "Text Variants", "Text Diff")
	for _, g := range groups {
		names := make([]string, 0, len(g.Headings))
		for _, h := range g.Headings {
			names = append(names, h.Name)
		}
		addRow(sheet,
			g.PdmNumber,
			strconv.Itoa(g.Size()),
			strings.Join(names, "\n"),
			strings.Join(g.URLs, "\n"),
			strings.Join(g.Families, "\n"),
			g.DisplayCommonFamily,
			g.DisplayCompanyType,
			g.DisplayQuality,
			g.PdmText,
			string(g.PdmTextStatus),
			strconv.Itoa(g.WordCount),
			validate.WordCountWarning(g, policy),
			variantsCell(g.PdmTextVariants),
			g.PdmTextDiff,
		)
	}
}

func variantsCell(variants []string) string {
	if len(variants) < 2 {
		return ""
	}
	return strings.Join(variants, "\n---\n")
}

func primaryValidation(sheet *xlsx.Sheet, rep *model.Report) {
	errs := make(map[string][]string, len(rep.ValidationResults))
	for _, v := range rep.ValidationResults {
		errs[v.PdmNumber] = v.Errors
	}

	header(sheet, "PDM Number", "Headings", "Result", "Errors")
	for _, g := range rep.PdmGroups {
		result := "Pass"
		if len(errs[g.PdmNumber]) > 0 {
			result = "Fail"
		}
		addRow(sheet, g.PdmNumber, strconv.Itoa(g.Size()), result, strings.Join(errs[g.PdmNumber], "\n"))
	}
}

func classificationDetails(sheet *xlsx.Sheet, rows []model.CanonicalRow) {
	header(sheet, "Heading ID", "Heading Name", "Category", "Family", "Rank Points",
		"Company Type", "Site Link", "Type of Proof", "PDM Number", "PDM Text", "Heading Type")
	for _, r := range rows {
		addRow(sheet, r.ClassificationID, r.ClassificationName, r.Category, r.Family, r.RankPoints,
			r.CompanyType, r.SiteLink, r.TypeOfProof(), r.ProfileDescription, r.PdmText, string(r.HeadingType))
	}
}

func textReview(sheet *xlsx.Sheet, rep *model.Report) {
	header(sheet, "PDM Number", "Feedback")
	for _, r := range rep.TextReviews {
		addRow(sheet, r.PdmNumber, r.Feedback)
	}
	if rep.ReviewWarning != "" {
		addRow(sheet, "", rep.ReviewWarning)
	}
}
