package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pdm-qc/internal/model"
)

func row(name, pd, text string, opts ...func(*model.CanonicalRow)) model.CanonicalRow {
	r := model.CanonicalRow{
		ClassificationID:   "00000001",
		ClassificationName: name,
		ProfileDescription: pd,
		PdmText:            text,
		HeadingType:        model.HeadingAdded,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func withFamily(f string) func(*model.CanonicalRow) {
	return func(r *model.CanonicalRow) { r.Family = f }
}

func withCompanyType(c string) func(*model.CanonicalRow) {
	return func(r *model.CanonicalRow) { r.CompanyType = c }
}

func withQuality(q string) func(*model.CanonicalRow) {
	return func(r *model.CanonicalRow) { r.Quality = q }
}

func withURL(u string) func(*model.CanonicalRow) {
	return func(r *model.CanonicalRow) { r.SiteLink = u }
}

func withType(ht model.HeadingType) func(*model.CanonicalRow) {
	return func(r *model.CanonicalRow) { r.HeadingType = ht }
}

func TestBuild_UnsupportedWithEverythingPresent(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("Widget Polishing", "55", model.PdmMissingInLibrary,
			withFamily("Hardware"), withCompanyType("Manufacturer"),
			withURL("http://example.com/widgets"), withQuality("unsupported")),
	})

	require.Len(t, rep.Exceptions.Unsupported, 1)
	assert.Equal(t, "Has: URL, PDM Number, Company Type", rep.Exceptions.Unsupported[0].Error)
	assert.Equal(t, 1, rep.Summary.UnsupportedCount)

	// A numeric profile description still joins the group.
	require.Len(t, rep.PdmGroups, 1)
	assert.Equal(t, "55", rep.PdmGroups[0].PdmNumber)
	assert.Equal(t, model.PdmTextMissingInLibrary, rep.PdmGroups[0].PdmTextStatus)
	assert.Zero(t, rep.Summary.AddedHeadings)
}

func TestBuild_UnprocessedClean(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("Bare", "", model.NoPdmForHeading, withQuality(" Unprocessed "), withCompanyType("Not specified")),
	})

	require.Len(t, rep.Exceptions.Unprocessed, 1)
	assert.Empty(t, rep.Exceptions.Unprocessed[0].Error)
	assert.Empty(t, rep.PdmGroups)
	assert.Empty(t, rep.Exceptions.NoPdmNumber)
}

func TestBuild_NoPdmNumber(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("Loose", "", model.NoPdmForHeading, withFamily("Tools")),
		row("Wordy", "abc", model.NoPdmForHeading),
	})

	require.Len(t, rep.Exceptions.NoPdmNumber, 2)
	assert.Equal(t, model.NoPdmHeading{ID: "00000001", Name: "Loose", Family: "Tools"}, rep.Exceptions.NoPdmNumber[0])
	assert.Equal(t, 2, rep.Summary.NoPdmNumberCount)
}

func TestBuild_DeletedExcludedFromGroups(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("Legacy Heading", "7001", "Old.", withType(model.HeadingDeleted), withURL("https://old.example.com")),
		row("Unknown type", "7001", "Old.", withType("")),
	})

	require.Len(t, rep.Exceptions.Deleted, 1)
	assert.Equal(t, "Legacy Heading", rep.Exceptions.Deleted[0].Name)
	assert.Equal(t, "https://old.example.com", rep.Exceptions.Deleted[0].URL)
	assert.Empty(t, rep.PdmGroups)
	assert.Equal(t, 1, rep.Summary.DeletedCount)
	assert.Zero(t, rep.Summary.TotalHeadings)
}

func TestBuild_LooseHeadingTypeMatch(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("A", "1", "Text.", withType("Added (legacy)")),
		row("B", "1", "Text.", withType("EXISTING")),
	})

	require.Len(t, rep.PdmGroups, 1)
	assert.Equal(t, 2, rep.PdmGroups[0].Size())
	assert.Equal(t, 1, rep.Summary.AddedHeadings)
	assert.Equal(t, 1, rep.Summary.ExistingHeadings)
}

func TestBuild_GroupFields(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("Widgets", "7001", "Premium widgets description text.", withURL("https://acme.com/w"), withFamily("Hardware, Tools")),
		row("Gadgets", "7001", "Premium widgets description text.", withFamily("Hardware")),
	})

	require.Len(t, rep.PdmGroups, 1)
	g := rep.PdmGroups[0]
	assert.Equal(t, "Premium widgets description text.", g.PdmText)
	assert.Equal(t, model.PdmTextOK, g.PdmTextStatus)
	assert.Equal(t, 4, g.WordCount)
	assert.Equal(t, []string{"https://acme.com/w", model.NoURLAssigned}, g.URLs)
	assert.Equal(t, model.NoURLAssigned, g.Headings[1].URL)
	assert.Equal(t, []string{"Hardware, Tools", "Hardware"}, g.Families)
	assert.Equal(t, "Hardware", g.DisplayCommonFamily)
	assert.Equal(t, model.NotSpecified, g.DisplayCompanyType)
	assert.Empty(t, g.PdmTextVariants)
}

func TestBuild_GroupOrderFollowsFirstAppearance(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("A", "30", "x."),
		row("B", "10", "y."),
		row("C", "30", "x."),
		row("D", "20", "z."),
	})

	var keys []string
	for _, g := range rep.PdmGroups {
		keys = append(keys, g.PdmNumber)
	}
	assert.Equal(t, []string{"30", "10", "20"}, keys)
	assert.Equal(t, 3, rep.Summary.TotalPdms)
}

func TestBuild_FamilyMajorityIsStrict(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("A", "1", "t.", withFamily("Hardware")),
		row("B", "1", "t.", withFamily("Hardware")),
		row("C", "1", "t.", withFamily("Tools")),
		row("D", "1", "t.", withFamily("Tools")),
	})
	assert.Equal(t, model.NoCommonFamily, rep.PdmGroups[0].DisplayCommonFamily)

	rep = Build([]model.CanonicalRow{
		row("A", "1", "t.", withFamily("Hardware")),
		row("B", "1", "t.", withFamily("Hardware")),
		row("C", "1", "t.", withFamily("Hardware")),
		row("D", "1", "t.", withFamily("Tools")),
	})
	assert.Equal(t, "Hardware", rep.PdmGroups[0].DisplayCommonFamily)
}

func TestBuild_DisplayCompanyTypeAndQuality(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("A", "1", "t.", withCompanyType("Manufacturer"), withQuality("Distributor Site")),
		row("B", "1", "t.", withCompanyType("manufacturer"), withQuality("")),
		row("C", "1", "t.", withCompanyType("Distributor"), withQuality("Catalog")),
	})

	g := rep.PdmGroups[0]
	assert.Equal(t, "Manufacturer", g.DisplayCompanyType)
	// No strict majority: first non-empty wins.
	assert.Equal(t, "Distributor Site", g.DisplayQuality)
}

func TestBuild_DivergentTextsFirstWins(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("A", "1", "Quality widgets."),
		row("B", "1", "Quality gadgets."),
	})

	g := rep.PdmGroups[0]
	assert.Equal(t, "Quality widgets.", g.PdmText)
	assert.Equal(t, []string{"Quality widgets.", "Quality gadgets."}, g.PdmTextVariants)
	assert.Contains(t, g.PdmTextDiff, "[-")
	assert.Contains(t, g.PdmTextDiff, "{+")
}

func TestBuild_UniqueCounts(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("Widgets", "1", "t.", withURL("https://a.com"), withType(model.HeadingExisting)),
		row("widgets", "2", "t.", withURL("https://A.com"), withType(model.HeadingExisting)),
		row("Gadgets", "3", "t.", withURL("https://b.com")),
		row("Sprockets", "3", "t.", withURL("https://c.com")),
		row("Cogs", "3", "t."),
	})

	assert.Equal(t, 1, rep.Summary.ExistingHeadings)
	assert.Equal(t, 1, rep.Summary.ExistingUniqueLinks)
	assert.Equal(t, 3, rep.Summary.AddedHeadings)
	assert.Equal(t, 2, rep.Summary.AddedUniqueLinks)
	assert.Equal(t, 5, rep.Summary.TotalHeadings)
}

func TestTextDiff(t *testing.T) {
	assert.Empty(t, TextDiff("same", "same"))

	d := TextDiff("Quality widgets.", "Quality gadgets.")
	assert.True(t, strings.HasPrefix(d, "Quality "), d)
	assert.Contains(t, d, "[-")
	assert.Contains(t, d, "{+")

	assert.Equal(t, "Text{+ more+}", TextDiff("Text", "Text more"))
}

func TestBuild_UniqueLinksKeepPathCase(t *testing.T) {
	rep := Build([]model.CanonicalRow{
		row("Widgets", "1", "t.", withURL("https://example.com/Widgets")),
		row("Gadgets", "1", "t.", withURL(" https://EXAMPLE.com/widgets ")),
		row("Cogs", "1", "t.", withURL("https://example.com/widgets")),
	})

	assert.Equal(t, 3, rep.Summary.AddedHeadings)
	assert.Equal(t, 2, rep.Summary.AddedUniqueLinks)
}
