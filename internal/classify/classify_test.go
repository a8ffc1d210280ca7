package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/pdm-qc/internal/model"
)

func TestFormatHeadingID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ID:42", "00000042"},
		{"", "00000000"},
		{"ID:", "00000000"},
		{"  123 ", "00000123"},
		{"12-34", "00001234"},
		{"123456789", "123456789"},
		{"ID:00001234", "00001234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatHeadingID(tt.in), "input %q", tt.in)
	}
}

func TestLibrary_Resolve(t *testing.T) {
	lib := NewLibrary([]model.PdmLookupRow{
		{Number: " 7001 ", Text: "Premium widgets description text."},
		{Number: "7002", Text: "   "},
		{Number: "", Text: "orphan"},
		{Number: "7003", Text: "first"},
		{Number: "7003", Text: "second"},
	})

	assert.Equal(t, "Premium widgets description text.", lib.Resolve("7001"))
	assert.Equal(t, model.PdmMissingInLibrary, lib.Resolve("7002"))
	assert.Equal(t, model.PdmMissingInLibrary, lib.Resolve("9999"))
	assert.Equal(t, "second", lib.Resolve("7003"))
	assert.Equal(t, model.NoPdmForHeading, lib.Resolve(""))
	assert.Equal(t, model.NoPdmForHeading, lib.Resolve("n/a"))
}

func TestClassify_NoPreviousSnapshotTagsAdded(t *testing.T) {
	rows := Classify([]model.AfterproofRow{
		{ClassificationID: "123", ClassificationName: "Widget Polishing", Family: "Hardware",
			CompanyType: "Manufacturer", SiteLink: "http://example.com/widgets", Quality: "unsupported", ProfileDescription: "55"},
	}, nil, nil)

	require.Len(t, rows, 1)
	assert.Equal(t, model.HeadingAdded, rows[0].HeadingType)
	assert.Equal(t, "00000123", rows[0].ClassificationID)
	assert.Equal(t, model.PdmMissingInLibrary, rows[0].PdmText)
}

func TestClassify_AttachesLibraryText(t *testing.T) {
	rows := Classify(
		[]model.AfterproofRow{{ClassificationID: "1", ClassificationName: "Widgets", ProfileDescription: "7001"}},
		[]model.PdmLookupRow{{Number: "7001", Text: "Premium widgets description text."}},
		nil,
	)

	require.Len(t, rows, 1)
	assert.Equal(t, "Premium widgets description text.", rows[0].PdmText)
}

func TestClassify_DefinitionFallback(t *testing.T) {
	rows := Classify([]model.AfterproofRow{
		{ClassificationName: "A", Definition: "See PDM 4021 for details, not 77"},
		{ClassificationName: "B", ProfileDescription: " 12 ", Definition: "See PDM 4021"},
		{ClassificationName: "C", Definition: "no number here"},
	}, nil, nil)

	require.Len(t, rows, 3)
	assert.Equal(t, "4021", rows[0].ProfileDescription)
	assert.Equal(t, "12", rows[1].ProfileDescription)
	assert.Empty(t, rows[2].ProfileDescription)
	assert.Equal(t, model.NoPdmForHeading, rows[2].PdmText)
}

func TestClassify_ExistingAndDeleted(t *testing.T) {
	after := []model.AfterproofRow{
		{ClassificationID: "1", ClassificationName: "Widgets"},
		{ClassificationID: "2", ClassificationName: "New Gadgets"},
	}
	before := []model.BeforeproofRow{
		{ClassificationName: " widgets ", ClassificationID: "1"},
		{ClassificationName: "Legacy Heading", ClassificationID: "999", ProfileDescription: "7001", SiteLink: "https://old.example.com"},
		{ClassificationName: "legacy heading", ClassificationID: "1000"},
	}
	pdm := []model.PdmLookupRow{{Number: "7001", Text: "Old text."}}

	rows := Classify(after, pdm, before)

	require.Len(t, rows, 3)
	assert.Equal(t, model.HeadingExisting, rows[0].HeadingType)
	assert.Equal(t, model.HeadingAdded, rows[1].HeadingType)

	deleted := rows[2]
	assert.Equal(t, "Legacy Heading", deleted.ClassificationName)
	assert.Equal(t, "00000999", deleted.ClassificationID)
	assert.Equal(t, model.HeadingDeleted, deleted.HeadingType)
	assert.Equal(t, "Old text.", deleted.PdmText)
	assert.Equal(t, "https://old.example.com", deleted.SiteLink)
}

func TestClassify_DeletedIsSetDifference(t *testing.T) {
	after := []model.AfterproofRow{{ClassificationName: "A"}, {ClassificationName: "b"}, {ClassificationName: "C"}}
	before := []model.BeforeproofRow{
		{ClassificationName: "a"}, {ClassificationName: "B"}, {ClassificationName: "D"}, {ClassificationName: "E"}, {ClassificationName: "d"},
	}

	var deleted []string
	for _, r := range Classify(after, nil, before) {
		if r.HeadingType == model.HeadingDeleted {
			deleted = append(deleted, model.FoldKey(r.ClassificationName))
		}
	}
	assert.Equal(t, []string{"d", "e"}, deleted)
}

func TestClassify_Idempotent(t *testing.T) {
	after := []model.AfterproofRow{{ClassificationID: "ID:5", ClassificationName: "A", ProfileDescription: "1"}}
	before := []model.BeforeproofRow{{ClassificationName: "Z", ProfileDescription: "1"}}
	pdm := []model.PdmLookupRow{{Number: "1", Text: "Text."}}

	assert.Equal(t, Classify(after, pdm, before), Classify(after, pdm, before))
}
