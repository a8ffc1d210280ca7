// Package classify builds canonical heading rows from the current and previous
// snapshots and resolves each row's PDM text against the library.
package classify

import (
	"strings"

	"github.com/sells-group/pdm-qc/internal/model"
)

const idWidth = 8

// FormatHeadingID strips an "ID:" prefix and every non-digit, then left-pads
// the result with zeros to eight characters.
func FormatHeadingID(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "ID:")

	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) >= idWidth {
		return digits
	}
	return strings.Repeat("0", idWidth-len(digits)) + digits
}

// Library resolves profile-description numbers to PDM text.
type Library map[string]string

// NewLibrary indexes lookup rows by folded number. Rows without a number or
// text are ignored; a repeated number keeps the last text.
func NewLibrary(rows []model.PdmLookupRow) Library {
	lib := make(Library, len(rows))
	for _, r := range rows {
		key := model.FoldKey(r.Number)
		if key == "" || strings.TrimSpace(r.Text) == "" {
			continue
		}
		lib[key] = r.Text
	}
	return lib
}

// Resolve returns the library text for a profile description, or one of the
// two sentinel texts.
func (l Library) Resolve(profileDescription string) string {
	key := model.FoldKey(profileDescription)
	if key == "" || !model.IsNumeric(key) {
		return model.NoPdmForHeading
	}
	if text, ok := l[key]; ok {
		return text
	}
	return model.PdmMissingInLibrary
}

// Classify maps afterproof rows to canonical rows, attaches PDM text and tags
// every heading Added or Existing. Headings only present in the previous
// snapshot are appended as Deleted rows.
func Classify(after []model.AfterproofRow, pdm []model.PdmLookupRow, before []model.BeforeproofRow) []model.CanonicalRow {
	lib := NewLibrary(pdm)

	rows := make([]model.CanonicalRow, 0, len(after))
	for _, a := range after {
		pd := profileDescription(a.ProfileDescription, a.Definition)
		rows = append(rows, model.CanonicalRow{
			ClassificationID:   FormatHeadingID(a.ClassificationID),
			ClassificationName: strings.TrimSpace(a.ClassificationName),
			Category:           strings.TrimSpace(a.Category),
			Family:             strings.TrimSpace(a.Family),
			RankPoints:         strings.TrimSpace(a.RankPoints),
			CompanyType:        strings.TrimSpace(a.CompanyType),
			SiteLink:           strings.TrimSpace(a.SiteLink),
			Quality:            strings.TrimSpace(a.Quality),
			ProfileDescription: pd,
			PdmText:            lib.Resolve(pd),
		})
	}

	if len(before) == 0 {
		for i := range rows {
			rows[i].HeadingType = model.HeadingAdded
		}
		return rows
	}

	beforeNames := make(map[string]struct{}, len(before))
	for _, b := range before {
		if key := model.FoldKey(b.ClassificationName); key != "" {
			beforeNames[key] = struct{}{}
		}
	}

	afterNames := make(map[string]struct{}, len(rows))
	for i := range rows {
		key := model.FoldKey(rows[i].ClassificationName)
		afterNames[key] = struct{}{}
		if _, ok := beforeNames[key]; ok && key != "" {
			rows[i].HeadingType = model.HeadingExisting
		} else {
			rows[i].HeadingType = model.HeadingAdded
		}
	}

	return append(rows, deletedRows(before, afterNames, lib)...)
}

// deletedRows synthesizes one Deleted row per previous-snapshot name missing
// from the current snapshot.
func deletedRows(before []model.BeforeproofRow, afterNames map[string]struct{}, lib Library) []model.CanonicalRow {
	var out []model.CanonicalRow
	emitted := make(map[string]struct{})
	for _, b := range before {
		key := model.FoldKey(b.ClassificationName)
		if key == "" {
			continue
		}
		if _, ok := afterNames[key]; ok {
			continue
		}
		if _, ok := emitted[key]; ok {
			continue
		}
		emitted[key] = struct{}{}

		pd := profileDescription(b.ProfileDescription, b.Definition)
		out = append(out, model.CanonicalRow{
			ClassificationID:   FormatHeadingID(b.ClassificationID),
			ClassificationName: strings.TrimSpace(b.ClassificationName),
			Category:           strings.TrimSpace(b.Category),
			Family:             strings.TrimSpace(b.Family),
			RankPoints:         strings.TrimSpace(b.RankPoints),
			CompanyType:        strings.TrimSpace(b.CompanyType),
			SiteLink:           strings.TrimSpace(b.SiteLink),
			Quality:            strings.TrimSpace(b.Quality),
			ProfileDescription: pd,
			PdmText:            lib.Resolve(pd),
			HeadingType:        model.HeadingDeleted,
		})
	}
	return out
}

// profileDescription prefers the dedicated column and falls back to the first
// run of digits in the definition prose ("See PDM 4021 for details" -> "4021").
func profileDescription(dedicated, definition string) string {
	if pd := strings.TrimSpace(dedicated); pd != "" {
		return pd
	}
	return firstDigits(definition)
}

func firstDigits(s string) string {
	start := -1
	for i := 0; i < len(s); i++ {
		isDigit := s[i] >= '0' && s[i] <= '9'
		switch {
		case isDigit && start < 0:
			start = i
		case !isDigit && start >= 0:
			return s[start:i]
		}
	}
	if start >= 0 {
		return s[start:]
	}
	return ""
}
