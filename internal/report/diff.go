package report

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// TextDiff renders an inline diff of two PDM texts: removed runs as
// [-x-], inserted runs as {+x+}.
func TextDiff(from, to string) string {
	if from == to {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			b.WriteString(d.Text)
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-")
			b.WriteString(d.Text)
			b.WriteString("-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+")
			b.WriteString(d.Text)
			b.WriteString("+}")
		}
	}
	return b.String()
}
