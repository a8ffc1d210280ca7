package validate

import (
	"fmt"

	"github.com/sells-group/pdm-qc/internal/model"
)

// DefaultMaxHeadings is the group-size ceiling used when none is configured.
const DefaultMaxHeadings = 8

// URLRule flags any member URL containing Substring with Message.
type URLRule struct {
	Substring string `yaml:"substring" mapstructure:"substring"`
	Message   string `yaml:"message" mapstructure:"message"`
}

// Policy holds the configurable knobs consumed by the checks. A zero-valued
// knob disables its check.
type Policy struct {
	ForbiddenBrands []string  `yaml:"forbidden_brands" mapstructure:"forbidden_brands"`
	ForbiddenURLs   []URLRule `yaml:"forbidden_urls" mapstructure:"forbidden_urls"`
	QualityAllow    []string  `yaml:"quality_allow" mapstructure:"quality_allow"`
	QualityDeny     []string  `yaml:"quality_deny" mapstructure:"quality_deny"`
	MaxHeadings     int       `yaml:"max_headings" mapstructure:"max_headings"`
	MinWords        int       `yaml:"min_words" mapstructure:"min_words"`
	MaxWords        int       `yaml:"max_words" mapstructure:"max_words"`
}

// DefaultPolicy returns a policy with only the group-size ceiling set.
func DefaultPolicy() Policy {
	return Policy{MaxHeadings: DefaultMaxHeadings}
}

// WordCountWarning returns a display-only note when a group's word count is
// outside the configured bounds. It never produces a validation error.
func WordCountWarning(g model.PdmGroup, p Policy) string {
	if g.PdmTextStatus != model.PdmTextOK {
		return ""
	}
	switch {
	case p.MinWords > 0 && g.WordCount < p.MinWords:
		return fmt.Sprintf("Below minimum word count (%d < %d)", g.WordCount, p.MinWords)
	case p.MaxWords > 0 && g.WordCount > p.MaxWords:
		return fmt.Sprintf("Above maximum word count (%d > %d)", g.WordCount, p.MaxWords)
	default:
		return ""
	}
}
