package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/pdm-qc/internal/model"
	"github.com/sells-group/pdm-qc/internal/pipeline"
	"github.com/sells-group/pdm-qc/internal/validate"
)

// Format names an output encoding.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatXLSX, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("export: unknown format %q (want xlsx, json or yaml)", s)
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep *model.Report) error {
	if rep == nil {
		return pipeline.ErrNoReport
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

// WriteYAML writes the report as YAML.
func WriteYAML(w io.Writer, rep *model.Report) error {
	if rep == nil {
		return pipeline.ErrNoReport
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	if err := enc.Close(); err != nil {
		return eris.Wrap(err, "export: encode yaml")
	}
	return nil
}

// Write encodes the report in the given format.
func Write(w io.Writer, rep *model.Report, format Format, policy validate.Policy) error {
	switch format {
	case FormatJSON:
		return WriteJSON(w, rep)
	case FormatYAML:
		return WriteYAML(w, rep)
	default:
		return WriteXLSX(w, rep, policy)
	}
}
