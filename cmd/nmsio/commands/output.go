package commands

import (
	"encoding/json"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
	outputTOML = "toml"
)

// validOutput reports whether format is accepted by --output.
func validOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML, outputTOML:
		return nil
	}
	return errors.NewUserError(
		errors.Newf("invalid output format: %s", format),
		"Use one of: text, json, yaml, toml")
}

// encode writes v in a structured format. Text output is left to the caller.
func encode(w io.Writer, format string, v any) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encoding json")
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encoding yaml")
		}
		return errors.Wrap(enc.Close(), "encoding yaml")
	case outputTOML:
		enc := toml.NewEncoder(w)
		enc.SetIndentTables(true)
		return errors.Wrap(enc.Encode(v), "encoding toml")
	}
	return validOutput(format)
}
