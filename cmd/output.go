package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ghodss/yaml"
)

// printOutput writes v to w as YAML (the default) or indented JSON.
func printOutput(w io.Writer, format string, v interface{}) error {
	var b []byte
	var err error
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		b, err = yaml.Marshal(v)
	case "json":
		b, err = json.MarshalIndent(v, "", "  ")
		b = append(b, '\n')
	default:
		return fmt.Errorf("unsupported output format %q, use yaml or json", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
