package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrNoRecords indicates a catalog source held no tools or templates.
var ErrNoRecords = errors.New("no catalog records")

// templateFile is either a single template or a list under "templates".
type templateFile struct {
	Templates []Template `json:"templates,omitempty" yaml:"templates,omitempty"`
	Template  `yaml:",inline"`
}

// toolFile is either a single tool or a list under "tools".
type toolFile struct {
	Tools []Tool `json:"tools,omitempty" yaml:"tools,omitempty"`
	Tool  `yaml:",inline"`
}

// decode reads data as JSON when ext is ".json" and as YAML otherwise.
// Unknown fields are rejected.
func decode(data []byte, ext string, v any) error {
	if strings.EqualFold(ext, ".json") {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("parse json: %w", err)
		}
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrNoRecords
		}
		return fmt.Errorf("parse yaml: %w", err)
	}
	return nil
}

func parseTemplates(data []byte, ext string) ([]Template, error) {
	var f templateFile
	if err := decode(data, ext, &f); err != nil {
		return nil, err
	}
	templates := f.Templates
	if len(templates) == 0 && f.Template.ID != "" {
		templates = []Template{f.Template}
	}
	if len(templates) == 0 {
		return nil, ErrNoRecords
	}
	for _, t := range templates {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

// LoadTemplates parses YAML or JSON holding one template, or a list of
// templates under a top-level "templates" key, and validates each.
//
// Example:
//
//	templates, err := catalog.LoadTemplates(data)
//	if err != nil {
//	    return err
//	}
//	lib, err := catalog.NewTemplateCatalog(templates...)
func LoadTemplates(data []byte) ([]Template, error) {
	return parseTemplates(data, ".yaml")
}

// LoadTools parses YAML or JSON holding one tool, or a list of tools under
// a top-level "tools" key, and validates each.
func LoadTools(data []byte) ([]Tool, error) {
	var f toolFile
	if err := decode(data, ".yaml", &f); err != nil {
		return nil, err
	}
	tools := f.Tools
	if len(tools) == 0 && f.Tool.ID != "" {
		tools = []Tool{f.Tool}
	}
	if len(tools) == 0 {
		return nil, ErrNoRecords
	}
	for _, t := range tools {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return tools, nil
}

// LoadTemplatesFS loads every file in fsys matching the doublestar pattern,
// in lexical path order. Files ending in .json are decoded as JSON, every
// other match as YAML. Errors name the offending file.
//
// Example:
//
//	templates, err := catalog.LoadTemplatesFS(os.DirFS("./templates"), "**/*.{yaml,yml,json}")
func LoadTemplatesFS(fsys fs.FS, pattern string) ([]Template, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", doublestar.ErrBadPattern, pattern)
	}
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	slices.Sort(matches)

	var all []Template
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		templates, err := parseTemplates(data, path.Ext(name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		all = append(all, templates...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: nothing matches %q", ErrNoRecords, pattern)
	}
	return all, nil
}
