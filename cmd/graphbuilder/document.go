package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder"
	"github.com/randalmurphal/graphbuilder/pkg/graphbuilder/codegen"
)

// readDocument decodes a graph document, as JSON for .json files and YAML
// otherwise. A document without a name takes the file's base name, and
// nodes listing only roles have them declared.
func readDocument(path string) (*graphbuilder.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	var doc graphbuilder.Document
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		err = json.Unmarshal(data, &doc)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	doc.Nodes = graphbuilder.DeclareRoles(doc.Nodes)
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if doc.Version == "" {
		doc.Version = graphbuilder.DocumentVersion
	}
	return &doc, nil
}

// writeDocument encodes doc as "yaml" or "json".
func writeDocument(w io.Writer, doc *graphbuilder.Document, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return err
	}
	return enc.Close()
}

// writeFiles writes generated files into dir and returns their paths.
func writeFiles(dir string, files []codegen.File) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := os.WriteFile(path, []byte(f.Content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func printIssues(w io.Writer, issues graphbuilder.Issues) {
	for _, is := range issues {
		fmt.Fprintf(w, "  [%s] %s\n", is.Code, is.Message)
	}
}
