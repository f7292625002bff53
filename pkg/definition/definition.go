// Package definition loads declarative YAML definitions and compiles them into
// dsl.Definitions, so an app can be served without writing Go.
//
// A document looks like:
//
//	title: Greeter
//	nodes:
//	  - field: name
//	    placeholder: Your name
//	  - action: Greet
//	    do:
//	      - set: greeting
//	        value: "Hello, {{name}}"
//	  - when: greeting
//	    nodes:
//	      - display: "{{greeting}}"
package definition

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/dto"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/dsl"
	"github.com/aretw0/arbor/pkg/ports"
)

// Definition is a parsed, validated document.
type Definition struct {
	Name  string
	Title string
	// Submit is the completion label of one-shot runs; empty keeps the runner default.
	Submit string
	Def    dsl.Definition
	doc    *dto.Document
}

// NodeCount returns the number of top-level nodes declared.
func (d *Definition) NodeCount() int {
	return len(d.doc.Nodes)
}

// Parse decodes, validates and compiles a YAML document.
func Parse(name string, data []byte) (*Definition, error) {
	doc, err := compiler.NewParser().Parse(data)
	if err != nil {
		return nil, err
	}
	if err := validator.Validate(doc); err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", name, err)
	}
	title := doc.Title
	if title == "" {
		title = name
	}
	return &Definition{Name: name, Title: title, Submit: doc.Submit, Def: compiler.Compile(doc), doc: doc}, nil
}

// Load reads and parses the file at path. The definition is named after the file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	return Parse(nameOf(path), data)
}

// FromLoader parses the document registered under name in loader.
func FromLoader(loader ports.DefinitionLoader, name string) (*Definition, error) {
	data, err := loader.Load(name)
	if err != nil {
		return nil, err
	}
	return Parse(name, data)
}

// All parses every document of loader.
func All(loader ports.DefinitionLoader) ([]*Definition, error) {
	names, err := loader.List()
	if err != nil {
		return nil, err
	}
	defs := make([]*Definition, 0, len(names))
	for _, name := range names {
		d, err := FromLoader(loader, name)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, nil
}

// Dir implements ports.DefinitionLoader over the *.yaml and *.yml files of a directory.
type Dir struct {
	Path string
}

// NewDir creates a directory loader.
func NewDir(path string) *Dir {
	return &Dir{Path: path}
}

// Load reads the document named name (file name without extension).
func (d *Dir) Load(name string) ([]byte, error) {
	if strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid definition name %q", name)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		data, err := os.ReadFile(filepath.Join(d.Path, name+ext))
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("definition not found: %s", name)
}

// List returns the names of all definitions in the directory, sorted.
func (d *Dir) List() ([]string, error) {
	entries, err := os.ReadDir(d.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	var names []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		names = append(names, nameOf(e.Name()))
	}
	sort.Strings(names)
	return names, nil
}

func nameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
