// Package yamlconfig provides the YAML implementation of config.Loader.
//
//	required: [TRIPLE]
//	vars:
//	  OPT_LEVEL: 2
//	  SEARCH_DIRS: [sdk/lib, lib]
//	  SHARED: false
//	append:
//	  LIBS: [-lm]
//
// Scalars become one-token variables (true is "1", false is "0"), sequences
// one token per element and null an empty variable.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/pnacldriver/internal/config"
	"github.com/vk/pnacldriver/internal/ctxlog"
	"github.com/vk/pnacldriver/internal/drivererr"
	"github.com/vk/pnacldriver/internal/fsutil"
)

// ErrInvalidConfig is a YAML file that cannot be decoded.
var ErrInvalidConfig = drivererr.New(drivererr.ErrConfig, "invalid YAML config")

type file struct {
	Required []string             `yaml:"required"`
	Vars     map[string]yaml.Node `yaml:"vars"`
	Append   map[string]yaml.Node `yaml:"append"`
}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string { return []string{".yaml", ".yml"} }

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFiles(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := config.NewModel()
	for _, path := range files {
		m, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
		}
		model.Merge(m)
	}
	return model, nil
}

func loadFile(path string) (*config.Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, errors.New("multiple YAML documents are not supported")
	}

	model := config.NewModel()
	model.Sources = []string{path}
	model.Required = f.Required
	for name, node := range f.Vars {
		tokens, err := tokensFromNode(&node)
		if err != nil {
			return nil, fmt.Errorf("vars.%s: %w", name, err)
		}
		model.Vars[name] = tokens
	}
	for name, node := range f.Append {
		tokens, err := tokensFromNode(&node)
		if err != nil {
			return nil, fmt.Errorf("append.%s: %w", name, err)
		}
		model.Append[name] = tokens
	}
	return model, nil
}

func tokensFromNode(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return []string{}, nil
		}
		tok, err := scalarToken(node)
		if err != nil {
			return nil, err
		}
		return []string{tok}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: list elements must be scalars", item.Line)
			}
			if item.Tag == "!!null" {
				continue
			}
			tok, err := scalarToken(item)
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
		}
		return out, nil
	}
	return nil, fmt.Errorf("line %d: expected a scalar or a list", node.Line)
}

func scalarToken(node *yaml.Node) (string, error) {
	if node.Tag != "!!bool" {
		return node.Value, nil
	}
	var b bool
	if err := node.Decode(&b); err != nil {
		return "", err
	}
	if b {
		return "1", nil
	}
	return "0", nil
}
