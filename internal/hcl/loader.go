package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/pnacldriver/internal/config"
	"github.com/vk/pnacldriver/internal/ctxlog"
	"github.com/vk/pnacldriver/internal/drivererr"
	"github.com/vk/pnacldriver/internal/fsutil"
)

// ErrInvalidConfig is an HCL file that cannot be parsed or evaluated.
var ErrInvalidConfig = drivererr.New(drivererr.ErrConfig, "invalid HCL config")

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	env map[string]string
}

var _ config.Loader = (*Loader)(nil)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnv replaces the process environment seen by expressions.
func WithEnv(env map[string]string) LoaderOption {
	return func(l *Loader) {
		l.env = env
	}
}

// NewLoader creates a new HCL configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	if l.env == nil {
		l.env = environ()
	}
	return l
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string { return []string{".hcl"} }

// Load implements config.Loader.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, l.Extensions()...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envObject(l.env)},
		Functions: functions,
	}
	parser := hclparse.NewParser()
	model := config.NewModel()

	for _, file := range files {
		m, diags := l.loadFile(parser, file, evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, file, diags)
		}
		model.Merge(m)
	}

	logger.Debug("HCL loading complete.", "files", len(files), "vars", len(model.Vars), "appends", len(model.Append), "required", len(model.Required))
	return model, nil
}

func (l *Loader) loadFile(parser *hclparse.Parser, file string, evalCtx *hcl.EvalContext) (*config.Model, hcl.Diagnostics) {
	hclFile, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return nil, diags
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, diags
	}

	model := config.NewModel()
	model.Sources = []string{file}

	if root.Required != nil {
		if diags := checkExpr(root.Required); diags.HasErrors() {
			return nil, diags
		}
		val, diags := root.Required.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		names, err := stringList(val)
		if err != nil {
			return nil, hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid required list",
				Detail:   err.Error(),
				Subject:  root.Required.Range().Ptr(),
			}}
		}
		model.Required = names
	}

	for _, block := range root.Vars {
		if diags := decodeAttrs(block, evalCtx, model.Vars); diags.HasErrors() {
			return nil, diags
		}
	}
	for _, block := range root.Append {
		appends := make(map[string][]string)
		if diags := decodeAttrs(block, evalCtx, appends); diags.HasErrors() {
			return nil, diags
		}
		for name, v := range appends {
			model.Append[name] = append(model.Append[name], v...)
		}
	}
	return model, nil
}

// decodeAttrs evaluates every attribute of a vars or append block into dst.
func decodeAttrs(block *attrBlock, evalCtx *hcl.EvalContext, dst map[string][]string) hcl.Diagnostics {
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return diags
	}
	for name, attr := range attrs {
		if diags := checkExpr(attr.Expr); diags.HasErrors() {
			return diags
		}
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return diags
		}
		tokens, err := tokensFromValue(val)
		if err != nil {
			return hcl.Diagnostics{{
				Severity: hcl.DiagError,
				Summary:  "Invalid variable value",
				Detail:   fmt.Sprintf("Variable %s: %s.", name, err),
				Subject:  attr.Expr.Range().Ptr(),
			}}
		}
		dst[name] = tokens
	}
	return nil
}
