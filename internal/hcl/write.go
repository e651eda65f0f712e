package hcl

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// WriteVars writes vars as a vars block that Loader reads back unchanged.
// Every variable is written as a list of strings.
func WriteVars(w io.Writer, vars map[string][]string) error {
	f := hclwrite.NewEmptyFile()
	body := f.Body().AppendNewBlock("vars", nil).Body()

	for _, name := range slices.Sorted(maps.Keys(vars)) {
		if !hclsyntax.ValidIdentifier(name) {
			return fmt.Errorf("%w: %q is not a valid HCL identifier", ErrInvalidConfig, name)
		}
		body.SetAttributeValue(name, listValue(vars[name]))
	}

	_, err := f.WriteTo(w)
	return err
}

func listValue(tokens []string) cty.Value {
	if len(tokens) == 0 {
		return cty.ListValEmpty(cty.String)
	}
	vals := make([]cty.Value, len(tokens))
	for i, t := range tokens {
		vals[i] = cty.StringVal(t)
	}
	return cty.ListVal(vals)
}
