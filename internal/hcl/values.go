package hcl

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// tokensFromValue converts an evaluated attribute into variable tokens.
func tokensFromValue(val cty.Value) ([]string, error) {
	if val.IsNull() {
		return []string{}, nil
	}
	if !val.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}

	ty := val.Type()
	switch {
	case ty.IsPrimitiveType():
		tok, err := tokenFromPrimitive(val)
		if err != nil {
			return nil, err
		}
		return []string{tok}, nil

	case ty.IsListType(), ty.IsTupleType(), ty.IsSetType():
		out := make([]string, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			if elem.IsNull() {
				continue
			}
			if !elem.Type().IsPrimitiveType() {
				return nil, fmt.Errorf("list elements must be strings, numbers or bools, got %s", elem.Type().FriendlyName())
			}
			tok, err := tokenFromPrimitive(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, tok)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
}

func tokenFromPrimitive(val cty.Value) (string, error) {
	if val.Type() == cty.Bool {
		if val.True() {
			return "1", nil
		}
		return "0", nil
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", err
	}
	return str.AsString(), nil
}

// stringList decodes a list of strings such as the required attribute.
func stringList(val cty.Value) ([]string, error) {
	if val.IsNull() {
		return nil, nil
	}
	converted, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to list of string: %w", val.Type().FriendlyName(), err)
	}
	var out []string
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// envObject exposes environment variables as the env object.
func envObject(env map[string]string) cty.Value {
	if len(env) == 0 {
		return cty.EmptyObjectVal
	}
	attrs := make(map[string]cty.Value, len(env))
	for k, v := range env {
		attrs[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(attrs)
}
