package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top level of one configuration file.
type fileRoot struct {
	Required hcl.Expression `hcl:"required,optional"`
	Vars     []*attrBlock   `hcl:"vars,block"`
	Append   []*attrBlock   `hcl:"append,block"`
}

// attrBlock is a block of free-form attributes, one per variable.
type attrBlock struct {
	Body hcl.Body `hcl:",remain"`
}
