package definition

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/modelsolver/internal/solveerr"
)

// fileSchema lists the top-level blocks a definition file may hold.
var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "model", LabelNames: []string{"name"}},
	},
}

// modelBlock is the body of a `model` block.
type modelBlock struct {
	Description string       `hcl:"description,optional"`
	Equations   []string     `hcl:"equations"`
	Endogenous  []string     `hcl:"endogenous"`
	Solver      *solverBlock `hcl:"solver,block"`
}

// solverBlock is the optional `solver` block inside a model.
type solverBlock struct {
	Tolerance     float64 `hcl:"tolerance,optional"`
	MaxIterations int     `hcl:"max_iterations,optional"`
	Damping       float64 `hcl:"damping,optional"`
	InitialGuess  string  `hcl:"initial_guess,optional"`
}

// ParseHCL decodes a definition from HCL source. filename is used in
// diagnostics only.
func ParseHCL(src []byte, filename string) (*Model, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", solveerr.ErrConfig, filename, diags)
	}

	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", solveerr.ErrConfig, filename, diags)
	}

	block, diags := FindUniqueBlock(content.Blocks, "model")
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", solveerr.ErrConfig, filename, diags)
	}
	if block == nil {
		return nil, solveerr.Config(fmt.Sprintf("%s: no model block found", filename))
	}

	var body modelBlock
	if diags := gohcl.DecodeBody(block.Body, nil, &body); diags.HasErrors() {
		return nil, fmt.Errorf("%w: failed to decode model %q in %s: %w", solveerr.ErrConfig, block.Labels[0], filename, diags)
	}

	m := &Model{
		Name:        block.Labels[0],
		Description: body.Description,
		Equations:   body.Equations,
		Endogenous:  body.Endogenous,
	}
	if s := body.Solver; s != nil {
		m.Solver.Tolerance = s.Tolerance
		m.Solver.MaxIterations = s.MaxIterations
		m.Solver.Damping = s.Damping
		m.Solver.InitialGuess = s.InitialGuess
	}

	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// FindUniqueBlock searches a slice of blocks for all blocks of a given name.
// It returns a diagnostic error if more than one block of that name is found.
// If no block is found, it returns nil.
func FindUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks {
		if block.Type != name {
			continue
		}
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"" + name + "\" block",
				Detail:   "Only one \"" + name + "\" block is allowed per definition.",
				Subject:  &block.DefRange,
			})
			continue
		}
		found = block
	}

	return found, diags
}
