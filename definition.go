package modelsolver

import (
	"github.com/vk/modelsolver/internal/definition"
)

// LoadHCL builds a model from an HCL definition. filename is only used in
// diagnostics. Solver settings in the definition apply first, so explicit
// options override them.
func LoadHCL(src []byte, filename string, opts ...Option) (*ModelSolver, error) {
	def, err := definition.ParseHCL(src, filename)
	if err != nil {
		return nil, err
	}
	return fromDefinition(def, opts)
}

// LoadYAML builds a model from a YAML definition. Solver settings in the
// definition apply first, so explicit options override them.
func LoadYAML(src []byte, opts ...Option) (*ModelSolver, error) {
	def, err := definition.ParseYAML(src)
	if err != nil {
		return nil, err
	}
	return fromDefinition(def, opts)
}

func fromDefinition(def *definition.Model, opts []Option) (*ModelSolver, error) {
	all := append([]Option{withSolver(def.Solver)}, opts...)
	m, err := New(def.Equations, def.Endogenous, all...)
	if err != nil {
		return nil, err
	}
	m.name = def.Name
	m.description = def.Description
	return m, nil
}
