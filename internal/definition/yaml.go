package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/vk/modelsolver/internal/solveerr"
	"gopkg.in/yaml.v3"
)

type yamlModel struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Equations   []string    `yaml:"equations"`
	Endogenous  []string    `yaml:"endogenous"`
	Solver      *yamlSolver `yaml:"solver"`
}

type yamlSolver struct {
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
	Damping       float64 `yaml:"damping"`
	InitialGuess  string  `yaml:"initial_guess"`
}

// ParseYAML decodes a definition from a YAML document. Unknown keys are
// rejected.
func ParseYAML(src []byte) (*Model, error) {
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)

	var doc yamlModel
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, solveerr.Config("empty model definition")
		}
		return nil, fmt.Errorf("%w: failed to decode YAML definition: %w", solveerr.ErrConfig, err)
	}

	m := &Model{
		Name:        doc.Name,
		Description: doc.Description,
		Equations:   doc.Equations,
		Endogenous:  doc.Endogenous,
	}
	if s := doc.Solver; s != nil {
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
