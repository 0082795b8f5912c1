package definition

import (
	"github.com/vk/modelsolver/internal/config"
	"github.com/vk/modelsolver/internal/solveerr"
)

// Model is a decoded model definition.
type Model struct {
	Name        string
	Description string
	Equations   []string
	Endogenous  []string
	// Solver holds the settings present in the document. Zero fields were
	// not set and fall back to the defaults.
	Solver config.Solver
}

// validate checks the fields every format requires.
func (m *Model) validate() error {
	if m.Name == "" {
		return solveerr.Config("model definition has no name")
	}
	if len(m.Equations) == 0 {
		return solveerr.Config("model definition has no equations", m.Name)
	}
	if len(m.Endogenous) == 0 {
		return solveerr.Config("model definition has no endogenous variables", m.Name)
	}
	return nil
}
