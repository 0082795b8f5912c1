// Package config defines the solver settings shared by the public facade and
// the model-definition loaders, along with logger construction.
//
// Settings are validated once, when a model is created; the solver reads them
// without further checks.
package config
