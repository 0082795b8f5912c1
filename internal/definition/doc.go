// Package definition decodes model definitions written in HCL or YAML.
//
// Both formats describe the same thing: a named model with its equations,
// the endogenous variables they solve for, and optional solver settings.
//
//	model "klein" {
//	  equations  = ["c = 0.6 * y + 10", "y = c + g"]
//	  endogenous = ["c", "y"]
//
//	  solver {
//	    tolerance      = 1e-10
//	    max_iterations = 200
//	  }
//	}
//
// Decoding only checks the shape of the document. Equation syntax and the
// endogenous partition are validated when the model is built.
package definition
