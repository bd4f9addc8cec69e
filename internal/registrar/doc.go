// Package registrar maps build-file declarations onto model rules.
//
// Every task becomes a Create rule at "<project>.tasks.<name>" producing a
// *task.Spec, every setting a Create rule producing a cty.Value, and every
// rule block a Defaults, Mutate, Finalize or Validate rule whose attributes
// are HCL expressions evaluated when the rule runs. Nothing is evaluated at
// registration time, so the registry stays lazy.
package registrar
