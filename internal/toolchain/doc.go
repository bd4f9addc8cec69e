// Package toolchain maps task action kinds onto executable Go functions.
//
// The set of kinds is closed and known at startup: every kind is registered
// by a Module from the modules/ tree, and a task selects one by name. Each
// kind's Factory decodes the task's cty argument object into its own typed
// struct and returns the function the scheduler runs. Dispatch is a plain
// lookup table; there is no type switching on argument shapes.
package toolchain
