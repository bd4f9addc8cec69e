// Package config defines the format-agnostic representation of build files.
//
// Loaders for concrete formats (HCL, YAML) translate their syntax into a
// Model. The registrar then maps the Model onto model rules, so nothing past
// this package knows which file format a declaration came from.
package config
