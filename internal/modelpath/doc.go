// internal/modelpath/doc.go

/*
Package modelpath provides a structured representation for the addresses of
model elements, based on the canonical format `segment(.segment)*`.

Examples are `app.tasks.compile` or `settings.compiler.flags`. A path owns
an implicit hierarchy: `app.tasks` is the parent of `app.tasks.compile`, and
discarding a parent discards every descendant.

This package centralizes all formatting and parsing logic so the registry,
the rule engine and the build-file loaders agree on one address scheme.
*/
package modelpath
