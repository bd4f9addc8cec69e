// Package app contains the core application logic. It wires build-file
// loading, the model registry, the task graph builder and the scheduler into
// one build invocation, decoupled from any specific entrypoint like a CLI.
package app
