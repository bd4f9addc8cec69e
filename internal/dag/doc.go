// Package dag provides a small, concurrency-safe directed graph of string
// ids. It is the structural core of the task graph: node and edge insertion
// are idempotent, strongly connected components are found with Tarjan's
// algorithm, and a detected cycle is reported with its full path.
//
// Edges point from a dependency to its dependent, so AddEdge("a", "b") means
// "b runs after a".
package dag
