// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model implements the rule-based configuration model: a registry of
// lazily realized, path-addressed model nodes and the rule engine that drives
// each node through its lifecycle.
//
// # Core Concepts
//
//   - Node: a typed configuration element addressed by a modelpath.Path. A node
//     exclusively owns its children; discarding it discards the subtree.
//
//   - Rule: a unit of configuration logic bound to a target path, a Stage and a
//     list of declared input paths. Rules are immutable once registered.
//
//   - Registry: stores rules and realizes nodes on demand. Nothing is built
//     eagerly; asking for a path at a State realizes exactly what is needed.
//
// # Realization
//
// Realizing a path first realizes its ancestors to Created. A path without a
// creator is an empty container node when some rule targets a path below it,
// and a NoCreatorError otherwise, however it is reached. The requested path then
// runs its single Create rule, followed by its Defaults, Mutate (registration
// order), Finalize and Validate rules. The node state advances after each
// stage.
//
// Before a rule runs, every declared input is realized to at least Mutated.
// This on-demand resolution is the only thing that orders rules across
// unrelated paths. Resolution uses an explicit work stack of frames plus an
// in-progress index, so deep input chains never grow the Go call stack, and a
// path needed while it is still being realized is reported as a
// CyclicRuleError carrying the full chain.
//
// The Registry is single-threaded during configuration. Once Seal is called it
// becomes read-only and may be read concurrently by task actions.
package model
