// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the model node, the realized form of a model path.
package model

import (
	"sort"

	"github.com/specialistvlad/buildgrid/internal/modelpath"
)

// ContainerType is the type descriptor of nodes created implicitly for
// ancestors that have no Create rule.
const ContainerType = "container"

// Node is a realized model element. Its fields are only written by the
// registry while configuring.
type Node struct {
	path     modelpath.Path
	typ      string
	state    State
	value    any
	parent   *Node
	children map[string]*Node
	// cursor is the index of the next rule to run within the current stage.
	cursor int
}

func newNode(p modelpath.Path, parent *Node) *Node {
	n := &Node{
		path:     p,
		parent:   parent,
		children: make(map[string]*Node),
	}
	if parent != nil {
		parent.children[p.Name()] = n
	}
	return n
}

func (n *Node) Path() modelpath.Path { return n.path }
func (n *Node) Type() string         { return n.typ }
func (n *Node) State() State         { return n.state }
func (n *Node) Value() any           { return n.value }

// Children returns the realized children sorted by name.
func (n *Node) Children() []*Node {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*Node, len(names))
	for i, name := range names {
		out[i] = n.children[name]
	}
	return out
}

// walk visits n and its subtree, children before parents.
func (n *Node) walk(fn func(*Node)) {
	for _, c := range n.Children() {
		c.walk(fn)
	}
	fn(n)
}
