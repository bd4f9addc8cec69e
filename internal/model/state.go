// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
package model

import "fmt"

// State is the lifecycle position of a model node. States only advance.
type State int

const (
	Unknown State = iota
	Created
	DefaultsApplied
	Mutated
	Finalized
	Validated
)

var stateNames = [...]string{"unknown", "created", "defaults-applied", "mutated", "finalized", "validated"}

func (s State) String() string {
	if s < Unknown || s > Validated {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Stage is the role a rule plays in a node's lifecycle.
type Stage int

const (
	Create Stage = iota
	Defaults
	Mutate
	Finalize
	Validate
)

var stageNames = [...]string{"create", "defaults", "mutate", "finalize", "validate"}

func (s Stage) String() string {
	if s < Create || s > Validate {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Reaches returns the state a node is in once every rule of this stage ran.
func (s Stage) Reaches() State {
	return State(s + 1)
}

// ParseStage converts a stage name as written in build files.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown rule stage %q", name)
}

// nextStage returns the stage that moves a node out of state s.
func nextStage(s State) Stage {
	return Stage(s)
}
