package tutorial

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lacquerai/blocksmith/internal/workspace"
)

// Check is the outcome of a single sub-check of a step, used for hints
type Check struct {
	Matcher string `json:"matcher"`
	Target  string `json:"target"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

const (
	MatcherNonEmpty = "non_empty"
	MatcherBlocks   = "expected_blocks"
	MatcherConfig   = "expected_config"
	MatcherCode     = "expected_code_patterns"
)

// Validate reports whether the snapshot and generated code satisfy every
// expectation declared by the step
func Validate(step *Step, snap *workspace.Snapshot, code string) bool {
	if !step.HasExpectations() {
		return !snap.IsEmpty()
	}

	if len(step.ExpectedBlocks) > 0 {
		counts := CountBlocks(snap)
		for typ, want := range step.ExpectedBlocks {
			if counts[typ] < want {
				return false
			}
		}
	}

	if step.ExpectedConfig != nil {
		if ok, _ := matchConfig(step.ExpectedConfig, snap); !ok {
			return false
		}
	}

	for _, p := range step.ExpectedCodePatterns {
		if !p.Matches(code) {
			return false
		}
	}

	return true
}

// Feedback lists every sub-check of the step with its outcome. It has no
// effect on progression; Validate alone decides that.
func Feedback(step *Step, snap *workspace.Snapshot, code string) []Check {
	var checks []Check

	if !step.HasExpectations() {
		passed := !snap.IsEmpty()
		msg := "Workspace has blocks"
		if !passed {
			msg = "Add at least one block to the workspace"
		}
		return []Check{{Matcher: MatcherNonEmpty, Passed: passed, Message: msg}}
	}

	if len(step.ExpectedBlocks) > 0 {
		counts := CountBlocks(snap)
		types := make([]string, 0, len(step.ExpectedBlocks))
		for typ := range step.ExpectedBlocks {
			types = append(types, typ)
		}
		sort.Strings(types)

		for _, typ := range types {
			want, have := step.ExpectedBlocks[typ], counts[typ]
			check := Check{Matcher: MatcherBlocks, Target: typ, Passed: have >= want}
			if check.Passed {
				check.Message = fmt.Sprintf("Found %d %s block(s)", have, typ)
			} else {
				check.Message = fmt.Sprintf("Need %d %s block(s), found %d", want, typ, have)
			}
			checks = append(checks, check)
		}
	}

	if cfg := step.ExpectedConfig; cfg != nil {
		ok, msg := matchConfig(cfg, snap)
		checks = append(checks, Check{Matcher: MatcherConfig, Target: cfg.Type, Passed: ok, Message: msg})
	}

	for _, p := range step.ExpectedCodePatterns {
		check := Check{Matcher: MatcherCode, Target: p.String(), Passed: p.Matches(code)}
		if check.Passed {
			check.Message = fmt.Sprintf("Code contains %s", p)
		} else {
			check.Message = fmt.Sprintf("Code should contain %s", p)
		}
		checks = append(checks, check)
	}

	return checks
}

// CountBlocks tallies block types over the whole snapshot, nested inputs
// and next chains included
func CountBlocks(snap *workspace.Snapshot) map[string]int {
	counts := make(map[string]int)
	snap.Walk(func(n *workspace.Node) bool {
		counts[n.Type]++
		return true
	})
	return counts
}

// FindFirst returns the first node of the given type in depth-first
// pre-order: roots in order, a node before its inputs, inputs before next
func FindFirst(snap *workspace.Snapshot, typ string) *workspace.Node {
	var found *workspace.Node
	snap.Walk(func(n *workspace.Node) bool {
		if n.Type == typ {
			found = n
			return false
		}
		return true
	})
	return found
}

func matchConfig(cfg *ConfigExpectation, snap *workspace.Snapshot) (bool, string) {
	node := FindFirst(snap, cfg.Type)
	if node == nil {
		return false, fmt.Sprintf("Add a %s block", cfg.Type)
	}

	var problems []string

	names := make([]string, 0, len(cfg.Fields))
	for name := range cfg.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		want := cfg.Fields[name]
		have, ok := node.Fields[name]
		if !ok || !literalEqual(have, want) {
			problems = append(problems, fmt.Sprintf("set %s to %v", name, want))
		}
	}

	slots := make([]string, 0, len(cfg.Inputs))
	for slot := range cfg.Inputs {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	for _, slot := range slots {
		want := cfg.Inputs[slot].BlockType
		child := node.Input(slot)
		if child == nil || child.Type != want {
			problems = append(problems, fmt.Sprintf("put a %s block in %s", want, slot))
		}
	}

	if len(problems) > 0 {
		return false, fmt.Sprintf("On the %s block: %s", cfg.Type, strings.Join(problems, ", "))
	}
	return true, fmt.Sprintf("The %s block is configured correctly", cfg.Type)
}

// literalEqual compares decoded scalars without coercion. Non-comparable
// values never match.
func literalEqual(have, want any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return have == want
}
