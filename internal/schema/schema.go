// Package schema is an optional, opt-in structural check for a parsed
// trace file's block-tree shape, expressed as a CUE value. It is
// invoked only by dilogctl validate --schema and plays no part in the
// core record/verify path in internal/engine.
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/rtjones/dilog/internal/engine"
)

// Schema is a compiled block-shape description. The schema's top level
// describes the channel root: "messages: min: N" requires at least N
// direct messages, and "children" declares one field per expected
// block name, each recursing with the same "children" and "messages"
// fields (a child with "optional: true" may be absent), e.g.:
//
//	children: worker: {
//		children: retry: {}
//		messages: min: 1
//	}
type Schema struct {
	value cue.Value
}

// Load reads and compiles the CUE schema at path.
func Load(path string) (*Schema, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{path}, nil)
	if len(instances) == 0 {
		return nil, fmt.Errorf("dilog: no CUE instance loaded from %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("dilog: loading schema %s: %w", path, inst.Err)
	}
	v := ctx.BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("dilog: building schema %s: %w", path, err)
	}
	return &Schema{value: v}, nil
}

// Violation names one place a parsed trace's shape disagreed with the
// schema.
type Violation struct {
	Path    string
	Message string
}

func (v Violation) String() string { return fmt.Sprintf("%s: %s", v.Path, v.Message) }

// Validate compares tree's block names and nesting against s,
// returning every violation found (it does not stop at the first).
func (s *Schema) Validate(tree *engine.TraceNode) []Violation {
	return validateNode(s.value, tree, tree.Name)
}

func validateNode(expected cue.Value, tree *engine.TraceNode, path string) []Violation {
	var violations []Violation

	if minVal := expected.LookupPath(cue.ParsePath("messages.min")); minVal.Exists() {
		min, err := minVal.Int64()
		if err == nil && int64(len(tree.Messages)) < min {
			violations = append(violations, Violation{
				Path:    path,
				Message: fmt.Sprintf("expected at least %d message(s), found %d", min, len(tree.Messages)),
			})
		}
	}

	childrenSpec := expected.LookupPath(cue.ParsePath("children"))
	if !childrenSpec.Exists() {
		return violations
	}

	iter, err := childrenSpec.Fields(cue.Optional(true))
	if err != nil {
		violations = append(violations, Violation{Path: path, Message: fmt.Sprintf("schema error: %v", err)})
		return violations
	}

	seen := make(map[string]int)
	for _, c := range tree.Children {
		seen[c.Name]++
	}

	for iter.Next() {
		name := iter.Label()
		childSpec := iter.Value()
		if _, ok := seen[name]; !ok {
			isOptional := childSpec.LookupPath(cue.ParsePath("optional"))
			if isOptional.Exists() {
				if b, berr := isOptional.Bool(); berr == nil && b {
					continue
				}
			}
			violations = append(violations, Violation{
				Path:    path,
				Message: fmt.Sprintf("expected block %q, none found", name),
			})
			continue
		}
		for _, c := range tree.Children {
			if c.Name != name {
				continue
			}
			violations = append(violations, validateNode(childSpec, c, path+"/"+name)...)
		}
	}

	return violations
}
