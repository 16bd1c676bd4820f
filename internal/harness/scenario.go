// Package harness drives YAML-described scenarios through a record
// pass followed by a verify pass against the same channel, and reports
// whether the verify pass's outcome matched what the scenario expected
// (success, or a specific error kind at a specific line). It exists to
// exercise record/verify conformance scenarios from data rather than
// from hand-written Go test functions for each one.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Step is one call against a channel: open a block, emit a message, or
// close the currently open block. A step may additionally assert the
// calling thread's identity before it runs, exercising the
// cross-thread guard.
type Step struct {
	Op            string `yaml:"op"`                       // "block_open" | "message" | "block_close"
	Name          string `yaml:"name,omitempty"`            // block_open
	Text          string `yaml:"text,omitempty"`            // message
	Thread        string `yaml:"thread,omitempty"`          // calling thread's identity, checked before the op runs
	EnforceThread *bool  `yaml:"enforce_thread,omitempty"` // defaults to true when thread is set
}

// Expect describes the verify pass's required outcome.
type Expect struct {
	Outcome   string `yaml:"outcome"`              // "success" | "error"
	ErrorKind string `yaml:"error_kind,omitempty"` // required when outcome == "error"
	Line      int    `yaml:"line,omitempty"`       // 0 means "don't check"
}

// Scenario is one record-then-verify conformance test.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Channel     string `yaml:"channel"`
	Owner       string `yaml:"owner,omitempty"` // thread identity the channel is bound to on open
	Record      []Step `yaml:"record"`
	Verify      []Step `yaml:"verify"`
	Expect      Expect `yaml:"expect"`
}

// LoadScenario reads and strictly parses a scenario YAML file,
// rejecting unknown fields so a typo'd key fails loudly instead of
// being silently ignored.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dilog: reading scenario file: %w", err)
	}

	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("dilog: parsing scenario YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("dilog: invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Channel == "" {
		return fmt.Errorf("channel is required")
	}
	if len(s.Record) == 0 {
		return fmt.Errorf("record steps are required and must be non-empty")
	}
	if len(s.Verify) == 0 {
		return fmt.Errorf("verify steps are required and must be non-empty")
	}
	for i, step := range append(append([]Step{}, s.Record...), s.Verify...) {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	switch s.Expect.Outcome {
	case "success":
	case "error":
		if s.Expect.ErrorKind == "" {
			return fmt.Errorf("expect.error_kind is required when expect.outcome is \"error\"")
		}
	default:
		return fmt.Errorf("expect.outcome must be \"success\" or \"error\", got %q", s.Expect.Outcome)
	}
	return nil
}

func validateStep(i int, s Step) error {
	switch s.Op {
	case "block_open":
		if s.Name == "" {
			return fmt.Errorf("step[%d]: block_open requires name", i)
		}
	case "message":
		// Text may legitimately be empty: zero-length messages are a
		// valid boundary case, not a malformed step.
	case "block_close":
	default:
		return fmt.Errorf("step[%d]: unknown op %q", i, s.Op)
	}
	return nil
}
