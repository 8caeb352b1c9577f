package materialize

import (
	"fmt"
	"strings"
)

// Policy decides what happens when a target file already exists.
type Policy string

const (
	PolicySkip      Policy = "skip"
	PolicyOverwrite Policy = "overwrite"
	PolicyBackup    Policy = "backup"
	PolicyMerge     Policy = "merge"
)

// Policies lists every policy.
var Policies = []Policy{PolicySkip, PolicyOverwrite, PolicyBackup, PolicyMerge}

// ParsePolicy converts a flag or config value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Policies {
		if p == known {
			return p, nil
		}
	}
	names := make([]string, len(Policies))
	for i, known := range Policies {
		names[i] = string(known)
	}
	return "", fmt.Errorf("unknown conflict policy %q (want one of %s)", s, strings.Join(names, ", "))
}

// Action is what was done, or would be done in a dry run, to one path.
type Action string

const (
	ActionCreate    Action = "create"
	ActionOverwrite Action = "overwrite"
	ActionBackup    Action = "backup"
	ActionMerge     Action = "merge"
	ActionSkip      Action = "skip"
)
