// SPDX-License-Identifier: MPL-2.0

package envbuild

import (
	"fmt"
	"regexp"
)

const (
	// PromptPattern answers output matching Pattern with Response.
	PromptPattern PromptKind = iota
	// PromptIdleTimeout is the sentinel that lets the idle timeout govern
	// continuation when nothing else matched.
	PromptIdleTimeout
	// PromptEndOfOutput is the sentinel matched when the child closes its output.
	PromptEndOfOutput
)

type (
	// PromptKind distinguishes pattern rules from the two sentinels.
	PromptKind int

	// PromptRule is one entry of the ordered prompt rule set.
	PromptRule struct {
		Kind     PromptKind
		Pattern  *regexp.Regexp
		Response string
	}

	// PromptRules is evaluated in order; the first matching pattern wins.
	PromptRules []PromptRule
)

// String returns a short name for the kind.
func (k PromptKind) String() string {
	switch k {
	case PromptPattern:
		return "pattern"
	case PromptIdleTimeout:
		return "timeout"
	case PromptEndOfOutput:
		return "eof"
	default:
		return "unknown"
	}
}

// NewPromptRule compiles pattern in multi-line mode.
func NewPromptRule(pattern, response string) (PromptRule, error) {
	re, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return PromptRule{}, fmt.Errorf("compile prompt pattern %q: %w", pattern, err)
	}
	return PromptRule{Kind: PromptPattern, Pattern: re, Response: response}, nil
}

// WithSentinels appends the idle-timeout and end-of-output sentinels.
func WithSentinels(rules []PromptRule) PromptRules {
	out := make(PromptRules, 0, len(rules)+2)
	out = append(out, rules...)
	return append(out,
		PromptRule{Kind: PromptIdleTimeout},
		PromptRule{Kind: PromptEndOfOutput},
	)
}

// Match returns the first pattern rule matching buf and the end offset of
// the match. Sentinels never match output.
func (r PromptRules) Match(buf []byte) (PromptRule, int, bool) {
	for _, rule := range r {
		if rule.Kind != PromptPattern || rule.Pattern == nil {
			continue
		}
		if loc := rule.Pattern.FindIndex(buf); loc != nil {
			return rule, loc[1], true
		}
	}
	return PromptRule{}, 0, false
}

// Patterns returns the number of pattern rules, excluding sentinels.
func (r PromptRules) Patterns() int {
	n := 0
	for _, rule := range r {
		if rule.Kind == PromptPattern {
			n++
		}
	}
	return n
}
