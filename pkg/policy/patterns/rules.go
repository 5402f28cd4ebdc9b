package patterns

import (
	"fmt"
	"regexp"
)

// Rule is a single compiled pattern within a category.
type Rule struct {
	// Name identifies the rule in verdicts, logs and alerts.
	Name string

	// Category is the group the rule belongs to.
	Category Category

	re *regexp.Regexp
}

// Pattern returns the rule's source expression.
func (r Rule) Pattern() string {
	return r.re.String()
}

// RuleSpec is the declarative form of a rule.
type RuleSpec struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// Rule set merge modes for RuleSetSpec.Mode.
const (
	// ModeExtend appends loaded rules after the built-in rules.
	ModeExtend = "extend"

	// ModeReplace drops the built-in rules of every category a file names.
	ModeReplace = "replace"
)

// RuleSetSpec is the declarative form of a rule set, as found in rule files.
type RuleSetSpec struct {
	// Mode is "extend" (default) or "replace".
	Mode string `yaml:"mode" json:"mode"`

	// Categories maps a category name to its ordered rules.
	Categories map[string][]RuleSpec `yaml:"categories" json:"categories"`
}

// RuleError reports a rule that could not be compiled.
type RuleError struct {
	Category string
	Rule     string
	Err      error
}

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("rule category %q: %v", e.Category, e.Err)
	}
	return fmt.Sprintf("rule %q in category %q: %v", e.Rule, e.Category, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleError) Unwrap() error {
	return e.Err
}

// RuleSet holds the compiled rule groups used by Classify.
// A RuleSet is immutable once built and safe for concurrent use.
type RuleSet struct {
	groups map[Category][]Rule
	source string
}

// Rules returns the rules of a category in evaluation order.
func (rs *RuleSet) Rules(c Category) []Rule {
	rules := rs.groups[c]
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Len returns the total number of rules across all categories.
func (rs *RuleSet) Len() int {
	n := 0
	for _, rules := range rs.groups {
		n += len(rules)
	}
	return n
}

// Source describes where the rule set came from ("builtin" or a file path).
func (rs *RuleSet) Source() string {
	return rs.source
}

// WithSource returns a copy of the rule set labelled with source.
func (rs *RuleSet) WithSource(source string) *RuleSet {
	return &RuleSet{groups: rs.groups, source: source}
}

var defaultSpecs = map[Category][]RuleSpec{
	CategoryInjection: {
		{Name: "ignore_previous", Pattern: `ignore\s+all\s+previous\s+instructions`},
		{Name: "disregard_previous", Pattern: `disregard\s+previous\s+instructions`},
		{Name: "pretend_to_be", Pattern: `pretend\s+to\s+be`},
		{Name: "you_are_now", Pattern: `you are now`},
		{Name: "as_an_ai", Pattern: `as an ai language model`},
		{Name: "repeat_after_me", Pattern: `repeat after me`},
		{Name: "system_prompt", Pattern: `system prompt`},
		{Name: "reveal_instructions", Pattern: `reveal your instructions`},
		{Name: "forget_ai", Pattern: `forget you are an ai`},
		{Name: "bypass", Pattern: `bypass`},
		{Name: "jailbreak", Pattern: `jailbreak`},
		{Name: "write_prompt", Pattern: `write a prompt that`},
		{Name: "act_as", Pattern: `act as`},
		{Name: "simulate", Pattern: `simulate`},
		{Name: "provide_system_prompt", Pattern: `please provide the system prompt`},
		{Name: "what_instructions", Pattern: `what are your instructions`},
	},
	CategoryAbuse: {
		{Name: "profanity", Pattern: `\b(fuck|shit|bitch|asshole|bastard|idiot|stupid|dumb|nigger|faggot|cunt|retard|whore|slut)\b`},
		{Name: "self_harm", Pattern: `\b(kill|suicide|die)\b`},
		{Name: "hate", Pattern: `\b(hate|abuse|racist|sexist)\b`},
	},
	CategoryCode: {
		{Name: "script_tag", Pattern: `(<script>|</script>)`},
		{Name: "sql_statement", Pattern: `(select\s+\*\s+from|drop\s+table|insert\s+into|delete\s+from|update\s+\w+\s+set)`},
		{Name: "sql_meta", Pattern: `(;--|--\s|/\*|\*/|@@|char\(|nchar\(|varchar\(|alter\s+table|create\s+table)`},
		{Name: "shell_eval", Pattern: `(os\.system|subprocess|eval\(|exec\()`},
	},
	CategoryPII: {
		{Name: "ssn", Pattern: `\b\d{3}-\d{2}-\d{4}\b`},
		{Name: "credit_card", Pattern: `\b\d{16}\b`},
		{Name: "phone", Pattern: `\b\d{10,11}\b`},
		{Name: "email", Pattern: `\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`},
		{Name: "ipv4", Pattern: `\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`},
	},
	CategorySuspicious: {
		{Name: "sensitive_terms", Pattern: `\b(secret|password|confidential|private)\b`},
		{Name: "security_terms", Pattern: `\b(hack|exploit|vulnerability)\b`},
	},
}

var builtin = mustCompile(RuleSetSpec{Mode: ModeReplace, Categories: specNames(defaultSpecs)})

// DefaultRuleSet returns the built-in rule set.
func DefaultRuleSet() *RuleSet {
	return builtin
}

// DefaultSpec returns the built-in rules in declarative form.
func DefaultSpec() RuleSetSpec {
	return RuleSetSpec{Mode: ModeReplace, Categories: specNames(defaultSpecs)}
}

// Compile builds a RuleSet from spec. In extend mode its rules are appended
// to the built-in ones; in replace mode each category it names uses only its
// rules and unnamed categories keep the built-ins.
func Compile(spec RuleSetSpec) (*RuleSet, error) {
	mode := spec.Mode
	if mode == "" {
		mode = ModeExtend
	}
	if mode != ModeExtend && mode != ModeReplace {
		return nil, &RuleError{Category: "*", Err: fmt.Errorf("unknown mode %q", spec.Mode)}
	}

	rs := &RuleSet{groups: make(map[Category][]Rule, len(defaultSpecs)), source: "builtin"}
	for c, rules := range builtin.groups {
		if _, named := spec.Categories[string(c)]; named && mode == ModeReplace {
			continue
		}
		rs.groups[c] = append([]Rule(nil), rules...)
	}

	for name, specs := range spec.Categories {
		c, err := ParseCategory(name)
		if err != nil {
			return nil, &RuleError{Category: name, Err: err}
		}
		for i, s := range specs {
			rule, err := compileRule(c, i, s)
			if err != nil {
				return nil, err
			}
			rs.groups[c] = append(rs.groups[c], rule)
		}
	}

	return rs, nil
}

func compileRule(c Category, index int, s RuleSpec) (Rule, error) {
	name := s.Name
	if name == "" {
		name = fmt.Sprintf("%s_%d", c, index)
	}
	if s.Pattern == "" {
		return Rule{}, &RuleError{Category: string(c), Rule: name, Err: fmt.Errorf("empty pattern")}
	}
	re, err := regexp.Compile("(?i)" + s.Pattern)
	if err != nil {
		return Rule{}, &RuleError{Category: string(c), Rule: name, Err: err}
	}
	return Rule{Name: name, Category: c, re: re}, nil
}

func mustCompile(spec RuleSetSpec) *RuleSet {
	rs := &RuleSet{groups: make(map[Category][]Rule), source: "builtin"}
	for name, specs := range spec.Categories {
		c := Category(name)
		for i, s := range specs {
			rule, err := compileRule(c, i, s)
			if err != nil {
				panic("patterns: built-in rule does not compile: " + err.Error())
			}
			rs.groups[c] = append(rs.groups[c], rule)
		}
	}
	return rs
}

func specNames(in map[Category][]RuleSpec) map[string][]RuleSpec {
	out := make(map[string][]RuleSpec, len(in))
	for c, specs := range in {
		out[string(c)] = append([]RuleSpec(nil), specs...)
	}
	return out
}
