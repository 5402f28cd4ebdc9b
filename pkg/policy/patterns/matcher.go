package patterns

import "strings"

// Match records the first rule of a category that matched the text.
type Match struct {
	Category Category
	Rule     string
}

// Matches is the result of classifying one piece of text.
type Matches struct {
	found map[Category]Match
}

// Has reports whether category c matched.
func (m Matches) Has(c Category) bool {
	_, ok := m.found[c]
	return ok
}

// Get returns the match for category c.
func (m Matches) Get(c Category) (Match, bool) {
	match, ok := m.found[c]
	return match, ok
}

// Empty reports whether no category matched.
func (m Matches) Empty() bool {
	return len(m.found) == 0
}

// Categories returns the matched categories in precedence order.
func (m Matches) Categories() []Category {
	var out []Category
	for _, c := range Categories() {
		if m.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Classify evaluates every category against text and returns the matched
// categories. Empty text matches nothing.
func (rs *RuleSet) Classify(text string) Matches {
	m := Matches{found: make(map[Category]Match)}
	if strings.TrimSpace(text) == "" {
		return m
	}
	for _, c := range Categories() {
		if match, ok := rs.MatchCategory(c, text); ok {
			m.found[c] = match
		}
	}
	return m
}

// MatchCategory tries the rules of a single category in order and returns
// the first match.
func (rs *RuleSet) MatchCategory(c Category, text string) (Match, bool) {
	if text == "" {
		return Match{}, false
	}
	for _, rule := range rs.groups[c] {
		if rule.re.MatchString(text) {
			return Match{Category: c, Rule: rule.Name}, true
		}
	}
	return Match{}, false
}

// Redact replaces every personal-data match in text with a
// "[REDACTED:<rule>]" marker and returns the new text together with the
// number of replacements.
func (rs *RuleSet) Redact(text string) (string, int) {
	count := 0
	for _, rule := range rs.groups[CategoryPII] {
		marker := "[REDACTED:" + strings.ToUpper(rule.Name) + "]"
		text = rule.re.ReplaceAllStringFunc(text, func(string) string {
			count++
			return marker
		})
	}
	return text, count
}
