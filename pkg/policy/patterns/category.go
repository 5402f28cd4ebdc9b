package patterns

import "fmt"

// Category identifies a group of rules.
type Category string

const (
	// CategoryInjection covers attempts to override system instructions,
	// reveal hidden instructions, or assume a forbidden persona.
	CategoryInjection Category = "injection_jailbreak"

	// CategoryAbuse covers profanity, hate speech and self-harm terms.
	CategoryAbuse Category = "abuse_hate"

	// CategoryCode covers script tags, SQL statements and shell/eval calls.
	CategoryCode Category = "code_injection"

	// CategoryPII covers government ids, card numbers, phone numbers,
	// email addresses and IPv4 addresses.
	CategoryPII Category = "pii"

	// CategorySuspicious covers soft signals that do not warrant denial.
	CategorySuspicious Category = "suspicious"
)

// Categories returns every category in precedence order, highest first.
func Categories() []Category {
	return []Category{
		CategoryInjection,
		CategoryAbuse,
		CategoryCode,
		CategoryPII,
		CategorySuspicious,
	}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryInjection, CategoryAbuse, CategoryCode, CategoryPII, CategorySuspicious:
		return true
	}
	return false
}

// String returns the category name.
func (c Category) String() string {
	return string(c)
}

// ParseCategory converts a category name into a Category.
func ParseCategory(name string) (Category, error) {
	c := Category(name)
	if !c.Valid() {
		return "", fmt.Errorf("unknown rule category %q", name)
	}
	return c, nil
}
