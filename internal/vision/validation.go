package vision

import "strings"

// CategoryValidator checks model categories against a closed set.
type CategoryValidator struct {
	categories map[string]string // normalized -> canonical spelling
}

// NewCategoryValidator builds a validator for the given category names.
func NewCategoryValidator(names []string) *CategoryValidator {
	v := &CategoryValidator{categories: make(map[string]string, len(names))}
	for _, n := range names {
		v.categories[normalizeCategory(n)] = n
	}
	return v
}

// Valid reports whether the category is in the set, ignoring case and
// surrounding whitespace.
func (v *CategoryValidator) Valid(category string) bool {
	_, ok := v.categories[normalizeCategory(category)]
	return ok
}

// Canonical returns the set's spelling of a valid category.
func (v *CategoryValidator) Canonical(category string) string {
	if c, ok := v.categories[normalizeCategory(category)]; ok {
		return c
	}
	return category
}

func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
