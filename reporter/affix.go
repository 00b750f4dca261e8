package reporter

import "fmt"

// Affix is a configured prefix/suffix pair for a derived label value.
// Values decoded from YAML may be numbers or booleans; they are stringified.
type Affix struct {
	Prefix any `yaml:"prefix,omitempty"`
	Suffix any `yaml:"suffix,omitempty"`
}

// Apply returns prefix + base + suffix. A nil Affix leaves base unchanged.
func (a *Affix) Apply(base string) string {
	if a == nil {
		return base
	}
	return coerceToString(a.Prefix) + base + coerceToString(a.Suffix)
}

// coerceToString is the single place where non-string affix values are
// accepted. Nil becomes "".
func coerceToString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}
