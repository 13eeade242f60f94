// Package canon normalizes crate names for uniqueness checks and lookups.
//
// Two names occupy the same registry slot iff their canonical forms are
// equal: ASCII case is folded and '-' is treated as '_'. The same rule is
// installed in Postgres as canon_crate_name() so lookups can use the
// expression index on crates. Canonical names are never displayed.
package canon

import "strings"

// Name returns the canonical form of a crate name.
func Name(name string) string {
	b := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		case c == '-':
			c = '_'
		}
		b[i] = c
	}
	return string(b)
}

// Equal reports whether a and b name the same crate.
func Equal(a, b string) bool {
	return Name(a) == Name(b)
}

// ValidName reports whether name is an acceptable crate name: non-empty,
// ASCII only, starting with a letter and made of letters, digits, '_' or '-'.
func ValidName(name string) bool {
	if name == "" || !isAlpha(name[0]) {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' && c != '-' {
			return false
		}
	}
	return true
}

// ValidFeatureName accepts "feature" or "dependency/feature".
func ValidFeatureName(name string) bool {
	parts := strings.Split(name, "/")
	if len(parts) > 2 {
		return false
	}
	for _, p := range parts {
		if !ValidName(p) {
			return false
		}
	}
	return true
}

// ValidKeyword accepts up to 20 ASCII characters starting with a letter,
// followed by letters, digits, '_', '-' or '+'.
func ValidKeyword(kw string) bool {
	if kw == "" || len(kw) > 20 || !isAlpha(kw[0]) {
		return false
	}
	for i := 0; i < len(kw); i++ {
		c := kw[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' && c != '-' && c != '+' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
