package licenses

import "strings"

// Category buckets a license for policy purposes.
type Category string

const (
	// CategoryPermissive allows use with attribution only.
	CategoryPermissive Category = "permissive"
	// CategoryCopyleft carries share-alike obligations.
	CategoryCopyleft Category = "copyleft"
	// CategoryBanned is disallowed outright by policy.
	CategoryBanned Category = "banned"
	// CategoryUnknown is anything not in the lookup tables, including
	// lookup failures.
	CategoryUnknown Category = "unknown"
)

// Static classification tables keyed by normalized SPDX-ish tokens.
// A published version's license never changes, so these need no refresh.
var (
	permissiveLicenses = map[string]bool{
		"MIT":          true,
		"APACHE-2.0":   true,
		"BSD-2-CLAUSE": true,
		"BSD-3-CLAUSE": true,
		"ISC":          true,
		"ZLIB":         true,
		"UNLICENSE":    true,
		"CC0-1.0":      true,
		"0BSD":         true,
		"BSL-1.0":      true,
	}

	copyleftLicenses = map[string]bool{
		"GPL-2.0":  true,
		"GPL-3.0":  true,
		"LGPL-2.1": true,
		"LGPL-3.0": true,
		"AGPL-3.0": true,
		"MPL-2.0":  true,
		"EPL-2.0":  true,
	}

	bannedLicenses = map[string]bool{
		"SSPL-1.0":     true,
		"BUSL-1.1":     true,
		"CC-BY-NC-4.0": true,
		"PROPRIETARY":  true,
	}
)

// compatibleWith maps a project license token to the set of dependency
// license tokens considered compatible with it.
var compatibleWith = map[string]map[string]bool{
	"MIT":          permissiveSet(),
	"APACHE-2.0":   permissiveSet(),
	"BSD-2-CLAUSE": permissiveSet(),
	"BSD-3-CLAUSE": permissiveSet(),
	"ISC":          permissiveSet(),
	"ZLIB":         permissiveSet(),
	"MPL-2.0":      union(permissiveSet(), set("MPL-2.0")),
	// GPL-2.0 is incompatible with Apache-2.0; GPL-3.0 is not.
	"GPL-2.0":  union(permissiveSet(), set("GPL-2.0", "LGPL-2.1"), without("APACHE-2.0")),
	"GPL-3.0":  union(permissiveSet(), set("GPL-2.0", "GPL-3.0", "LGPL-2.1", "LGPL-3.0", "MPL-2.0")),
	"LGPL-2.1": union(permissiveSet(), set("LGPL-2.1"), without("APACHE-2.0")),
	"LGPL-3.0": union(permissiveSet(), set("LGPL-2.1", "LGPL-3.0", "MPL-2.0")),
	"AGPL-3.0": union(permissiveSet(), set("GPL-3.0", "AGPL-3.0", "LGPL-3.0", "MPL-2.0")),
}

func permissiveSet() map[string]bool {
	out := make(map[string]bool, len(permissiveLicenses))
	for k := range permissiveLicenses {
		out[k] = true
	}
	return out
}

func set(tokens ...string) map[string]bool {
	out := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		out[t] = true
	}
	return out
}

func union(sets ...map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for _, s := range sets {
		for k, v := range s {
			if !v {
				delete(out, k)
				continue
			}
			out[k] = true
		}
	}
	return out
}

// without marks a token for removal when unioned after inclusion sets.
func without(tokens ...string) map[string]bool {
	out := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		out[t] = false
	}
	return out
}

// normalizeToken canonicalizes one license token: trims whitespace, upper-
// cases, and strips the SPDX -only/-or-later/+ suffixes.
func normalizeToken(token string) string {
	t := strings.ToUpper(strings.TrimSpace(token))
	t = strings.TrimSuffix(t, "+")
	t = strings.TrimSuffix(t, "-ONLY")
	t = strings.TrimSuffix(t, "-OR-LATER")
	return t
}

// tokenize splits a possibly multi-license expression. Both the registry
// ("MIT OR Apache-2.0") and manifest ("MIT/Apache-2.0") spellings occur.
func tokenize(expr string) []string {
	fields := strings.FieldsFunc(expr, func(r rune) bool { return r == '/' })
	var out []string
	for _, f := range fields {
		for _, part := range strings.Fields(strings.ReplaceAll(f, " OR ", " ")) {
			if strings.EqualFold(part, "OR") || strings.EqualFold(part, "AND") {
				continue
			}
			out = append(out, normalizeToken(part))
		}
	}
	return out
}

// Classify buckets a license expression. Multi-license expressions offer a
// choice, so the most favorable token decides: permissive beats copyleft
// beats banned. Expressions with no recognized token are unknown.
func Classify(expr string) Category {
	best := CategoryUnknown
	for _, token := range tokenize(expr) {
		switch {
		case permissiveLicenses[token]:
			return CategoryPermissive
		case copyleftLicenses[token]:
			best = CategoryCopyleft
		case bannedLicenses[token]:
			if best == CategoryUnknown {
				best = CategoryBanned
			}
		}
	}
	return best
}

// Compatible reports whether a dependency license expression is compatible
// with the project's license expression. A dependency token is compatible if
// it appears in the compatibility set of any token of the project
// expression; multi-license dependencies are compatible if any of their
// tokens is.
func Compatible(projectExpr, depExpr string) bool {
	allowed := make(map[string]bool)
	for _, token := range tokenize(projectExpr) {
		for dep, ok := range compatibleWith[token] {
			if ok {
				allowed[dep] = true
			}
		}
	}
	if len(allowed) == 0 {
		return false
	}
	for _, token := range tokenize(depExpr) {
		if allowed[token] {
			return true
		}
	}
	return false
}
