package services

import (
	"sort"
	"strings"
)

// Scopes are carried as space-separated strings end to end; these helpers
// treat them as sets. Order is never significant, duplicates collapse.

// SplitScopes splits a space-separated scope string into its members.
func SplitScopes(scopes string) []string {
	return strings.Fields(scopes)
}

// JoinScopes joins scope members back into wire format.
func JoinScopes(scopes []string) string {
	return strings.Join(scopes, " ")
}

// ScopeSet builds a membership set from a space-separated scope string.
func ScopeSet(scopes string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, s := range SplitScopes(scopes) {
		set[s] = struct{}{}
	}
	return set
}

// ScopesSubset reports whether every member of requested appears in allowed.
// The empty request is a subset of anything.
func ScopesSubset(requested, allowed string) bool {
	allowedSet := ScopeSet(allowed)
	for _, s := range SplitScopes(requested) {
		if _, ok := allowedSet[s]; !ok {
			return false
		}
	}
	return true
}

// ScopesUnion merges two scope strings, deduplicated and sorted so that
// repeated unions produce a stable stored value.
func ScopesUnion(a, b string) string {
	set := ScopeSet(a)
	for _, s := range SplitScopes(b) {
		set[s] = struct{}{}
	}
	merged := make([]string, 0, len(set))
	for s := range set {
		merged = append(merged, s)
	}
	sort.Strings(merged)
	return JoinScopes(merged)
}

// ScopesDiff returns the members of requested that are missing from held,
// in request order.
func ScopesDiff(requested, held string) []string {
	heldSet := ScopeSet(held)
	var missing []string
	for _, s := range SplitScopes(requested) {
		if _, ok := heldSet[s]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

// HasScope reports whether scope appears in the space-separated set.
func HasScope(scopes, scope string) bool {
	for _, s := range SplitScopes(scopes) {
		if s == scope {
			return true
		}
	}
	return false
}
