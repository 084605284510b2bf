package document

import "strings"

// closestMatch returns the candidate with the smallest Levenshtein
// distance to target, provided that distance is within threshold.
// Ported from the teacher's pkg/templatevalidator/fuzzy.LevenshteinMatcher
// (same algorithm and API shape, case-insensitive by default) and
// repurposed here from "closest template function name" to "closest
// legal document key" — used by the validator to turn a typo'd
// top-level key or group reference into a "did you mean X?" suggestion
// (§4.1).
func closestMatch(target string, candidates []string, threshold int) string {
	if len(candidates) == 0 {
		return ""
	}

	targetCmp := strings.ToLower(target)
	minDistance := threshold + 1
	closest := ""

	for _, candidate := range candidates {
		distance := levenshteinDistance(targetCmp, strings.ToLower(candidate))
		if distance < minDistance {
			minDistance = distance
			closest = candidate
		}
	}

	if minDistance > threshold {
		return ""
	}
	return closest
}

// levenshteinDistance computes the edit distance between two strings
// using the standard two-row dynamic-programming formulation.
func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}
	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}

	lenS1 := len(s1)
	prevRow := make([]int, lenS1+1)
	for i := range prevRow {
		prevRow[i] = i
	}
	currRow := make([]int, lenS1+1)

	for j := 1; j <= len(s2); j++ {
		currRow[0] = j
		for i := 1; i <= lenS1; i++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			deletion := prevRow[i] + 1
			insertion := currRow[i-1] + 1
			substitution := prevRow[i-1] + cost
			currRow[i] = min3(deletion, insertion, substitution)
		}
		prevRow, currRow = currRow, prevRow
	}

	return prevRow[lenS1]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// suggestGroupKey finds the closest defined group key to an unknown
// reference, for error messages like "group/ownr: undefined group (did
// you mean group/owner?)".
func suggestGroupKey(unknown Key, defined KeySet) string {
	candidates := make([]string, 0, len(defined))
	for k := range defined {
		candidates = append(candidates, k.String())
	}
	match := closestMatch(unknown.String(), candidates, 3)
	if match == "" {
		return ""
	}
	return "did you mean " + match + "?"
}
