// Package scraper implements listing-page fetching, payload extraction and
// skill matching.
package scraper

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldSkill returns the case-insensitive comparison key of a skill name.
func FoldSkill(skill string) string {
	return cases.Fold().String(strings.TrimSpace(skill))
}

// MatchPercentage returns the share of distinct required skills (compared
// case-insensitively) that appear in current, as a value in [0, 100].
// An empty requirement list matches 0%.
func MatchPercentage(required, current []string) float64 {
	distinct := foldSet(required)
	if len(distinct) == 0 {
		return 0
	}
	have := foldSet(current)
	matched := 0
	for k := range distinct {
		if _, ok := have[k]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(distinct)) * 100
}

// MissingSkills returns the required skills absent from current, deduplicated
// case-insensitively, in first-seen order.
func MissingSkills(required, current []string) []string {
	have := foldSet(current)
	seen := make(map[string]struct{}, len(required))
	var missing []string
	for _, skill := range required {
		k := FoldSkill(skill)
		if k == "" {
			continue
		}
		if _, ok := have[k]; ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		missing = append(missing, skill)
	}
	return missing
}

func foldSet(skills []string) map[string]struct{} {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		if k := FoldSkill(s); k != "" {
			set[k] = struct{}{}
		}
	}
	return set
}
