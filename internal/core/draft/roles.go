package draft

import (
	"regexp"
	"strings"

	"github.com/ninjaos/followup/internal/model"
)

// roleRe captures "my <qualifier> <service role>" phrases like
// "my kitchens contractor" or "my mortgage lender".
var roleRe = regexp.MustCompile(`(?i)\bmy\s+((?:[a-z][a-z'\-]*\s+){0,3}?` +
	`(?:contractor|agent|lender|broker|plumber|electrician|inspector|stager|` +
	`photographer|attorney|lawyer|accountant|advisor|designer|builder|painter|` +
	`roofer|landscaper|handyman|banker|mechanic))\b`)

// MatchRoles scans the transcript for role references and resolves each to
// a known contact by word overlap against occupation, profession, and
// notes. This lets the draft model substitute a real name ("Dana Kitch")
// for a generic role reference ("my kitchens contractor").
func MatchRoles(transcript string, persons []model.Person, excludeID string) map[string]*model.Person {
	matches := roleRe.FindAllStringSubmatch(transcript, -1)
	if len(matches) == 0 {
		return nil
	}

	roles := make(map[string]*model.Person)
	for _, m := range matches {
		role := strings.ToLower(strings.TrimSpace(m[1]))
		if _, done := roles[role]; done {
			continue
		}
		if match := bestRoleMatch(role, persons, excludeID); match != nil {
			roles[role] = match
		}
	}
	if len(roles) == 0 {
		return nil
	}
	return roles
}

func bestRoleMatch(role string, persons []model.Person, excludeID string) *model.Person {
	roleWords := normalizeWords(role)
	if len(roleWords) == 0 {
		return nil
	}

	var best *model.Person
	bestScore := 0
	for i := range persons {
		p := &persons[i]
		if p.ID == excludeID {
			continue
		}
		haystack := normalizeWords(p.Occupation + " " + p.Profession + " " + p.Notes)
		score := 0
		for w := range roleWords {
			if haystack[w] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	if bestScore == 0 {
		return nil
	}
	return best
}

// normalizeWords lowercases, splits, and strips a trailing plural "s" so
// "kitchens" matches "kitchen".
func normalizeWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ",.;:!?'\"()")
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			w = strings.TrimSuffix(w, "s")
		}
		if len(w) < 3 {
			continue
		}
		out[w] = true
	}
	return out
}
