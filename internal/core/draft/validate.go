package draft

import (
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\[([^\[\]]+)\]`)

// schedulingWords are the tokens allowed inside a bracketed placeholder.
// "[Day]" or "[Time range]" are deliberate template slots the user fills
// when scheduling; anything else (e.g. "[spouse's name]") means the model
// lacked a fact and invented a blank, and the draft must be rejected.
var schedulingWords = map[string]bool{
	"day": true, "date": true, "time": true, "range": true,
	"am": true, "pm": true, "morning": true, "afternoon": true,
	"evening": true, "week": true, "weekend": true, "month": true,
	"today": true, "tomorrow": true, "s": true,
}

// ContainsUnfillablePlaceholder reports whether content carries a
// missing-relationship-data placeholder.
func ContainsUnfillablePlaceholder(content string) bool {
	for _, m := range placeholderRe.FindAllStringSubmatch(content, -1) {
		if !isSchedulingPlaceholder(m[1]) {
			return true
		}
	}
	return false
}

func isSchedulingPlaceholder(inner string) bool {
	tokens := strings.FieldsFunc(strings.ToLower(inner), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if t[0] >= '0' && t[0] <= '9' {
			continue
		}
		if !schedulingWords[t] {
			return false
		}
	}
	return true
}
