package resolution

import (
	"fmt"
	"strings"
)

// Reason is a categorical cause for unifying two tags.
type Reason string

const (
	// ReasonSynonym: different words for the same concept
	ReasonSynonym Reason = "synonym"
	// ReasonGrammaticalVariation: plural, gender or inflection differences
	ReasonGrammaticalVariation Reason = "grammatical_variation"
	// ReasonSpellingVariation: accents, casing or alternative spellings
	ReasonSpellingVariation Reason = "spelling_variation"
	// ReasonAcronym: an acronym and its expansion
	ReasonAcronym Reason = "acronym"
	// ReasonTypo: a misspelling
	ReasonTypo Reason = "typo"
	// ReasonTranslation: the same concept in another language
	ReasonTranslation Reason = "translation"
	// ReasonGeneralization: one tag is a broader form of the other
	ReasonGeneralization Reason = "generalization"
)

var allReasons = []Reason{
	ReasonSynonym,
	ReasonGrammaticalVariation,
	ReasonSpellingVariation,
	ReasonAcronym,
	ReasonTypo,
	ReasonTranslation,
	ReasonGeneralization,
}

// AllReasons returns the reason taxonomy in display order.
func AllReasons() []Reason {
	return append([]Reason(nil), allReasons...)
}

// IsValid checks if the reason belongs to the taxonomy
func (r Reason) IsValid() bool {
	for _, known := range allReasons {
		if r == known {
			return true
		}
	}
	return false
}

// ParseReason parses a reason name, ignoring case and surrounding space.
func ParseReason(s string) (Reason, error) {
	r := Reason(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown reason %q", s)
	}
	return r, nil
}

// ParseReasons parses a list of reason names, dropping repeats.
func ParseReasons(values []string) ([]Reason, error) {
	seen := make(map[Reason]bool)
	var reasons []Reason
	for _, v := range values {
		r, err := ParseReason(v)
		if err != nil {
			return nil, err
		}
		if !seen[r] {
			seen[r] = true
			reasons = append(reasons, r)
		}
	}
	return reasons, nil
}

func reasonStrings(reasons []Reason) []string {
	out := make([]string, len(reasons))
	for i, r := range reasons {
		out[i] = string(r)
	}
	return out
}
