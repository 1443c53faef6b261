package mapping

import (
	"sort"
	"strings"
)

// DefaultMandatoryPatterns are the recognized mandatory-language markers in
// Australian mining contracts and regulations.
func DefaultMandatoryPatterns() []string {
	return []string{
		"shall", "must", "required", "mandatory", "obligated",
		"duty to", "responsible for", "ensure that", "comply with",
	}
}

// DefaultPenaltyPatterns are markers indicating a clause carries penalties.
func DefaultPenaltyPatterns() []string {
	return []string{
		"penalty", "fine", "breach", "violation", "default",
		"termination", "damages", "liability", "forfeit",
	}
}

// HasMandatoryLanguage reports whether text contains any mandatory-language marker.
func HasMandatoryLanguage(text string, patterns []string) bool {
	if len(patterns) == 0 {
		patterns = DefaultMandatoryPatterns()
	}
	lower := strings.ToLower(text)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// HasPenaltyLanguage reports whether text contains any penalty marker.
func HasPenaltyLanguage(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range DefaultPenaltyPatterns() {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// missingElements returns the mandatory-language markers present in the
// regulation text but absent from the clause text.
func missingElements(clauseText, regulationText string, patterns []string) []string {
	clauseLower := strings.ToLower(clauseText)
	regLower := strings.ToLower(regulationText)

	var missing []string
	for _, p := range patterns {
		if strings.Contains(regLower, p) && !strings.Contains(clauseLower, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// maxAdditionalElements bounds the reported set difference so one verbose
// clause cannot dominate a gap description.
const maxAdditionalElements = 10

// additionalElements returns normalized keyword tokens present in the clause
// but absent from the regulation text, sorted for determinism.
func additionalElements(clauseText, regulationText string) []string {
	regTokens := tokenize(regulationText)

	seen := make(map[string]bool)
	var extra []string
	for token := range tokenize(clauseText) {
		if !regTokens[token] && !seen[token] {
			seen[token] = true
			extra = append(extra, token)
		}
	}
	sort.Strings(extra)
	if len(extra) > maxAdditionalElements {
		extra = extra[:maxAdditionalElements]
	}
	return extra
}

var stopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"been": true, "were": true, "will": true, "would": true, "their": true,
	"there": true, "which": true, "where": true, "when": true, "shall": true,
	"must": true, "under": true, "upon": true, "into": true, "such": true,
	"other": true, "including": true, "between": true, "each": true,
	"them": true, "than": true, "these": true, "those": true, "within": true,
}

// tokenize normalizes text to a set of lowercase keyword tokens, dropping
// short words, numbers, and stopwords.
func tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	}) {
		if len(field) <= 3 || stopwords[field] {
			continue
		}
		if field[0] >= '0' && field[0] <= '9' {
			continue
		}
		tokens[field] = true
	}
	return tokens
}

// describeGaps renders missing and additional elements as one gap description.
func describeGaps(missing, additional []string) string {
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing mandatory elements: "+strings.Join(missing, ", "))
	}
	if len(additional) > 0 {
		parts = append(parts, "additional terms not in regulation: "+strings.Join(additional, ", "))
	}
	return strings.Join(parts, "; ")
}
