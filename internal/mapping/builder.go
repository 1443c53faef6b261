// Package mapping converts ranked similarity candidates for one clause into
// exactly one compliance mapping: confidence tiering, gap analysis, and
// compliance status derivation.
package mapping

import (
	"fmt"
	"strings"

	"minecomply/internal/domain"
	"minecomply/internal/port"
)

// Options holds the mapping thresholds. The confidence banding is a contract
// with downstream agents, not an implementation detail.
type Options struct {
	// Floor is the minimum top-candidate score for a clause to map at all.
	Floor float64
	// HighBand and MediumBand are the confidence tier lower bounds.
	HighBand   float64
	MediumBand float64
	// UnclearLow/UnclearHigh bound the ambiguous coverage band in which a
	// low-confidence match is judged unclear instead of non-compliant.
	UnclearLow  float64
	UnclearHigh float64
	// MandatoryPatterns are the recognized mandatory-language markers.
	MandatoryPatterns []string
}

// DefaultOptions returns the documented system behavior: 0.60 floor,
// 0.85/0.70 confidence bands, 0.55–0.65 unclear band.
func DefaultOptions() Options {
	return Options{
		Floor:             0.60,
		HighBand:          0.85,
		MediumBand:        0.70,
		UnclearLow:        0.55,
		UnclearHigh:       0.65,
		MandatoryPatterns: DefaultMandatoryPatterns(),
	}
}

// Tier classifies a similarity score into a confidence tier. It is a pure
// function of the score only.
func (o Options) Tier(score float64) domain.ConfidenceTier {
	switch {
	case score >= o.HighBand:
		return domain.TierHigh
	case score >= o.MediumBand:
		return domain.TierMedium
	default:
		return domain.TierLow
	}
}

// Builder turns candidates into compliance mappings. Build is a pure
// function of the clause, its candidates, and the configured thresholds.
type Builder struct {
	opts Options
}

// NewBuilder creates a builder with the given options.
func NewBuilder(opts Options) *Builder {
	if len(opts.MandatoryPatterns) == 0 {
		opts.MandatoryPatterns = DefaultMandatoryPatterns()
	}
	return &Builder{opts: opts}
}

// Build produces the single mapping for a clause from its ranked candidate
// list. regulations resolves candidate regulation IDs for gap analysis.
// A clause with empty text cannot be mapped and fails with
// MalformedClauseError.
func (b *Builder) Build(clause domain.Clause, candidates []domain.SimilarityCandidate, regulations map[string]domain.Regulation) (*domain.ComplianceMapping, error) {
	if strings.TrimSpace(clause.Text) == "" {
		return nil, &port.MalformedClauseError{ClauseID: clause.ID, Reason: "empty clause text"}
	}

	m := &domain.ComplianceMapping{
		ClauseID:          clause.ID,
		ClauseCategory:    clause.Category,
		MandatoryLanguage: clause.MandatoryLanguage,
		PenaltyClause:     clause.PenaltyClause,
	}

	if len(candidates) == 0 || candidates[0].Score < b.opts.Floor {
		m.MappingType = domain.MappingUnmapped
		m.Status = domain.StatusUnclear
		m.Score = 0.0
		m.Tier = domain.TierLow
		m.GapDescription = "no regulation matched above the similarity floor"
		m.Recommendations = []string{fmt.Sprintf("Manually review clause %s: no matching regulation found", clause.ID)}
		return m, nil
	}

	top := candidates[0]
	reg, ok := regulations[top.RegulationID]
	if !ok {
		return nil, fmt.Errorf("build mapping for clause %s: unknown regulation %s", clause.ID, top.RegulationID)
	}

	m.RegulationID = reg.ID
	m.RegulationJurisdiction = reg.Jurisdiction
	m.Tier = b.opts.Tier(top.Score)
	m.MappingType = mappingTypeForTier(m.Tier)

	// Coverage is the similarity score itself until a richer signal exists.
	m.Coverage = top.Score
	m.MissingElements = missingElements(clause.Text, reg.Text, b.opts.MandatoryPatterns)
	m.AdditionalElements = additionalElements(clause.Text, reg.Text)
	m.GapDescription = describeGaps(m.MissingElements, m.AdditionalElements)

	// Mandatory language raises the required coverage: a clause that must
	// satisfy an obligation but misses mandatory markers scores lower.
	m.Score = m.Coverage
	if clause.MandatoryLanguage && len(m.MissingElements) > 0 {
		m.Score = m.Coverage * 0.85
	}

	m.Status = b.deriveStatus(m)
	m.Recommendations = recommendationsFor(m, reg)
	return m, nil
}

// partialCoverageFloor is the documented coverage boundary for partial
// compliance. Deliberately not the (overridable) inclusion floor: lowering
// the floor admits weaker matches without relabeling them compliant.
const partialCoverageFloor = 0.60

// deriveStatus applies the status rules, including the explicit tie-break
// that judges ambiguous low-confidence matches unclear to avoid false
// negatives near the threshold boundary.
func (b *Builder) deriveStatus(m *domain.ComplianceMapping) domain.ComplianceStatus {
	switch {
	case m.Coverage >= b.opts.HighBand && len(m.MissingElements) == 0:
		return domain.StatusCompliant
	case m.Coverage >= partialCoverageFloor:
		return domain.StatusPartiallyCompliant
	case m.Tier == domain.TierLow && m.Coverage >= b.opts.UnclearLow && m.Coverage <= b.opts.UnclearHigh:
		return domain.StatusUnclear
	default:
		return domain.StatusNonCompliant
	}
}

func mappingTypeForTier(tier domain.ConfidenceTier) domain.MappingType {
	switch tier {
	case domain.TierHigh:
		return domain.MappingDirectRequirement
	case domain.TierMedium:
		return domain.MappingRelatedObligation
	default:
		return domain.MappingSupportingClause
	}
}

func recommendationsFor(m *domain.ComplianceMapping, reg domain.Regulation) []string {
	var recs []string
	switch m.Status {
	case domain.StatusNonCompliant:
		recs = append(recs, fmt.Sprintf("Revise clause %s to meet %s %s", m.ClauseID, reg.ActName, reg.Section))
	case domain.StatusPartiallyCompliant:
		if len(m.MissingElements) > 0 {
			recs = append(recs, fmt.Sprintf("Add missing obligations to clause %s: %s", m.ClauseID, strings.Join(m.MissingElements, ", ")))
		} else {
			recs = append(recs, fmt.Sprintf("Strengthen clause %s alignment with %s %s", m.ClauseID, reg.ActName, reg.Section))
		}
	case domain.StatusUnclear:
		recs = append(recs, fmt.Sprintf("Manually review clause %s against %s %s", m.ClauseID, reg.ActName, reg.Section))
	}
	return recs
}
