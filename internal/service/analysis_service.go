package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"minecomply/internal/adapter/agents"
	"minecomply/internal/aggregate"
	"minecomply/internal/domain"
	"minecomply/internal/events"
	"minecomply/internal/index"
	"minecomply/internal/mapping"
	"minecomply/internal/port"
)

// Config holds the tunable engine parameters for analysis runs.
type Config struct {
	// SimilarityThreshold gates candidate retrieval from the index.
	SimilarityThreshold float64 `validate:"gte=0,lte=1"`
	// TopKCandidates bounds retrieval per clause.
	TopKCandidates int `validate:"gte=1"`
	// AgentTimeout bounds the reasoning fan-out; expiry fails the run.
	AgentTimeout time.Duration `validate:"gt=0"`
	// FindingCacheTTL controls reuse of agent findings for identical inputs.
	FindingCacheTTL time.Duration `validate:"gt=0"`

	Mapping   mapping.Options
	Agents    agents.Options
	Aggregate aggregate.Options
}

// DefaultConfig returns the documented engine defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold: 0.60,
		TopKCandidates:      10,
		AgentTimeout:        5 * time.Minute,
		FindingCacheTTL:     5 * time.Minute,
		Mapping:             mapping.DefaultOptions(),
		Agents:              agents.DefaultOptions(),
		Aggregate:           aggregate.DefaultOptions(),
	}
}

// RunObserver is notified of every pipeline state transition.
type RunObserver func(state domain.RunState)

// AnalysisService orchestrates one analysis run end to end: corpus indexing,
// clause mapping, agent fan-out, and aggregation. Runs share no mutable
// state beyond the finding cache, which is safe because agents are
// idempotent over their input.
type AnalysisService struct {
	registry   *port.AgentRegistry
	aggregator *aggregate.Aggregator
	embedder   port.EmbeddingProvider
	bus        *events.Bus
	cache      *gocache.Cache
	log        *zap.Logger
	cfg        Config
}

var validate = validator.New()

// NewAnalysisService wires the pipeline. Configuration, including the
// category weights, is validated here at startup, never mid-run.
func NewAnalysisService(registry *port.AgentRegistry, embedder port.EmbeddingProvider, bus *events.Bus, log *zap.Logger, cfg Config) (*AnalysisService, error) {
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("new analysis service: %w", err)
	}
	aggregator, err := aggregate.New(cfg.Aggregate)
	if err != nil {
		return nil, fmt.Errorf("new analysis service: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisService{
		registry:   registry,
		aggregator: aggregator,
		embedder:   embedder,
		bus:        bus,
		cache:      gocache.New(cfg.FindingCacheTTL, 2*cfg.FindingCacheTTL),
		log:        log,
		cfg:        cfg,
	}, nil
}

// Run executes one analysis over the given clauses and regulation corpus,
// scoped to a jurisdiction (plus federal law). It returns the terminal
// result together with the per-clause mappings for reporting.
//
// Per-clause errors are isolated: the clause is recorded as unmapped and
// listed in the result's skipped clauses. Run-level errors transition the
// run to failed and carry the state they occurred in.
// An empty analysisID gets a generated one; callers persisting run state
// supply their own so rows and events share the identifier.
func (s *AnalysisService) Run(ctx context.Context, analysisID, documentID, jurisdiction string, clauses []domain.Clause, regulations []domain.Regulation, observe RunObserver) (*domain.AnalysisResult, []domain.ComplianceMapping, error) {
	if analysisID == "" {
		analysisID = uuid.New().String()
	}
	state := domain.StateQueued

	transition := func(next domain.RunState) {
		state = next
		s.log.Info("analysis state change",
			zap.String("analysis_id", analysisID),
			zap.String("document_id", documentID),
			zap.String("state", string(next)),
		)
		if observe != nil {
			observe(next)
		}
		if err := s.bus.PublishStateChange(events.StateChange{
			AnalysisID: analysisID,
			DocumentID: documentID,
			State:      next,
		}); err != nil {
			s.log.Warn("publish state change failed", zap.Error(err))
		}
	}

	fail := func(err error) (*domain.AnalysisResult, []domain.ComplianceMapping, error) {
		runErr := &port.AnalysisError{State: state, Err: err}
		s.log.Error("analysis failed",
			zap.String("analysis_id", analysisID),
			zap.String("state", string(state)),
			zap.Error(err),
		)
		if observe != nil {
			observe(domain.StateFailed)
		}
		if pubErr := s.bus.PublishStateChange(events.StateChange{
			AnalysisID: analysisID,
			DocumentID: documentID,
			State:      domain.StateFailed,
			Error:      runErr.Error(),
		}); pubErr != nil {
			s.log.Warn("publish state change failed", zap.Error(pubErr))
		}
		return nil, nil, runErr
	}

	transition(domain.StateQueued)

	// Ingest the regulation corpus into the similarity index.
	transition(domain.StateIngesting)
	idx, err := index.New(regulations)
	if err != nil {
		return fail(err)
	}
	regLookup := make(map[string]domain.Regulation, len(regulations))
	for _, r := range regulations {
		regLookup[r.ID] = r
	}

	// Clause records arrive pre-extracted; embed the ones missing vectors.
	transition(domain.StateExtractingClauses)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	var skipped []string
	skippedSet := make(map[string]bool)
	for i := range clauses {
		c := &clauses[i]
		if len(c.Embedding) > 0 || c.Text == "" {
			continue
		}
		if s.embedder == nil {
			return fail(fmt.Errorf("clause %s has no embedding and no embedding provider is configured", c.ID))
		}
		vec, embErr := s.embedder.Embed(ctx, c.Text)
		if embErr != nil {
			if ctx.Err() != nil {
				return fail(ctx.Err())
			}
			s.log.Warn("clause embedding failed, recording as unmapped",
				zap.String("clause_id", c.ID), zap.Error(embErr))
			skipped = append(skipped, c.ID)
			skippedSet[c.ID] = true
			continue
		}
		c.Embedding = vec
	}

	// Map every clause; per-clause failures isolate.
	transition(domain.StateMapping)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	builder := mapping.NewBuilder(s.cfg.Mapping)
	jurisdictions := jurisdictionFilter(jurisdiction)

	mappings := make([]domain.ComplianceMapping, 0, len(clauses))
	for _, clause := range clauses {
		if skippedSet[clause.ID] {
			mappings = append(mappings, skippedMapping(clause, "embedding unavailable"))
			continue
		}
		candidates, searchErr := idx.Search(clause.ID, clause.Embedding, jurisdictions, s.cfg.TopKCandidates, s.cfg.SimilarityThreshold)
		if searchErr != nil {
			s.log.Warn("similarity search failed, recording clause as unmapped",
				zap.String("clause_id", clause.ID), zap.Error(searchErr))
			skipped = append(skipped, clause.ID)
			mappings = append(mappings, skippedMapping(clause, searchErr.Error()))
			continue
		}
		m, buildErr := builder.Build(clause, candidates, regLookup)
		if buildErr != nil {
			s.log.Warn("mapping build failed, recording clause as unmapped",
				zap.String("clause_id", clause.ID), zap.Error(buildErr))
			skipped = append(skipped, clause.ID)
			mappings = append(mappings, skippedMapping(clause, buildErr.Error()))
			continue
		}
		mappings = append(mappings, *m)
	}

	// Fan the agents out and join before aggregation.
	transition(domain.StateReasoning)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	findings, err := s.runAgents(ctx, mappings)
	if err != nil {
		return fail(err)
	}

	result, err := s.aggregator.Aggregate(analysisID, documentID, findings)
	if err != nil {
		return fail(err)
	}
	result.ClausesAnalyzed = len(mappings) - len(skipped)
	result.SkippedClauses = skipped

	transition(domain.StateCompleted)
	return result, mappings, nil
}

// runAgents executes every registered agent concurrently over the shared
// immutable mapping slice and joins at a barrier. A missing finding, whether
// from timeout, cancellation, or agent error, fails the whole run.
func (s *AnalysisService) runAgents(ctx context.Context, mappings []domain.ComplianceMapping) (map[domain.Category]*domain.AgentFinding, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AgentTimeout)
	defer cancel()

	digest := mappingsDigest(mappings)

	type agentResult struct {
		category domain.Category
		finding  *domain.AgentFinding
		err      error
	}

	agentList := s.registry.Agents()
	results := make(chan agentResult, len(agentList))
	for _, agent := range agentList {
		go func(a port.CategoryAgent) {
			key := a.Name() + ":" + digest
			if cached, ok := s.cache.Get(key); ok {
				results <- agentResult{category: a.Category(), finding: cached.(*domain.AgentFinding)}
				return
			}
			finding, err := a.Analyze(ctx, mappings)
			if err == nil {
				s.cache.SetDefault(key, finding)
			}
			results <- agentResult{category: a.Category(), finding: finding, err: err}
		}(agent)
	}

	findings := make(map[domain.Category]*domain.AgentFinding, len(agentList))
	for range agentList {
		select {
		case res := <-results:
			if res.err != nil {
				if errors.Is(res.err, context.DeadlineExceeded) || errors.Is(res.err, context.Canceled) {
					return nil, s.incomplete(findings)
				}
				return nil, fmt.Errorf("agent %s: %w", res.category, res.err)
			}
			findings[res.category] = res.finding
		case <-ctx.Done():
			return nil, s.incomplete(findings)
		}
	}
	return findings, nil
}

// incomplete names every category still lacking a finding at abort time.
func (s *AnalysisService) incomplete(findings map[domain.Category]*domain.AgentFinding) error {
	var missing []domain.Category
	for _, c := range s.registry.Categories() {
		if findings[c] == nil {
			missing = append(missing, c)
		}
	}
	return &port.IncompleteAnalysisError{Missing: missing}
}

// jurisdictionFilter scopes retrieval to the run's jurisdiction plus federal
// law, reflecting dual-layer obligations. Empty means the whole catalog.
func jurisdictionFilter(jurisdiction string) []string {
	if jurisdiction == "" {
		return nil
	}
	if jurisdiction == domain.JurisdictionFederal {
		return []string{domain.JurisdictionFederal}
	}
	return []string{jurisdiction, domain.JurisdictionFederal}
}

// skippedMapping records a clause whose error was isolated. The coverage gap
// is reported explicitly rather than silently dropped.
func skippedMapping(clause domain.Clause, reason string) domain.ComplianceMapping {
	return domain.ComplianceMapping{
		ClauseID:          clause.ID,
		MappingType:       domain.MappingUnmapped,
		Status:            domain.StatusUnclear,
		Score:             0.0,
		Tier:              domain.TierLow,
		GapDescription:    "clause could not be processed: " + reason,
		Recommendations:   []string{"Review clause " + clause.ID + " manually; automated analysis could not process it"},
		ClauseCategory:    clause.Category,
		MandatoryLanguage: clause.MandatoryLanguage,
		PenaltyClause:     clause.PenaltyClause,
	}
}

// mappingsDigest fingerprints a mapping set for finding-cache keys.
func mappingsDigest(mappings []domain.ComplianceMapping) string {
	payload, err := json.Marshal(mappings)
	if err != nil {
		return uuid.New().String() // unreachable in practice; disables caching
	}
	sum := md5.Sum(payload)
	return hex.EncodeToString(sum[:])
}
