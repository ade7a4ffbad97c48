package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/datakite/governance-engine/pkg/apperrors"
	"github.com/datakite/governance-engine/pkg/config"
	"github.com/datakite/governance-engine/pkg/models"
)

// AnalysisStage identifies one suspension point of a single-table analysis.
// A cancelled context is honored at every stage boundary.
type AnalysisStage string

const (
	StageScan     AnalysisStage = "scan"
	StagePattern  AnalysisStage = "pattern"
	StageSemantic AnalysisStage = "semantic"
	StageSecurity AnalysisStage = "security"
	StageGenerate AnalysisStage = "generate"
)

// analysisStages in execution order, used for progress reporting.
var analysisStages = []AnalysisStage{StageScan, StagePattern, StageSemantic, StageSecurity, StageGenerate}

// ProgressEvent is one discrete progress update from a running analysis.
type ProgressEvent struct {
	Stage   AnalysisStage `json:"stage"`
	Current int           `json:"current"`
	Total   int           `json:"total"`
	Message string        `json:"message"`
}

// ProgressCallback receives progress events. Callbacks must be fast and
// non-blocking.
type ProgressCallback func(ProgressEvent)

// AnalyzeOptions tunes one analysis invocation. Zero values select the
// documented defaults.
type AnalyzeOptions struct {
	Assist   config.AssistConfig
	Progress ProgressCallback
}

// AnalysisService runs the semantic analysis of a single table as an
// explicit cancellable task. Cancellation discards the partial profile and
// leaves persisted state untouched: the caller only persists on success.
type AnalysisService interface {
	Analyze(ctx context.Context, table *models.Table, opts AnalyzeOptions) (*models.SemanticProfile, error)
}

type analysisService struct {
	analyzer   FieldAnalyzer
	gate       GateEvaluator
	aggregator ReviewStatsAggregator
	suggester  RoleSuggester
	profiler   DataProfiler
	logger     *zap.Logger
}

// NewAnalysisService creates the single-table analysis service. The
// suggester and profiler are optional: without a suggester no AI pass runs,
// without a profiler no field metrics are measured.
func NewAnalysisService(
	analyzer FieldAnalyzer,
	gate GateEvaluator,
	aggregator ReviewStatsAggregator,
	suggester RoleSuggester,
	profiler DataProfiler,
	logger *zap.Logger,
) AnalysisService {
	return &analysisService{
		analyzer:   analyzer,
		gate:       gate,
		aggregator: aggregator,
		suggester:  suggester,
		profiler:   profiler,
		logger:     logger.Named("analysis"),
	}
}

func (s *analysisService) Analyze(ctx context.Context, table *models.Table, opts AnalyzeOptions) (*models.SemanticProfile, error) {
	if table == nil {
		return nil, apperrors.ErrNilTable
	}
	assist := opts.Assist.WithDefaults()

	report := func(stage AnalysisStage, message string) {
		if opts.Progress == nil {
			return
		}
		current := 0
		for i, st := range analysisStages {
			if st == stage {
				current = i + 1
				break
			}
		}
		opts.Progress(ProgressEvent{
			Stage:   stage,
			Current: current,
			Total:   len(analysisStages),
			Message: message,
		})
	}

	// Stage 1: scan. Validate the field set before any classification.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(StageScan, fmt.Sprintf("scanning %d fields", len(table.Fields)))

	profile := &models.SemanticProfile{
		TableName:        table.Name,
		AnalysisStep:     models.AnalysisStepRunning,
		GovernanceStatus: models.GovernanceS1,
		Description:      table.Comment,
	}

	// Stage 2: pattern. Rule-table classification of every field.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(StagePattern, "matching naming patterns")

	confidenceSum := 0
	for _, field := range table.Fields {
		analysis := s.analyzer.Analyze(field)
		confidenceSum += analysis.RoleConfidence

		status := models.FieldStatusSuggested
		if analysis.RuleMatched {
			status = models.FieldStatusRuleMatched
		}
		profile.Fields = append(profile.Fields, models.FieldSemanticProfile{
			FieldName:      field.Name,
			Role:           analysis.Role,
			RoleConfidence: analysis.RoleConfidence,
			Sensitivity:    analysis.Sensitivity,
			SemanticStatus: status,
			ReviewStatus:   models.ReviewStatusPending,
		})
		if analysis.RuleMatched {
			profile.RuleEvidence = append(profile.RuleEvidence,
				fmt.Sprintf("%s: %s", field.Name, analysis.Reason))
		}
	}
	if len(table.Fields) > 0 {
		profile.RuleScore = float64(confidenceSum) / float64(len(table.Fields)) / 100
	}

	// Stage 3: semantic. AI suggestions; a failed suggestion pass degrades
	// to a rule-only profile instead of failing the analysis.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(StageSemantic, "collecting model suggestions")

	agreements := 0
	suggested := 0
	if s.suggester != nil {
		suggestions, err := s.suggester.SuggestRoles(ctx, table)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			s.logger.Warn("suggestion pass failed, continuing rule-only",
				zap.String("table", table.Name),
				zap.Error(err))
		default:
			for i := range profile.Fields {
				sug, ok := suggestions[profile.Fields[i].FieldName]
				if !ok {
					continue
				}
				suggested++
				profile.Fields[i].AISuggestion = string(sug.Role)
				profile.AIEvidenceItems = append(profile.AIEvidenceItems, models.AIEvidenceItem{
					Field:      profile.Fields[i].FieldName,
					Suggestion: sug.Suggestion,
					Confidence: sug.Confidence,
				})
				if profile.Fields[i].Role.Equal(sug.Role) {
					agreements++
				}
			}
		}
	}

	// Stage 4: security. Sensitivity is already classified per field; the
	// profiler adds data-quality measurements where a backend exists.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(StageSecurity, "classifying sensitivity")

	if s.profiler != nil {
		sampleRows := profileSampleRows(table.Rows, assist)
		for i, field := range table.Fields {
			metrics, err := s.profiler.Profile(ctx, field, sampleRows)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				s.logger.Debug("profiling unavailable for field",
					zap.String("table", table.Name),
					zap.String("field", field.Name),
					zap.Error(err))
				continue
			}
			m := metrics
			profile.Fields[i].Metrics = &m
		}
	}

	// Stage 5: generate. Gate check, review stats, and final score.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report(StageGenerate, "assembling profile")

	gateResult := s.gate.Check(table)
	profile.GateResult = &gateResult

	if suggested > 0 {
		agreeRatio := float64(agreements) / float64(suggested)
		profile.FinalScore = 0.7*profile.RuleScore + 0.3*agreeRatio
	} else {
		profile.FinalScore = profile.RuleScore
	}

	profile.ReviewStats = s.aggregator.BuildReviewStats(table, profile)
	profile.AnalysisStep = models.AnalysisStepDone

	s.logger.Info("table analysis complete",
		zap.String("table", table.Name),
		zap.Int("fields", len(profile.Fields)),
		zap.Float64("rule_score", profile.RuleScore),
		zap.Float64("final_score", profile.FinalScore),
		zap.String("gate", string(gateResult.Result)))

	return profile, nil
}

// profileSampleRows sizes the profiling sample: the configured ratio of the
// table's row count, capped by the configured maximum. An unknown row count
// falls back to the cap.
func profileSampleRows(rows int64, assist config.AssistConfig) int {
	if rows <= 0 {
		return assist.MaxRows
	}
	n := int(float64(rows) * assist.SampleRatio)
	if n < 1 {
		n = 1
	}
	if n > assist.MaxRows {
		n = assist.MaxRows
	}
	return n
}
