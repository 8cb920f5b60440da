// Package service holds the process-wide scoring state: the current offer,
// the current lead batch and the latest scoring run.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/lead-scorer/internal/apperr"
	"github.com/spigell/lead-scorer/internal/leads"
	"github.com/spigell/lead-scorer/internal/logger"
	"github.com/spigell/lead-scorer/internal/scoring"
)

// Defect describes one row that failed validation.
type Defect struct {
	Row               int `json:"row"`
	MissingValueCount int `json:"missing_value_count"`
}

// UploadSummary reports how an upload was split.
type UploadSummary struct {
	Total          int      `json:"total"`
	Validated      int      `json:"validated"`
	Defective      int      `json:"defective"`
	MissingColumns []string `json:"missing_columns,omitempty"`
	Defects        []Defect `json:"defects,omitempty"`
}

// RunInfo describes a completed scoring run.
type RunInfo struct {
	ID         string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Count      int       `json:"count"`
	scoring.Stats
}

// Run is a completed scoring run. Results are ranked and must not be modified.
type Run struct {
	RunInfo
	Results []leads.ScoredLead `json:"results"`

	generation uint64
}

// Service guards the scoring state. Every mutation replaces a whole object
// under the write lock, so readers see either the previous or the next state.
type Service struct {
	pipeline *scoring.Pipeline
	logger   *zap.Logger

	now   func() time.Time
	newID func() string

	mu         sync.RWMutex
	offer      *leads.Offer
	batch      leads.Batch
	run        *Run
	generation uint64
}

func New(pipeline *scoring.Pipeline, log *zap.Logger) *Service {
	return &Service{
		pipeline: pipeline,
		logger:   logger.WithFields(log),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SetOffer validates and stores offer, replacing the previous one. Lead data
// is kept; the latest results are invalidated.
func (s *Service) SetOffer(offer leads.Offer) error {
	if err := leads.ValidateOffer(offer); err != nil {
		return err
	}

	stored := leads.Offer{
		Name:          offer.Name,
		ValueProps:    slices.Clone(offer.ValueProps),
		IdealUseCases: slices.Clone(offer.IdealUseCases),
	}

	s.mu.Lock()
	s.offer = &stored
	s.generation++
	s.mu.Unlock()

	s.logger.Info("offer configured",
		zap.String("offer", stored.Name),
		zap.Int("value_props", len(stored.ValueProps)),
		zap.Int("ideal_use_cases", len(stored.IdealUseCases)),
	)

	return nil
}

// Offer returns the current offer.
func (s *Service) Offer() (leads.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.offer == nil {
		return leads.Offer{}, apperr.NoOfferConfigured().WithOp("get offer")
	}
	return *s.offer, nil
}

// UploadCSV parses a lead sheet and replaces the current lead batch with it.
func (s *Service) UploadCSV(r io.Reader) (UploadSummary, error) {
	sheet, err := leads.ParseCSV(r)
	if err != nil {
		return UploadSummary{}, apperr.Wrap(apperr.KindInvalidInput, "invalid csv", err).WithOp("upload leads")
	}

	summary, err := s.ReplaceLeads(sheet.Records)
	if err != nil {
		return UploadSummary{}, err
	}

	summary.MissingColumns = sheet.MissingColumns()
	if len(summary.MissingColumns) > 0 {
		s.logger.Warn("lead sheet is missing required columns", zap.Strings("columns", summary.MissingColumns))
	}

	return summary, nil
}

// ReplaceLeads validates records and replaces the current lead batch. The
// latest results are invalidated.
func (s *Service) ReplaceLeads(records []leads.RawRecord) (UploadSummary, error) {
	if len(records) == 0 {
		return UploadSummary{}, apperr.InvalidInput("upload contains no lead rows").WithOp("upload leads")
	}

	batch, err := leads.Split(records)
	if err != nil {
		return UploadSummary{}, apperr.Internal("validate leads", err).WithOp("upload leads")
	}

	s.mu.Lock()
	s.batch = batch
	s.generation++
	s.mu.Unlock()

	summary := UploadSummary{
		Total:     batch.Len(),
		Validated: len(batch.Validated),
		Defective: len(batch.Defective),
	}
	for _, d := range batch.Defective {
		summary.Defects = append(summary.Defects, Defect{Row: d.Row, MissingValueCount: d.MissingValueCount})
	}

	s.logger.Info("leads uploaded",
		zap.Int("total", summary.Total),
		zap.Int("validated", summary.Validated),
		zap.Int("defective", summary.Defective),
	)

	return summary, nil
}

// RunScoring scores every current lead against the current offer and stores
// the ranked results as the latest run.
func (s *Service) RunScoring(ctx context.Context) (RunInfo, error) {
	s.mu.RLock()
	offer := s.offer
	batch := s.batch
	generation := s.generation
	s.mu.RUnlock()

	if offer == nil {
		return RunInfo{}, apperr.NoOfferConfigured().WithOp("run scoring")
	}
	if batch.Len() == 0 {
		return RunInfo{}, apperr.NoLeadsUploaded().WithOp("run scoring")
	}

	info := RunInfo{ID: s.newID(), StartedAt: s.now()}
	log := s.logger.With(logger.RunFields(info.ID, "")...)

	log.Info("scoring run started",
		zap.String("offer", offer.Name),
		zap.Int("validated", len(batch.Validated)),
		zap.Int("defective", len(batch.Defective)),
	)

	results, stats, err := s.pipeline.WithLogger(log).Run(ctx, *offer, batch)
	if err != nil {
		log.Error("scoring run failed", zap.Error(err))
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return RunInfo{}, err
		}
		return RunInfo{}, apperr.Internal("scoring run failed", err).WithOp("run scoring")
	}

	info.FinishedAt = s.now()
	info.Count = len(results)
	info.Stats = stats

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != generation {
		log.Warn("discarding scoring run", zap.String("reason", "offer or leads changed while scoring"))
		return RunInfo{}, apperr.InvalidInput("offer or leads changed while scoring: run scoring again").WithOp("run scoring")
	}

	s.run = &Run{RunInfo: info, Results: results, generation: generation}

	log.Info("scoring run finished",
		zap.Int("count", info.Count),
		zap.Int("ai_fallbacks", stats.AIFallbacks),
		zap.Duration("took", info.FinishedAt.Sub(info.StartedAt)),
	)

	return info, nil
}

// Results returns the latest run. It fails with NoResultsAvailable when
// scoring never ran or the offer or leads were replaced since.
func (s *Service) Results() (Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.run == nil || s.run.generation != s.generation {
		return Run{}, apperr.NoResultsAvailable().WithOp("get results")
	}

	run := *s.run
	run.Results = slices.Clone(s.run.Results)
	return run, nil
}

// WriteResultsCSV renders the latest run as CSV.
func (s *Service) WriteResultsCSV(w io.Writer) error {
	run, err := s.Results()
	if err != nil {
		return err
	}

	if err := leads.WriteCSV(w, run.Results); err != nil {
		return fmt.Errorf("write results csv: %w", err)
	}
	return nil
}
