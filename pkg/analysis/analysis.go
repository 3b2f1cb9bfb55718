// Package analysis orchestrates a full calcium scoring run: candidate mask,
// lesion extraction, noise filtering, Agatston scoring, severity grading and
// statistical aggregation. A run is a synchronous computation over an
// immutable volume snapshot; runs share no mutable state and may execute
// back to back or on separate volumes concurrently.
package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"aocascore/pkg/config"
	"aocascore/pkg/lesion"
	"aocascore/pkg/mask"
	"aocascore/pkg/scoring"
	"aocascore/pkg/selection"
	"aocascore/pkg/stats"
	"aocascore/pkg/volume"
)

// ErrCancelled is returned when a run is aborted through its context.
// Partial state is discarded; the run can be triggered again from scratch.
var ErrCancelled = errors.New("analysis cancelled by caller")

// PatientContext carries patient metadata. Only Sex affects the pipeline
// (severity grading); the rest passes through to the report.
type PatientContext struct {
	Name string
	ID   string
	Sex  scoring.Sex
	Age  int
}

// Params configures one analysis run.
type Params struct {
	Volume    *volume.Volume
	Selection selection.Selection
	Patient   PatientContext
	Config    *config.Config
}

// Report is the complete output of one run. Lesions listed here are owned
// by this run and never shared with another.
type Report struct {
	// RunID uniquely identifies the run that produced this report
	RunID uuid.UUID

	Result         scoring.Result
	Severity       scoring.Severity
	Classification string
	Interpretation string

	Statistics stats.Statistics

	// Lesions is the filtered set with per-voxel membership, for 3D
	// rendering by density band
	Lesions []lesion.Lesion

	Patient  PatientContext
	Duration time.Duration
}

// Analyzer runs the scoring pipeline for a fixed set of parameters.
type Analyzer struct {
	params Params
}

// NewAnalyzer creates an analyzer for the given run parameters.
func NewAnalyzer(params Params) *Analyzer {
	return &Analyzer{params: params}
}

// Run executes the pipeline. Preconditions (selection validity, patient
// sex) are checked before any computation starts; an empty mask or a fully
// filtered lesion set is a valid zero-score outcome, not an error.
func (a *Analyzer) Run(ctx context.Context) (*Report, error) {
	p := a.params
	cfg := p.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	// Fail fast: nothing is computed until both preconditions hold
	if err := p.Selection.Validate(p.Volume); err != nil {
		return nil, err
	}
	if p.Patient.Sex == scoring.SexUnknown {
		return nil, scoring.ErrMissingPatientSex
	}

	runID := uuid.New()
	start := time.Now()
	runLog := log.WithFields(log.Fields{
		"run":    runID,
		"method": p.Selection.Kind,
	})
	runLog.WithField("thresholdHU", cfg.Detection.ThresholdHU).Info("starting calcium analysis")

	m, err := mask.Build(ctx, p.Volume, p.Selection, cfg.Detection.ThresholdHU)
	if err != nil {
		return nil, a.wrapCancel(err, "building candidate mask")
	}
	runLog.WithField("voxels", m.TrueCount()).Info("candidate mask built")

	lesions, err := lesion.Extract(ctx, m, p.Volume, cfg.Processing.NumWorkers)
	if err != nil {
		return nil, a.wrapCancel(err, "extracting lesions")
	}

	filtered := lesion.Filter(lesions, p.Selection.Kind, lesion.FilterConfig{
		MinVolumeMM3: cfg.Detection.MinLesionVolumeMM3,
		MinAreaMM2:   cfg.Detection.MinLesionAreaMM2,
	}, p.Volume.PixelArea())
	runLog.WithFields(log.Fields{
		"candidates": len(lesions),
		"kept":       len(filtered.Kept),
		"removed":    filtered.Removed,
	}).Info("noise filter applied")

	scoreCfg := scoring.Config{
		MassCalibration: cfg.Scoring.MassCalibration,
		MinSliceAreaMM2: cfg.Detection.MinLesionAreaMM2,
		CorrectOverlap:  cfg.Scoring.CorrectOverlap,
	}

	result := scoring.Score(filtered.Kept, p.Volume, scoreCfg)
	if len(lesions) == 0 {
		result.Condition = scoring.ConditionNoLesionFound
	}

	severity, err := scoring.Classify(result.TotalAgatston, p.Patient.Sex)
	if err != nil {
		return nil, err
	}

	statistics := stats.Aggregate(filtered.Kept, p.Volume, scoreCfg, stats.Config{
		SectorCount: cfg.Statistics.AngularSectors,
		Percentiles: cfg.Statistics.Percentiles,
	})

	if err := ctx.Err(); err != nil {
		// Discard everything computed after a late cancellation
		return nil, errors.Wrap(ErrCancelled, err.Error())
	}

	report := &Report{
		RunID:          runID,
		Result:         result,
		Severity:       severity,
		Classification: scoring.ClassificationText(severity),
		Interpretation: scoring.Interpretation(result.TotalAgatston, severity),
		Statistics:     statistics,
		Lesions:        filtered.Kept,
		Patient:        p.Patient,
		Duration:       time.Since(start),
	}

	entry := runLog.WithFields(log.Fields{
		"agatstonAU": result.TotalAgatston,
		"volumeMM3":  result.TotalVolumeMM3,
		"severity":   severity,
		"elapsed":    report.Duration,
	})
	if result.Condition == scoring.ConditionOK {
		entry.Info("analysis complete")
	} else {
		entry.WithField("condition", result.Condition).Warn("analysis complete with zero score")
	}
	return report, nil
}

// wrapCancel maps a context cancellation to ErrCancelled and wraps any
// other failure with the stage description.
func (a *Analyzer) wrapCancel(err error, stage string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(ErrCancelled, stage)
	}
	return errors.Wrap(err, stage)
}
