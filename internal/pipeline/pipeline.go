// Package pipeline chains the design engines end to end:
// description -> intent -> components -> circuit -> validation and
// correction -> BOM and PCB outputs. Manufacturing artifacts are only
// produced when the corrected circuit validates clean.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/circuit-studio/engine/internal/bom"
	"github.com/circuit-studio/engine/internal/catalog"
	"github.com/circuit-studio/engine/internal/circuit"
	"github.com/circuit-studio/engine/internal/correction"
	"github.com/circuit-studio/engine/internal/generator"
	"github.com/circuit-studio/engine/internal/intent"
	"github.com/circuit-studio/engine/internal/pcb"
	"github.com/circuit-studio/engine/internal/validation"
)

// Status values for a pipeline run.
const (
	StatusCompleted        = "completed"
	StatusValidationFailed = "validation_failed"
)

// Result is the full output of one pipeline run. BOM and PCB fields
// are nil when validation did not converge.
type Result struct {
	Intent         intent.ParseResult  `json:"intent"`
	Components     *catalog.Selection  `json:"components"`
	Circuit        *circuit.Graph      `json:"circuit"`
	Validation     *validation.Result  `json:"validation"`
	Corrections    []string            `json:"corrections"`
	Iterations     int                 `json:"iterations"`
	PCBConstraints *pcb.Constraints    `json:"pcb_constraints,omitempty"`
	BOM            *bom.BOM            `json:"bom,omitempty"`
	GerberJob      *pcb.GerberJob      `json:"gerber_job,omitempty"`
	PipelineStatus string              `json:"pipeline_status"`
}

// Runner executes the design pipeline. Stateless apart from its logger
// and the component database it selects from.
type Runner interface {
	Run(ctx context.Context, description string) (*Result, error)
}

type runner struct {
	log *zap.Logger
	db  *catalog.Database
}

var _ Runner = (*runner)(nil)

// NewRunner returns the default pipeline runner selecting from db.
// A nil logger disables logging; a nil db makes each run load its own
// copy of the embedded catalog.
func NewRunner(log *zap.Logger, db *catalog.Database) Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &runner{log: log.Named("pipeline"), db: db}
}

func (r *runner) Run(ctx context.Context, description string) (*Result, error) {
	db := r.db
	if db == nil {
		var err error
		db, err = catalog.Load()
		if err != nil {
			return nil, err
		}
	}

	parsed := intent.Parse(description)
	r.log.Info("intent parsed",
		zap.String("device_type", parsed.Intent.DeviceType),
		zap.Float64("confidence", parsed.Confidence))

	components := db.Select(parsed.Intent)
	r.log.Info("components selected",
		zap.String("mcu", components.MCU.PartNumber),
		zap.Int("sensors", len(components.Sensors)))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	graph := generator.Generate(components)
	loop := correction.RunLoop(graph, correction.DefaultMaxIterations)

	// The loop stops once no errors remain; fixable warnings on an
	// otherwise valid graph get one cleanup pass before manufacturing
	// output.
	if loop.Validation.Valid() && len(loop.Validation.Warnings) > 0 {
		fixed := correction.Correct(loop.Graph, loop.Validation)
		if len(fixed.Corrections) > 0 {
			loop.Graph = fixed.CorrectedGraph
			loop.Validation = validation.Validate(loop.Graph)
			loop.Corrections = append(loop.Corrections, fixed.Corrections...)
			loop.Iterations++
		}
	}

	r.log.Info("validation finished",
		zap.String("status", string(loop.Validation.Status)),
		zap.Int("iterations", loop.Iterations),
		zap.Int("corrections", len(loop.Corrections)))

	res := &Result{
		Intent:         parsed,
		Components:     components,
		Circuit:        loop.Graph,
		Validation:     loop.Validation,
		Corrections:    loop.Corrections,
		Iterations:     loop.Iterations,
		PipelineStatus: StatusCompleted,
	}

	if !loop.Validation.Valid() {
		res.PipelineStatus = StatusValidationFailed
		r.log.Warn("circuit failed validation, skipping manufacturing outputs",
			zap.Int("errors", len(loop.Validation.Errors)))
		return res, nil
	}

	res.PCBConstraints = pcb.GenerateConstraints(loop.Graph)
	billOfMaterials, err := bom.Generate(db, loop.Graph)
	if err != nil {
		return nil, err
	}
	res.BOM = billOfMaterials
	res.GerberJob = pcb.PrepareGerberExport(loop.Graph, res.PCBConstraints, "")

	return res, nil
}
