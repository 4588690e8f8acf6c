package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/circuit-studio/engine/internal/circuit"
	"github.com/circuit-studio/engine/internal/correction"
	"github.com/circuit-studio/engine/internal/models"
	"github.com/circuit-studio/engine/internal/pcb"
	"github.com/circuit-studio/engine/internal/pipeline"
	"github.com/circuit-studio/engine/internal/repository"
	"github.com/circuit-studio/engine/internal/validation"
	appErr "github.com/circuit-studio/engine/pkg/errors"
	"github.com/circuit-studio/engine/pkg/logger"
	"github.com/circuit-studio/engine/pkg/utils"
)

// TaskTypeGenerate is the asynq task type for background design runs.
const TaskTypeGenerate = "design:generate"

// CircuitService runs validation and correction on circuit graphs and
// manages background design runs.
type CircuitService interface {
	// Synchronous engine access
	ValidateGraph(ctx context.Context, graph *circuit.Graph) *validation.Result
	CorrectGraph(ctx context.Context, graph *circuit.Graph) *correction.LoopResult
	ValidateRevision(ctx context.Context, projectID, userID uuid.UUID, version int) (*validation.Result, error)
	ExportNetlist(ctx context.Context, projectID, userID uuid.UUID) (string, error)

	// Design run lifecycle
	StartRun(ctx context.Context, projectID, userID uuid.UUID, input *StartRunInput) (*models.DesignRun, error)
	GetRun(ctx context.Context, runID, userID uuid.UUID) (*models.DesignRun, error)
	ListRuns(ctx context.Context, projectID, userID uuid.UUID) ([]models.DesignRun, error)

	// Status updates (called by worker)
	UpdateRunStatus(ctx context.Context, runID uuid.UUID, status string) error
	SaveRunResult(ctx context.Context, runID uuid.UUID, result *pipeline.Result) error
}

type StartRunInput struct {
	Description string
}

// GeneratePayload is the asynq payload for a design run.
type GeneratePayload struct {
	RunID string `json:"run_id"`
}

type circuitService struct {
	db           *gorm.DB
	projectRepo  repository.ProjectRepository
	revisionRepo repository.RevisionRepository
	runRepo      repository.RunRepository
	asynqClient  *asynq.Client
}

func NewCircuitService(db *gorm.DB, projectRepo repository.ProjectRepository, revisionRepo repository.RevisionRepository, runRepo repository.RunRepository, client *asynq.Client) CircuitService {
	return &circuitService{db: db, projectRepo: projectRepo, revisionRepo: revisionRepo, runRepo: runRepo, asynqClient: client}
}

var _ CircuitService = (*circuitService)(nil)

func (s *circuitService) ValidateGraph(ctx context.Context, graph *circuit.Graph) *validation.Result {
	return validation.Validate(graph)
}

func (s *circuitService) CorrectGraph(ctx context.Context, graph *circuit.Graph) *correction.LoopResult {
	return correction.RunLoop(graph, correction.DefaultMaxIterations)
}

// ValidateRevision revalidates a stored revision and persists the fresh
// report. Version 0 selects the current revision.
func (s *circuitService) ValidateRevision(ctx context.Context, projectID, userID uuid.UUID, version int) (*validation.Result, error) {
	rev, err := s.loadRevision(ctx, projectID, userID, version)
	if err != nil {
		return nil, err
	}

	var graph circuit.Graph
	if err := json.Unmarshal(rev.Graph, &graph); err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "unmarshal stored graph failed")
	}

	report := validation.Validate(&graph)
	reportB, err := json.Marshal(report)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal validation report failed")
	}
	if err := s.db.WithContext(ctx).Model(&models.CircuitRevision{}).Where("id = ?", rev.ID).Update("validation", datatypes.JSON(reportB)).Error; err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "persist validation report failed")
	}
	return report, nil
}

// ExportNetlist renders the current revision's graph as a KiCad netlist.
func (s *circuitService) ExportNetlist(ctx context.Context, projectID, userID uuid.UUID) (string, error) {
	rev, err := s.loadRevision(ctx, projectID, userID, 0)
	if err != nil {
		return "", err
	}
	var graph circuit.Graph
	if err := json.Unmarshal(rev.Graph, &graph); err != nil {
		return "", appErr.Wrap(err, appErr.CodeInternal, "unmarshal stored graph failed")
	}
	return pcb.GenerateNetlist(&graph), nil
}

func (s *circuitService) loadRevision(ctx context.Context, projectID, userID uuid.UUID, version int) (*models.CircuitRevision, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	var rev models.CircuitRevision
	if version > 0 {
		if err := s.revisionRepo.GetByVersion(ctx, projectID, version, &rev); err != nil {
			return nil, err
		}
	} else {
		if err := s.revisionRepo.GetCurrentByProject(ctx, projectID, &rev); err != nil {
			return nil, err
		}
	}
	return &rev, nil
}

// StartRun records a pending design run and enqueues it for the worker.
func (s *circuitService) StartRun(ctx context.Context, projectID, userID uuid.UUID, input *StartRunInput) (*models.DesignRun, error) {
	logger.L().Info("start design run", zap.String("project_id", projectID.String()), zap.String("user_id", userID.String()))

	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}

	var latest models.DesignRun
	if err := s.runRepo.GetLatestByProject(ctx, projectID, &latest); err == nil {
		if latest.Status == models.RunStatusPending || latest.Status == models.RunStatusRunning {
			return nil, appErr.New(appErr.CodeConflict, "another active run exists for project")
		}
	}

	run := &models.DesignRun{
		ProjectID:   projectID,
		Description: input.Description,
		Status:      models.RunStatusPending,
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, err
	}

	pb, _ := json.Marshal(GeneratePayload{RunID: run.ID.String()})
	task := asynq.NewTask(TaskTypeGenerate, pb)
	if s.asynqClient == nil {
		logger.L().Warn("asynq client not configured, skipping enqueue", zap.String("run_id", run.ID.String()))
	} else {
		if _, err := s.asynqClient.EnqueueContext(ctx, task); err != nil {
			logger.L().Error("enqueue design run failed", zap.Error(err), zap.String("run_id", run.ID.String()))
			_ = s.runRepo.UpdateStatus(ctx, run.ID, models.RunStatusFailed)
			return nil, appErr.Wrap(err, appErr.CodeInternal, "enqueue design run failed")
		}
	}

	logger.L().Info("design run enqueued", zap.String("run_id", run.ID.String()), zap.String("project_id", projectID.String()))
	return run, nil
}

func (s *circuitService) GetRun(ctx context.Context, runID, userID uuid.UUID) (*models.DesignRun, error) {
	var run models.DesignRun
	if err := s.runRepo.GetByID(ctx, runID, &run); err != nil {
		return nil, err
	}
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, run.ProjectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}
	return &run, nil
}

func (s *circuitService) ListRuns(ctx context.Context, projectID, userID uuid.UUID) ([]models.DesignRun, error) {
	var p models.Project
	if err := s.projectRepo.GetByID(ctx, projectID, &p); err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, appErr.New(appErr.CodeUnauthorized, "user does not own project")
	}
	return s.runRepo.ListByProject(ctx, projectID)
}

func (s *circuitService) UpdateRunStatus(ctx context.Context, runID uuid.UUID, status string) error {
	logger.L().Info("update run status", zap.String("run_id", runID.String()), zap.String("status", status))
	return s.runRepo.UpdateStatus(ctx, runID, status)
}

// SaveRunResult persists a finished pipeline run: intent and BOM as
// their own columns, everything else under outputs, plus a new circuit
// revision the run links to.
func (s *circuitService) SaveRunResult(ctx context.Context, runID uuid.UUID, result *pipeline.Result) error {
	var run models.DesignRun
	if err := s.runRepo.GetByID(ctx, runID, &run); err != nil {
		return err
	}

	intentB, err := json.Marshal(result.Intent)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "marshal intent failed")
	}

	outputs := map[string]any{
		"components":  result.Components,
		"circuit":     result.Circuit,
		"validation":  result.Validation,
		"corrections": result.Corrections,
		"iterations":  result.Iterations,
	}
	if result.PCBConstraints != nil {
		outputs["pcb_constraints"] = result.PCBConstraints
	}
	if result.GerberJob != nil {
		outputs["gerber_job"] = result.GerberJob
	}
	if result.Circuit != nil {
		netlist := pcb.GenerateNetlist(result.Circuit)
		outputs["netlist"] = netlist
		outputs["netlist_sha256"] = utils.HexSHA256([]byte(netlist))
	}
	outputsB, err := json.Marshal(outputs)
	if err != nil {
		return appErr.Wrap(err, appErr.CodeInternal, "marshal outputs failed")
	}

	run.Status = result.PipelineStatus
	run.Intent = datatypes.JSON(intentB)
	run.Outputs = datatypes.JSON(outputsB)
	if result.BOM != nil {
		bomB, err := json.Marshal(result.BOM)
		if err != nil {
			return appErr.Wrap(err, appErr.CodeInternal, "marshal bom failed")
		}
		run.BOM = datatypes.JSON(bomB)
	}

	if result.Circuit != nil {
		rev, err := s.saveGeneratedRevision(ctx, run.ProjectID, result)
		if err != nil {
			return err
		}
		run.RevisionID = &rev.ID
	}

	if err := s.runRepo.Update(ctx, &run); err != nil {
		return err
	}

	logger.L().Info("design run result saved",
		zap.String("run_id", runID.String()),
		zap.String("status", run.Status))
	return nil
}

// saveGeneratedRevision stores the generated graph as the project's
// next current revision, same transaction shape as manual saves.
func (s *circuitService) saveGeneratedRevision(ctx context.Context, projectID uuid.UUID, result *pipeline.Result) (*models.CircuitRevision, error) {
	graphB, err := json.Marshal(result.Circuit)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal graph failed")
	}
	reportB, err := json.Marshal(result.Validation)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "marshal validation report failed")
	}

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, appErr.Wrap(tx.Error, appErr.CodeInternal, "begin transaction failed")
	}

	var maxVersion int
	if err := tx.Model(&models.CircuitRevision{}).Where("project_id = ?", projectID).Select("COALESCE(MAX(version),0)").Scan(&maxVersion).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "compute revision version failed")
	}

	if err := tx.Model(&models.CircuitRevision{}).Where("project_id = ? AND is_current = true", projectID).Update("is_current", false).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "mark previous revisions failed")
	}

	rev := &models.CircuitRevision{
		ProjectID:  projectID,
		Version:    maxVersion + 1,
		Graph:      datatypes.JSON(graphB),
		Validation: datatypes.JSON(reportB),
		IsCurrent:  true,
	}
	if err := tx.Create(rev).Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "create revision failed")
	}

	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return nil, appErr.Wrap(err, appErr.CodeInternal, "commit transaction failed")
	}
	return rev, nil
}
