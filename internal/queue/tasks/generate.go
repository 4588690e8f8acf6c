package tasks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/circuit-studio/engine/internal/models"
	"github.com/circuit-studio/engine/internal/pipeline"
	"github.com/circuit-studio/engine/internal/repository"
	"github.com/circuit-studio/engine/internal/services"
	"github.com/circuit-studio/engine/pkg/logger"
)

// GenerateTaskHandler executes queued design runs.
type GenerateTaskHandler struct {
	runner     pipeline.Runner
	circuitSvc services.CircuitService
	runRepo    repository.RunRepository
}

func NewGenerateTaskHandler(runner pipeline.Runner, circuitSvc services.CircuitService, runRepo repository.RunRepository) *GenerateTaskHandler {
	return &GenerateTaskHandler{runner: runner, circuitSvc: circuitSvc, runRepo: runRepo}
}

// HandleGenerate runs the full design pipeline for a queued run and
// persists the outcome. A run that fails validation is not a task
// error; only infrastructure failures are returned for retry.
func (h *GenerateTaskHandler) HandleGenerate(ctx context.Context, t *asynq.Task) error {
	var p services.GeneratePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		logger.L().Error("invalid generate task payload", zap.Error(err))
		return err
	}
	id, err := uuid.Parse(p.RunID)
	if err != nil {
		logger.L().Error("invalid run id in task", zap.Error(err))
		return err
	}

	logger.L().Info("handling generate task", zap.String("run_id", id.String()))

	var run models.DesignRun
	if err := h.runRepo.GetByID(ctx, id, &run); err != nil {
		logger.L().Error("get design run failed", zap.Error(err))
		return err
	}

	if err := h.circuitSvc.UpdateRunStatus(ctx, id, models.RunStatusRunning); err != nil {
		logger.L().Warn("update status running failed", zap.Error(err))
	}

	result, err := h.runner.Run(ctx, run.Description)
	if err != nil {
		logger.L().Error("design pipeline failed", zap.Error(err), zap.String("run_id", id.String()))
		_ = h.circuitSvc.UpdateRunStatus(ctx, id, models.RunStatusFailed)
		return err
	}

	if err := h.circuitSvc.SaveRunResult(ctx, id, result); err != nil {
		logger.L().Error("save run result failed", zap.Error(err), zap.String("run_id", id.String()))
		_ = h.circuitSvc.UpdateRunStatus(ctx, id, models.RunStatusFailed)
		return err
	}

	logger.L().Info("generate task finished",
		zap.String("run_id", id.String()),
		zap.String("status", result.PipelineStatus))
	return nil
}
