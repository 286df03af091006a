package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maraichr/pipescope/internal/graph"
	"github.com/maraichr/pipescope/internal/queue"
	"github.com/maraichr/pipescope/internal/store"
	"github.com/maraichr/pipescope/internal/store/postgres"
	"github.com/maraichr/pipescope/pkg/apierr"
)

// RunStore is the subset of *store.Store the run endpoints read and write.
type RunStore interface {
	CreateRun(ctx context.Context, arg postgres.CreateRunParams) (postgres.InventoryRun, error)
	FailRun(ctx context.Context, id uuid.UUID, message string) error
	GetRun(ctx context.Context, id uuid.UUID) (postgres.InventoryRun, error)
	ListRuns(ctx context.Context, arg postgres.ListRunsParams) ([]postgres.InventoryRun, error)
	ListRecords(ctx context.Context, arg postgres.ListRecordsParams) ([]postgres.PipelineRecord, error)
	ListErrors(ctx context.Context, runID uuid.UUID) ([]postgres.PipelineError, error)
	ListTemplateUsage(ctx context.Context, runID uuid.UUID) ([]postgres.TemplateUsage, error)
}

// Enqueuer is implemented by *queue.Producer.
type Enqueuer interface {
	Enqueue(ctx context.Context, msg queue.RunMessage) (string, error)
}

// TemplateRanker is implemented by *graph.Client.
type TemplateRanker interface {
	TopTemplates(ctx context.Context, limit int) ([]graph.TemplateReuse, error)
}

type RunHandler struct {
	logger   *slog.Logger
	store    RunStore
	producer Enqueuer
	graph    TemplateRanker
}

// NewRunHandler wires the run endpoints; producer and g may be nil.
func NewRunHandler(logger *slog.Logger, s RunStore, producer Enqueuer, g TemplateRanker) *RunHandler {
	return &RunHandler{logger: logger, store: s, producer: producer, graph: g}
}

type createRunRequest struct {
	OnlyPipeline string `json:"only_pipeline"`
}

// RunResponse is a run with its decoded summary.
type RunResponse struct {
	postgres.InventoryRun
	Summary *store.RunSummary `json:"summary,omitempty"`
}

func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h.producer == nil {
		writeAPIError(w, h.logger, apierr.QueueUnavailable())
		return
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeAPIError(w, h.logger, apierr.InvalidRequestBody())
		return
	}
	if e := validatePipelineID(req.OnlyPipeline); e != nil {
		writeAPIError(w, h.logger, e)
		return
	}

	run, err := h.store.CreateRun(r.Context(), postgres.CreateRunParams{
		Trigger:      queue.TriggerManual,
		OnlyPipeline: req.OnlyPipeline,
	})
	if err != nil {
		writeAPIError(w, h.logger, apierr.RunCreateFailed(err))
		return
	}

	msgID, err := h.producer.Enqueue(r.Context(), queue.RunMessage{
		RunID:        run.ID,
		Trigger:      run.Trigger,
		OnlyPipeline: run.OnlyPipeline,
	})
	if err != nil {
		if ferr := h.store.FailRun(context.WithoutCancel(r.Context()), run.ID, "enqueue: "+err.Error()); ferr != nil {
			h.logger.Error("mark run failed", slog.String("run_id", run.ID.String()), slog.String("error", ferr.Error()))
		}
		writeAPIError(w, h.logger, apierr.RunEnqueueFailed(err))
		return
	}

	h.logger.Info("run enqueued", slog.String("run_id", run.ID.String()), slog.String("message_id", msgID))
	writeJSON(w, http.StatusAccepted, run)
}

func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r, 20, 100)
	runs, err := h.store.ListRuns(r.Context(), postgres.ListRunsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		writeAPIError(w, h.logger, apierr.RunListFailed(err))
		return
	}
	if runs == nil {
		runs = []postgres.InventoryRun{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"total": len(runs),
	})
}

func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runOr404(w, r)
	if !ok {
		return
	}

	resp := RunResponse{InventoryRun: run}
	if len(run.Summary) > 0 {
		summary, err := store.DecodeSummary(run)
		if err != nil {
			writeAPIError(w, h.logger, apierr.SummaryCorrupt(err))
			return
		}
		resp.Summary = &summary
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RunHandler) Records(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runOr404(w, r)
	if !ok {
		return
	}

	limit, offset := pageParams(r, 100, 1000)
	records, err := h.store.ListRecords(r.Context(), postgres.ListRecordsParams{
		RunID:  run.ID,
		OrgID:  r.URL.Query().Get("org"),
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		writeAPIError(w, h.logger, apierr.RecordListFailed(err))
		return
	}
	if records == nil {
		records = []postgres.PipelineRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   len(records),
	})
}

func (h *RunHandler) Errors(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runOr404(w, r)
	if !ok {
		return
	}

	errs, err := h.store.ListErrors(r.Context(), run.ID)
	if err != nil {
		writeAPIError(w, h.logger, apierr.ErrorListFailed(err))
		return
	}
	if errs == nil {
		errs = []postgres.PipelineError{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"errors": errs,
		"total":  len(errs),
	})
}

func (h *RunHandler) Templates(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runOr404(w, r)
	if !ok {
		return
	}

	usage, err := h.store.ListTemplateUsage(r.Context(), run.ID)
	if err != nil {
		writeAPIError(w, h.logger, apierr.TemplateListFailed(err))
		return
	}
	if usage == nil {
		usage = []postgres.TemplateUsage{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"templates": usage,
		"total":     len(usage),
	})
}

// TopTemplates ranks templates across every synced run.
func (h *RunHandler) TopTemplates(w http.ResponseWriter, r *http.Request) {
	if h.graph == nil {
		writeAPIError(w, h.logger, apierr.GraphUnavailable())
		return
	}
	limit, _ := pageParams(r, 20, 200)
	rows, err := h.graph.TopTemplates(r.Context(), limit)
	if err != nil {
		writeAPIError(w, h.logger, apierr.GraphQueryFailed(err))
		return
	}
	if rows == nil {
		rows = []graph.TemplateReuse{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": rows})
}

func (h *RunHandler) runOr404(w http.ResponseWriter, r *http.Request) (postgres.InventoryRun, bool) {
	runID, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeAPIError(w, h.logger, apierr.InvalidRunID())
		return postgres.InventoryRun{}, false
	}

	run, err := h.store.GetRun(r.Context(), runID)
	if err != nil {
		if apierr.IsNotFound(err) {
			writeAPIError(w, h.logger, apierr.RunNotFound())
		} else {
			writeAPIError(w, h.logger, apierr.InternalError(err))
		}
		return postgres.InventoryRun{}, false
	}
	return run, true
}
