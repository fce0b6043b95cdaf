package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/sortline-service/internal/broadcast"
	"github.com/guttosm/sortline-service/internal/domain/dto"
	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/i18n"
	"github.com/guttosm/sortline-service/internal/middleware"
	"github.com/guttosm/sortline-service/internal/service"
)

// Handler provides HTTP handlers for the sortation line API.
type Handler struct {
	scans    *service.ScanService
	putAside *service.PutAsideService
	checks   *service.CheckCountService
	jobs     *service.JobService
	ws       *broadcast.WSHandler
}

// NewHandler creates a new Handler instance.
func NewHandler(
	scans *service.ScanService,
	putAside *service.PutAsideService,
	checks *service.CheckCountService,
	jobs *service.JobService,
	ws *broadcast.WSHandler,
) *Handler {
	return &Handler{
		scans:    scans,
		putAside: putAside,
		checks:   checks,
		jobs:     jobs,
		ws:       ws,
	}
}

// auditLog writes an async audit entry when a logging service is wired.
func auditLog(c *gin.Context, actionType, message string, fields map[string]interface{}) {
	if loggingService, exists := c.Get("logging_service"); exists {
		if ls, ok := loggingService.(service.LoggingService); ok {
			middleware.AuditLog(ls, c, actionType, message, fields)
		}
	}
}

// domainError maps a domain error to an HTTP status and translation key.
// Unknown errors map to 500.
func domainError(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrJobNotFound):
		return http.StatusNotFound, i18n.ErrKeyJobNotFound
	case errors.Is(err, model.ErrNoActiveSession):
		return http.StatusNotFound, i18n.ErrKeyNoActiveSession
	case errors.Is(err, model.ErrCheckSessionNotFound):
		return http.StatusNotFound, i18n.ErrKeyCheckNotFound
	case errors.Is(err, model.ErrWorkerLimit):
		return http.StatusConflict, i18n.ErrKeyWorkerLimit
	case errors.Is(err, model.ErrSessionConflict):
		return http.StatusConflict, i18n.ErrKeyCheckConflict
	case errors.Is(err, model.ErrBoxEmpty):
		return http.StatusBadRequest, i18n.ErrKeyBoxEmpty
	case errors.Is(err, model.ErrBoxOutOfRange):
		return http.StatusBadRequest, i18n.ErrKeyBoxOutOfRange
	default:
		return http.StatusInternalServerError, i18n.ErrKeyInternalError
	}
}

// LoadJob handles POST /api/jobs requests.
//
// @Summary      Load a sorting job
// @Description  Loads a new job with its box requirement lines. Lines with box_number 0 belong to customers without an assigned box and can only be fulfilled after a drain.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        request body dto.LoadJobRequest true "Job definition"
// @Success      201 {object} dto.SuccessResponse "Job created"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input"
// @Failure      429 {object} dto.ErrorResponse "Too many requests - rate limit exceeded"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/jobs [post]
func (h *Handler) LoadJob(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.LoadJobRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	job, err := h.jobs.Load(c.Request.Context(), req.Name, req.MaxBoxes, req.Lines)
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "job_load", "Sort job loaded", map[string]interface{}{
		"job_id":    job.ID,
		"max_boxes": job.MaxBoxes,
		"lines":     len(req.Lines),
	})

	builder.SuccessCreated(job)
}

// JobProgress handles GET /api/jobs/:jobID/progress requests.
//
// @Summary      Job progress snapshot
// @Description  Returns per-box fulfillment tallies, active workers with their allocation patterns, and the put-aside queue depth.
// @Tags         Jobs
// @Produce      json
// @Param        jobID path string true "Job ID"
// @Success      200 {object} dto.SuccessResponse "Progress snapshot"
// @Failure      404 {object} dto.ErrorResponse "Job not found"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/jobs/{jobID}/progress [get]
func (h *Handler) JobProgress(c *gin.Context) {
	builder := NewResponseBuilder(c)

	progress, err := h.jobs.Progress(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	builder.SuccessOK(progress)
}

// CreateSession handles POST /api/sessions requests.
//
// @Summary      Open or resume a scan session
// @Description  Opens a scan session for a worker on a job, or resumes the worker's paused session. First-time workers receive an allocation pattern and display color; the per-job worker cap applies.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request body dto.CreateSessionRequest true "Worker and job"
// @Success      201 {object} dto.SuccessResponse "Session opened or resumed"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input"
// @Failure      404 {object} dto.ErrorResponse "Job not found"
// @Failure      409 {object} dto.ErrorResponse "Worker limit reached"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.CreateSessionRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	c.Set("worker_id", req.WorkerID)
	c.Set("job_id", req.JobID)

	session, err := h.scans.CreateOrResumeSession(c.Request.Context(), req.WorkerID, req.JobID)
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "session_open", "Scan session opened", map[string]interface{}{
		"session_id": session.ID,
	})

	builder.SuccessCreated(session)
}

// PauseSession handles POST /api/sessions/:sessionID/pause requests.
//
// @Summary      Pause a scan session
// @Description  Pauses an open session. The worker's box frontier is preserved and the session can be resumed later.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      200 {object} dto.SuccessResponse "Session paused"
// @Failure      404 {object} dto.ErrorResponse "No active session"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/sessions/{sessionID}/pause [post]
func (h *Handler) PauseSession(c *gin.Context) {
	builder := NewResponseBuilder(c)

	session, err := h.scans.PauseSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	builder.SuccessOK(session)
}

// CompleteSession handles POST /api/sessions/:sessionID/complete requests.
//
// @Summary      Complete a scan session
// @Description  Closes an open session permanently.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      200 {object} dto.SuccessResponse "Session completed"
// @Failure      404 {object} dto.ErrorResponse "No active session"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/sessions/{sessionID}/complete [post]
func (h *Handler) CompleteSession(c *gin.Context) {
	builder := NewResponseBuilder(c)

	session, err := h.scans.CompleteSession(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	builder.SuccessOK(session)
}

// Scan handles POST /api/scan requests.
//
// @Summary      Reconcile one barcode scan
// @Description  Matches a scanned barcode against the job's open requirements. Rejections (unknown barcode, extra item) and put-aside queueing are reported in the result outcome, not as HTTP errors. Supports idempotency via Idempotency-Key header.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Idempotency key for request deduplication"
// @Param        request body dto.ScanRequest true "Session and barcode"
// @Success      200 {object} dto.SuccessResponse "Scan processed; inspect outcome"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input"
// @Failure      404 {object} dto.ErrorResponse "No active session"
// @Failure      429 {object} dto.ErrorResponse "Too many requests - rate limit exceeded"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/scan [post]
func (h *Handler) Scan(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.ScanRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	result, err := h.scans.ProcessScan(c.Request.Context(), req.SessionID, req.BarCode)
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "scan", "Barcode scan processed", map[string]interface{}{
		"session_id": req.SessionID,
		"bar_code":   req.BarCode,
		"outcome":    string(result.Outcome),
	})

	builder.SuccessOK(result)
}

// Undo handles POST /api/undo requests.
//
// @Summary      Undo recent scans
// @Description  Reverses up to count of the session's most recent scans, newest first. A count beyond the available history is clamped.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        request body dto.UndoRequest true "Session and count"
// @Success      200 {object} dto.SuccessResponse "Compensating undo events"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input"
// @Failure      404 {object} dto.ErrorResponse "No active session"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/undo [post]
func (h *Handler) Undo(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.UndoRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	undone, err := h.scans.UndoScans(c.Request.Context(), req.SessionID, req.Count)
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "undo", "Scans undone", map[string]interface{}{
		"session_id": req.SessionID,
		"requested":  req.Count,
		"undone":     len(undone),
	})

	builder.SuccessOK(undone)
}

// PutAsideList handles GET /api/jobs/:jobID/putaside requests.
//
// @Summary      List queued put-aside items
// @Description  Returns the job's put-aside queue, newest first.
// @Tags         Jobs
// @Produce      json
// @Param        jobID path string true "Job ID"
// @Success      200 {object} dto.SuccessResponse "Queued items"
// @Failure      404 {object} dto.ErrorResponse "Job not found"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/jobs/{jobID}/putaside [get]
func (h *Handler) PutAsideList(c *gin.Context) {
	builder := NewResponseBuilder(c)

	items, err := h.putAside.List(c.Request.Context(), c.Param("jobID"))
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	builder.SuccessOK(items)
}

// Drain handles POST /api/jobs/:jobID/putaside/drain requests.
//
// @Summary      Assign a box and drain queued items
// @Description  Assigns a free box to a customer and moves their queued put-aside items into it, updating fulfillment tallies.
// @Tags         Jobs
// @Accept       json
// @Produce      json
// @Param        jobID path string true "Job ID"
// @Param        request body dto.DrainRequest true "Customer and box"
// @Success      200 {object} dto.SuccessResponse "Drain result"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input or box out of range"
// @Failure      404 {object} dto.ErrorResponse "Job not found"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/jobs/{jobID}/putaside/drain [post]
func (h *Handler) Drain(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.DrainRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	jobID := c.Param("jobID")
	result, err := h.putAside.Drain(c.Request.Context(), jobID, req.CustomerName, req.BoxNumber)
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "drain", "Put-aside queue drained", map[string]interface{}{
		"job_id":        jobID,
		"customer_name": req.CustomerName,
		"box_number":    req.BoxNumber,
		"drained_items": len(result.DrainedItems),
	})

	builder.SuccessOK(result)
}

// StartCheck handles POST /api/checks requests.
//
// @Summary      Start a check-count session
// @Description  Opens a verification pass over one box, snapshotting its current tallies as the baseline. Only one check session may hold a box at a time.
// @Tags         Checks
// @Accept       json
// @Produce      json
// @Param        request body dto.StartCheckRequest true "Job, box, and user"
// @Success      201 {object} dto.SuccessResponse "Check session opened"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input or empty box"
// @Failure      404 {object} dto.ErrorResponse "Job not found"
// @Failure      409 {object} dto.ErrorResponse "Box already held by another check session"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/checks [post]
func (h *Handler) StartCheck(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.StartCheckRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	session, err := h.checks.Start(c.Request.Context(), req.JobID, req.BoxNumber, req.UserID)
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "check_start", "Check-count session started", map[string]interface{}{
		"check_session_id": session.ID,
		"job_id":           req.JobID,
		"box_number":       req.BoxNumber,
	})

	builder.SuccessCreated(session)
}

// CheckScan handles POST /api/checks/:checkID/scan requests.
//
// @Summary      Tally one barcode in a check session
// @Description  Records one physical item during a check pass. Barcodes outside the box's requirement lines are tallied as extras.
// @Tags         Checks
// @Accept       json
// @Produce      json
// @Param        checkID path string true "Check session ID"
// @Param        request body dto.CheckScanRequest true "Barcode"
// @Success      200 {object} dto.SuccessResponse "Check event"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input"
// @Failure      404 {object} dto.ErrorResponse "Check session not found"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/checks/{checkID}/scan [post]
func (h *Handler) CheckScan(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequestAndValidate[dto.CheckScanRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	event, err := h.checks.RecordScan(c.Request.Context(), c.Param("checkID"), req.BarCode)
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	builder.SuccessOK(event)
}

// CompleteCheck handles POST /api/checks/:checkID/complete requests.
//
// @Summary      Complete a check-count session
// @Description  Classifies discrepancies between the baseline and the checked tallies. With apply_corrections the checked quantities atomically overwrite the live tallies; explicit corrections override individual lines.
// @Tags         Checks
// @Accept       json
// @Produce      json
// @Param        checkID path string true "Check session ID"
// @Param        request body dto.CompleteCheckRequest true "Completion options"
// @Success      200 {object} dto.SuccessResponse "Check summary with discrepancies"
// @Failure      400 {object} dto.ErrorResponse "Bad request - invalid input"
// @Failure      404 {object} dto.ErrorResponse "Check session not found"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/checks/{checkID}/complete [post]
func (h *Handler) CompleteCheck(c *gin.Context) {
	builder := NewResponseBuilder(c)

	req, err := BuildRequest[dto.CompleteCheckRequest](c)
	if err != nil {
		builder.Error(http.StatusBadRequest, i18n.ErrKeyInvalidRequestBody, err)
		return
	}

	checkID := c.Param("checkID")
	summary, err := h.checks.Complete(c.Request.Context(), checkID, service.CheckCompletion{
		ApplyCorrections: req.ApplyCorrections,
		Corrections:      req.Corrections,
		ExtraItems:       req.ExtraItems,
	})
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "check_complete", "Check-count session completed", map[string]interface{}{
		"check_session_id":    checkID,
		"discrepancies":       summary.Session.DiscrepanciesFound,
		"extra_items":         summary.Session.ExtraItemsFound,
		"corrections_applied": summary.Session.CorrectionsApplied,
	})

	builder.SuccessOK(summary)
}

// CancelCheck handles POST /api/checks/:checkID/cancel requests.
//
// @Summary      Cancel a check-count session
// @Description  Abandons a check pass without touching live tallies and frees the box for other sessions.
// @Tags         Checks
// @Produce      json
// @Param        checkID path string true "Check session ID"
// @Success      200 {object} dto.SuccessResponse "Cancelled session"
// @Failure      404 {object} dto.ErrorResponse "Check session not found"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/checks/{checkID}/cancel [post]
func (h *Handler) CancelCheck(c *gin.Context) {
	builder := NewResponseBuilder(c)

	session, err := h.checks.Cancel(c.Request.Context(), c.Param("checkID"))
	if err != nil {
		status, key := domainError(err)
		builder.Error(status, key, err)
		return
	}

	auditLog(c, "check_cancel", "Check-count session cancelled", map[string]interface{}{
		"check_session_id": session.ID,
	})

	builder.SuccessOK(session)
}

// Events handles GET /api/jobs/:jobID/events requests by upgrading to a
// websocket and streaming the job's scan deltas until the client leaves.
//
// @Summary      Stream job events over websocket
// @Description  Upgrades the connection to a websocket and pushes scan, undo, put-aside, and check events for the job as they happen.
// @Tags         Jobs
// @Param        jobID path string true "Job ID"
// @Success      101 {string} string "Switching protocols"
// @Failure      500 {object} dto.ErrorResponse "Internal server error"
// @Router       /api/jobs/{jobID}/events [get]
func (h *Handler) Events(c *gin.Context) {
	if h.ws == nil {
		NewResponseBuilder(c).Error(http.StatusInternalServerError, i18n.ErrKeyInternalError, nil)
		return
	}
	if err := h.ws.Serve(c.Request.Context(), c.Writer, c.Request, c.Param("jobID")); err != nil {
		// The upgrader has already written its own error response.
		_ = c.Error(err)
	}
}
