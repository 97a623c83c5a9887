package apihandlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/app"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/models"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/services"
	"github.com/fcojaviergon/rocket-launch-genai-sub001/internal/store"
)

type APIHandler struct {
	App *app.App
}

// RegisterRoutes attaches all API routes under /api/v1.
func (h *APIHandler) RegisterRoutes(r *gin.Engine) {
	v1 := r.Group("/api/v1")
	v1.POST("/documents", h.CreateDocumentHandler)
	v1.GET("/documents/:id", h.GetDocumentHandler)
	v1.POST("/pipelines", h.SubmitPipelineHandler)
	v1.GET("/pipelines/:id", h.GetPipelineHandler)
	v1.GET("/pipelines/:id/events", h.PipelineEventsHandler)
	v1.GET("/tasks", h.ListTasksHandler)
	v1.GET("/tasks/:id", h.GetTaskStatusHandler)
	v1.POST("/tasks/:id/cancel", h.CancelTaskHandler)
	v1.GET("/usage", h.UsageSummaryHandler)
}

type createDocumentRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
}

func (h *APIHandler) CreateDocumentHandler(c *gin.Context) {
	var req createDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if req.Title == "" || req.Content == "" {
		BadRequest(c, "missing required fields: title and content")
		return
	}
	if req.ContentType == "" {
		req.ContentType = "text/plain"
	}

	doc := &models.Document{
		Title:       req.Title,
		Content:     req.Content,
		ContentType: req.ContentType,
	}
	if err := h.App.DocumentStore.CreateDocument(c.Request.Context(), doc); err != nil {
		Internal(c, fmt.Sprintf("failed to create document: %v", err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": doc})
}

func (h *APIHandler) GetDocumentHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid document id")
		return
	}
	doc, err := h.App.DocumentStore.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "document not found")
			return
		}
		Internal(c, fmt.Sprintf("failed to load document: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": doc})
}

type submitPipelineRequest struct {
	Type                string   `json:"type"`
	PrincipalDocumentID string   `json:"principal_document_id"`
	ReferencePipelineID string   `json:"reference_pipeline_id,omitempty"`
	DocumentIDs         []string `json:"document_ids,omitempty"`
	Priority            string   `json:"priority,omitempty"`
}

func (h *APIHandler) SubmitPipelineHandler(c *gin.Context) {
	var req submitPipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	principalID, err := uuid.Parse(req.PrincipalDocumentID)
	if err != nil {
		BadRequest(c, "invalid principal_document_id")
		return
	}
	submit := services.SubmitPipelineRequest{
		Type:                models.PipelineType(req.Type),
		PrincipalDocumentID: principalID,
		Priority:            models.TaskPriority(req.Priority),
	}
	if req.ReferencePipelineID != "" {
		refID, err := uuid.Parse(req.ReferencePipelineID)
		if err != nil {
			BadRequest(c, "invalid reference_pipeline_id")
			return
		}
		submit.ReferencePipelineID = &refID
	}
	for _, raw := range req.DocumentIDs {
		docID, err := uuid.Parse(raw)
		if err != nil {
			BadRequest(c, "invalid document id: "+raw)
			return
		}
		submit.Documents = append(submit.Documents, services.SubmitDocument{ID: docID})
	}

	task, pipeline, err := h.App.PipelineService.SubmitPipeline(c.Request.Context(), submit)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrValidation):
			BadRequest(c, err.Error())
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, err.Error())
		default:
			Internal(c, fmt.Sprintf("failed to submit pipeline: %v", err))
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{
		"pipeline_id": pipeline.ID,
		"task_id":     task.InternalID,
		"status":      task.Status,
	}})
}

func (h *APIHandler) GetPipelineHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid pipeline id")
		return
	}
	pipeline, err := h.App.PipelineService.GetPipeline(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "pipeline not found")
			return
		}
		Internal(c, fmt.Sprintf("failed to load pipeline: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": pipeline})
}

// PipelineEventsHandler streams pipeline lifecycle events as server-sent
// events until the client disconnects.
func (h *APIHandler) PipelineEventsHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid pipeline id")
		return
	}

	events, cancel := h.App.Notifier.Subscribe("pipeline:"+id.String(), 16)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(ev.Type, ev.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *APIHandler) ListTasksHandler(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		BadRequest(c, "invalid limit")
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		BadRequest(c, "invalid offset")
		return
	}
	status := models.TaskStatus(c.Query("status"))

	tasks, err := h.App.PipelineService.ListTasks(c.Request.Context(), limit, offset, status)
	if err != nil {
		Internal(c, fmt.Sprintf("failed to list tasks: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": tasks})
}

func (h *APIHandler) GetTaskStatusHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid task id")
		return
	}
	task, err := h.App.PipelineService.GetTaskStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "task not found")
			return
		}
		Internal(c, fmt.Sprintf("failed to load task: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": task})
}

func (h *APIHandler) CancelTaskHandler(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid task id")
		return
	}
	if err := h.App.PipelineService.CancelTask(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			NotFound(c, "task not found")
		case errors.Is(err, store.ErrTerminal):
			Conflict(c, "task is already in a terminal state")
		default:
			Internal(c, fmt.Sprintf("failed to cancel task: %v", err))
		}
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"data": gin.H{"task_id": id, "cancel_requested": true}})
}

func (h *APIHandler) UsageSummaryHandler(c *gin.Context) {
	totalCost, inputTokens, outputTokens, err := h.App.UsageStore.GetUsageSummary(c.Request.Context())
	if err != nil {
		Internal(c, fmt.Sprintf("failed to load usage summary: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"total_cost":          totalCost,
		"total_input_tokens":  inputTokens,
		"total_output_tokens": outputTokens,
	}})
}
