package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/taskrank-backend-go/internal/analysis"
	"github.com/jengzang/taskrank-backend-go/internal/models"
	"github.com/jengzang/taskrank-backend-go/internal/service"
	"github.com/jengzang/taskrank-backend-go/pkg/response"
)

// TaskService is what the task handler needs from the service layer
type TaskService interface {
	Analyze(ctx context.Context, records []json.RawMessage, sortBy string) (models.AnalysisResult, error)
	Suggest(ctx context.Context) (models.SuggestionResult, error)
	SuggestInline(records []json.RawMessage) (models.SuggestionResult, error)
	List(ctx context.Context) ([]models.Task, error)
	Clear(ctx context.Context) error
}

// TaskHandler handles HTTP requests for task analysis
type TaskHandler struct {
	service TaskService
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(service TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// TaskListResponse is the body of the list endpoint
type TaskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Count int           `json:"count"`
}

// Analyze scores a task batch and makes it the current set
// POST /api/tasks/analyze/?sort=score|fastest|impact|deadline
func (h *TaskHandler) Analyze(c *gin.Context) {
	var query models.AnalyzeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	records, ok := readBatch(c)
	if !ok {
		return
	}

	result, err := h.service.Analyze(c.Request.Context(), records, query.Sort)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// Suggest returns the top three tasks of the current set
// GET /api/tasks/suggest/
func (h *TaskHandler) Suggest(c *gin.Context) {
	result, err := h.service.Suggest(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// SuggestInline returns the top three tasks of the posted batch
// POST /api/tasks/suggest/
func (h *TaskHandler) SuggestInline(c *gin.Context) {
	records, ok := readBatch(c)
	if !ok {
		return
	}

	result, err := h.service.SuggestInline(records)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, result)
}

// List returns the current task set
// GET /api/tasks/
func (h *TaskHandler) List(c *gin.Context) {
	tasks, err := h.service.List(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}

	response.Success(c, TaskListResponse{Tasks: tasks, Count: len(tasks)})
}

// Clear empties the current task set
// DELETE /api/tasks/
func (h *TaskHandler) Clear(c *gin.Context) {
	if err := h.service.Clear(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}

	response.NoContent(c)
}

// readBatch decodes the request body as a JSON array of records. It writes
// the error response itself and reports whether the handler may continue.
func readBatch(c *gin.Context) ([]json.RawMessage, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(c, "Request body too large")
			return nil, false
		}
		response.BadRequest(c, "Failed to read request body")
		return nil, false
	}

	records, err := decodeBatch(body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return nil, false
	}
	return records, true
}

func decodeBatch(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of tasks", models.ErrMalformedRequest)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON array", models.ErrMalformedRequest)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, analysis.ErrUnknownSort):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrBatchTooLarge):
		response.TooLarge(c, err.Error())
	default:
		log.Printf("Task request failed: %v", err)
		c.Error(err)
		response.InternalError(c, "Internal server error")
	}
}
