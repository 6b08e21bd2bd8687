package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/quill/internal/domain"
	"github.com/timmy/quill/internal/service"
)

// ArticleHandler handles article generation endpoints.
type ArticleHandler struct {
	orch *service.Orchestrator
}

// NewArticleHandler creates a new article handler.
func NewArticleHandler(orch *service.Orchestrator) *ArticleHandler {
	return &ArticleHandler{orch: orch}
}

// CreateArticleRequest is the body of POST /api/v1/articles.
type CreateArticleRequest struct {
	Topic         string `json:"topic" binding:"required"`
	Thesis        string `json:"thesis" binding:"required"`
	StyleExamples string `json:"style_examples"`
	TargetLength  int    `json:"target_length" binding:"omitempty,min=1"`
	Model         string `json:"model"`
}

// CompleteArticleRequest is the body of POST /api/v1/articles/:id/complete.
type CompleteArticleRequest struct {
	Content string        `json:"content" binding:"required"`
	Usage   *domain.Usage `json:"usage"`
}

// Create handles POST /api/v1/articles. The request is stored and handed to
// the background pipeline; the response only acknowledges acceptance.
func (h *ArticleHandler) Create(c *gin.Context) {
	var req CreateArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}

	ctx := c.Request.Context()
	article, _, err := h.orch.SubmitAndStart(ctx, service.SubmitRequest{
		Topic:         req.Topic,
		Thesis:        req.Thesis,
		StyleExamples: req.StyleExamples,
		TargetLength:  req.TargetLength,
		Model:         req.Model,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":     article.ID,
		"status": article.Status,
		"model":  article.Model,
	})
}

// List handles GET /api/v1/articles.
func (h *ArticleHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	status := domain.JobStatus(c.Query("status"))

	articles, err := h.orch.List(c.Request.Context(), status, offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
		"limit":    limit,
		"offset":   offset,
	})
}

// Get handles GET /api/v1/articles/:id.
func (h *ArticleHandler) Get(c *gin.Context) {
	res, err := h.orch.Result(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Status handles GET /api/v1/articles/:id/status.
func (h *ArticleHandler) Status(c *gin.Context) {
	view, err := h.orch.StatusOf(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Cancel handles POST /api/v1/articles/:id/cancel.
func (h *ArticleHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	cancelled := h.orch.Cancel(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"id": id, "cancelled": cancelled})
}

// Complete handles POST /api/v1/articles/:id/complete.
func (h *ArticleHandler) Complete(c *gin.Context) {
	var req CompleteArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, fmt.Errorf("%w: %v", service.ErrInvalidRequest, err))
		return
	}
	article, err := h.orch.CompleteExternally(c.Request.Context(), c.Param("id"), req.Content, req.Usage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Recommendations handles GET /api/v1/articles/:id/recommendations.
func (h *ArticleHandler) Recommendations(c *gin.Context) {
	view, err := h.orch.Recommendations(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Delete handles DELETE /api/v1/articles/:id.
func (h *ArticleHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	deleted, err := h.orch.Delete(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "article not found", Code: "not_found"})
		return
	}
	c.Status(http.StatusNoContent)
}
