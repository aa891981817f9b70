package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/answer"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/retrieval"
	"github.com/ArsenYoung/ai-support-rag-assistant/internal/store"
)

// #region updates
// handleUpdate answers one channel update. Malformed updates still get an
// envelope; only an unreadable body is rejected.
func (s *Server) handleUpdate(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUpdateBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx := c.Request.Context()
	if s.config.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.RequestTimeout)
		defer cancel()
	}

	env := s.deps.Handler.Handle(ctx, body)
	if s.deps.Sessions != nil {
		s.deps.Sessions.Put(env)
	}
	c.JSON(http.StatusOK, env)
}

// #endregion updates

// #region decide
type decideRequest struct {
	Hits        []retrieval.Hit `json:"hits"`
	TopScore    *float64        `json:"top_score"`
	Raw         string          `json:"raw"`
	ContextText string          `json:"context_text"`
	Decision    *gate.Decision  `json:"decision"`
}

// handleDecide runs the gate and assembler over caller-supplied hits and model
// output. No retrieval or model call is made.
func (s *Server) handleDecide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": err.Error()})
		return
	}

	in := answer.Input{
		Hits:        req.Hits,
		TopScore:    req.TopScore,
		Raw:         req.Raw,
		ContextText: req.ContextText,
	}
	if req.Decision != nil {
		if !req.Decision.Reason.Valid(req.Decision.Mode) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": "invalid decision"})
			return
		}
		in.Gate = *req.Decision
	}

	res := s.deps.Handler.Decide(in)
	c.JSON(http.StatusOK, gin.H{
		"decision":    res.Decision,
		"answer_text": res.AnswerText,
		"clarify":     res.Clarify,
		"sources":     res.Sources,
	})
}

// #endregion decide

// #region lookups
func (s *Server) handleGetRequest(c *gin.Context) {
	id := c.Param("id")
	if s.deps.Sessions != nil {
		if env, ok := s.deps.Sessions.Get(id); ok {
			c.JSON(http.StatusOK, env)
			return
		}
	}
	if s.deps.Records == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	rec, err := s.deps.Records.Get(c.Request.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case err != nil:
		s.logger.Error("answer lookup failed", zap.String("request_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	default:
		c.JSON(http.StatusOK, rec)
	}
}

func (s *Server) handleLastForChat(c *gin.Context) {
	chatID, err := strconv.ParseInt(c.Param("chat_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if s.deps.Sessions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	env, ok := s.deps.Sessions.LastForChat(chatID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, env)
}

func (s *Server) handleStats(c *gin.Context) {
	if s.deps.Records == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	counts, err := s.deps.Records.CountByMode(c.Request.Context())
	if err != nil {
		s.logger.Error("answer stats failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"by_mode": counts})
}

// #endregion lookups
