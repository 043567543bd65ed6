package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/socialsync/socialsync/internal/ai"
)

type chatRequest struct {
	Message string `json:"message"`
	Context string `json:"context"`
}

type sentimentRequest struct {
	Text string `json:"text"`
}

// aiFailure writes the {success:false, error} shape the AI endpoints use.
func aiFailure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": message})
}

// bindAI decodes the JSON body, answering 400 or 413 itself on failure.
func bindAI(c *gin.Context, out any) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		if isBodyTooLarge(err) {
			aiFailure(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		aiFailure(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (s *Server) handleGeneratePost(c *gin.Context) {
	var req ai.PostRequest
	if !bindAI(c, &req) {
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		aiFailure(c, http.StatusBadRequest, "Topic is required to generate a post.")
		return
	}

	content, err := s.ai.GenerateText(c.Request.Context(), ai.PostPrompt(req))
	if err != nil {
		_ = c.Error(err)
		aiFailure(c, http.StatusInternalServerError, "Failed to generate post")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "content": content})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if !bindAI(c, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		aiFailure(c, http.StatusBadRequest, "Message is required.")
		return
	}

	reply, err := s.ai.GenerateText(c.Request.Context(), ai.ChatPrompt(req.Message, req.Context))
	if err != nil {
		_ = c.Error(err)
		aiFailure(c, http.StatusInternalServerError, "Failed to process chat message")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "response": reply})
}

func (s *Server) handleAnalyzeSentiment(c *gin.Context) {
	var req sentimentRequest
	if !bindAI(c, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		aiFailure(c, http.StatusBadRequest, "Text is required for sentiment analysis.")
		return
	}

	sentiment, err := s.ai.ClassifySentiment(c.Request.Context(), req.Text)
	if err != nil {
		_ = c.Error(err)
		aiFailure(c, http.StatusInternalServerError, "Failed to analyze sentiment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sentiment": sentiment})
}
