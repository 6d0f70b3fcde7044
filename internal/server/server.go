package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/ninjaos/followup/internal/config"
	"github.com/ninjaos/followup/internal/core"
	"github.com/ninjaos/followup/internal/llm"
	"github.com/ninjaos/followup/internal/store"
)

type Server struct {
	Pipeline *core.Pipeline
}

func NewServer() *Server {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/config.toml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg.ApplyEnv()

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	llmClient, err := llm.NewClient(context.Background(), cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to initialize LLM client: %v", err)
	}

	return &Server{
		Pipeline: core.NewPipeline(st, llmClient, cfg),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/interactions/:id/process", s.ProcessInteraction)
	r.POST("/feedback/learn", s.LearnFeedback)
	r.POST("/feedback/:id/learn", s.LearnOne)
	r.GET("/contacts/:id/signal", s.GetSignal)

	return r
}

// userID resolves the tenant for a request. Single-user deployments just
// use the default.
func userID(c *gin.Context) string {
	if v := c.GetHeader("X-User-ID"); v != "" {
		return v
	}
	return "default"
}

func (s *Server) ProcessInteraction(c *gin.Context) {
	result, err := s.Pipeline.ProcessInteraction(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		log.Printf("Failed to process interaction %s: %v", c.Param("id"), err)
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) LearnFeedback(c *gin.Context) {
	processed, patterns := s.Pipeline.LearnPending(c.Request.Context(), userID(c), 50)
	c.JSON(http.StatusOK, gin.H{"processed": processed, "patterns": patterns})
}

// LearnOne processes a single feedback record immediately instead of
// waiting for the batch pass.
func (s *Server) LearnOne(c *gin.Context) {
	fb, err := s.Pipeline.Store.GetFeedback(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
			return
		}
		log.Printf("Failed to load feedback %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load feedback"})
		return
	}

	patterns, err := s.Pipeline.Learner.ProcessFeedback(c.Request.Context(), userID(c), fb)
	if err != nil {
		log.Printf("Failed to process feedback %s: %v", fb.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": !fb.Processed, "patterns": patterns})
}

func (s *Server) GetSignal(c *gin.Context) {
	sig, err := s.Pipeline.Store.GetActiveSignal(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no active signal"})
			return
		}
		log.Printf("Failed to load signal for contact %s: %v", c.Param("id"), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal"})
		return
	}
	c.JSON(http.StatusOK, sig)
}
