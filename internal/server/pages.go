package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/zach-portfolio/internal/session"
)

// visibilityReport is what the page's intersection observer posts.
type visibilityReport struct {
	Region string   `form:"region" json:"region" binding:"required"`
	Ratio  *float64 `form:"ratio" json:"ratio" binding:"required,min=0,max=1"`
}

// Home page: every load is a new session.
func (s *Server) handleIndex(c *gin.Context) {
	id, err := s.sessions.Create()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create session")
		c.String(http.StatusInternalServerError, "Sorry, the page could not be loaded.")
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"sessionID": id,
		"content":   s.opts.Content,
		"greeting":  s.opts.Content.Greetings[0],
		"region":    s.opts.Region,
		"threshold": s.opts.Threshold,
	})
}

// Server-sent events for one session. Opening the stream starts the greeting
// screen.
func (s *Server) handleEvents(c *gin.Context) {
	events, err := s.sessions.Start(c.Param("id"))
	if err != nil {
		s.sessionError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (s *Server) handleVisibility(c *gin.Context) {
	var report visibilityReport
	if err := c.ShouldBind(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fired, err := s.sessions.Report(c.Param("id"), report.Region, *report.Ratio)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fired": fired})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	snap, err := s.sessions.Snapshot(c.Param("id"))
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Page unload beacon.
func (s *Server) handleClose(c *gin.Context) {
	if err := s.sessions.Close(c.Param("id")); err != nil {
		s.sessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, session.ErrClosed):
		c.JSON(http.StatusGone, gin.H{"error": "session closed"})
	default:
		s.logger.Error().Err(err).Str("session_id", c.Param("id")).Msg("session request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
