package server

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	adminCookie     = "admin_token"
	devAdminPass    = "admin123"
	recentVisitorsN = 200
)

// adminAuth holds the per-process admin token and the salt used to hash
// visitor IPs. Both are regenerated on every start.
type adminAuth struct {
	username string
	password string
	token    string
	salt     string
}

func newAdminAuth(username, password string, logger zerolog.Logger) *adminAuth {
	a := &adminAuth{
		username: username,
		password: password,
		token:    randomHex(),
		salt:     randomHex(),
	}
	if a.username == "" {
		a.username = "admin"
	}
	if a.password == "" {
		if gin.Mode() == gin.DebugMode {
			a.password = devAdminPass
			logger.Warn().Msg("using default admin password; set ADMIN_PASSWORD")
		} else {
			logger.Warn().Msg("admin login disabled; set ADMIN_PASSWORD to enable it")
		}
	}
	if gin.Mode() == gin.DebugMode {
		logger.Debug().Str("token", a.token).Msg("admin token (dev only)")
	}
	return a
}

func randomHex() string {
	b := make([]byte, 32)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// hashIP returns a stable, salted, truncated hash of ip.
func (a *adminAuth) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + a.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (a *adminAuth) checkCredentials(username, password string) bool {
	if a.password == "" {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	return userOK && passOK
}

func (a *adminAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.token)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// visitorTracking records page views with hashed IPs, skipping assets, admin
// pages, session traffic and clients sending Do Not Track.
func (s *Server) visitorTracking() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if c.Request.Method != http.MethodGet ||
			strings.HasPrefix(path, "/static/") ||
			strings.HasPrefix(path, "/admin/") ||
			strings.HasPrefix(path, "/session/") ||
			strings.HasPrefix(path, "/favicon") ||
			strings.HasPrefix(path, "/privacy") ||
			path == "/healthz" {
			c.Next()
			return
		}
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		hashed := s.admin.hashIP(c.ClientIP())
		userAgent := c.GetHeader("User-Agent")
		s.writes.Add(1)
		go func() {
			defer s.writes.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.store.RecordVisit(ctx, hashed, userAgent, path); err != nil {
				s.logger.Warn().Err(err).Msg("error recording visitor")
			}
		}()
		c.Next()
	}
}

func (s *Server) setupAdminRoutes(r *gin.Engine) {
	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		if s.admin.checkCredentials(c.PostForm("username"), c.PostForm("password")) {
			c.SetCookie(adminCookie, s.admin.token, 3600*24, "/admin", "", false, true)
			s.logger.Info().Str("from", s.admin.hashIP(c.ClientIP())).Msg("admin login successful")
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}
		s.logger.Warn().Str("from", s.admin.hashIP(c.ClientIP())).Msg("failed admin login attempt")
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"title": "Admin Login",
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", false, true)
		c.Redirect(http.StatusFound, "/admin/login")
	})

	admin := r.Group("/admin")
	admin.Use(s.admin.middleware())

	admin.GET("/dashboard", func(c *gin.Context) {
		if s.store == nil {
			s.adminError(c, "Statistics are not available")
			return
		}
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("error loading admin stats")
			s.adminError(c, "Failed to load statistics")
			return
		}
		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats": stats,
		})
	})

	admin.GET("/api/stats", s.statsJSON(false))
	admin.GET("/export/stats", s.statsJSON(true))

	admin.GET("/visitors", func(c *gin.Context) {
		if s.store == nil {
			s.adminError(c, "Visitors are not available")
			return
		}
		visitors, err := s.store.RecentVisitors(c.Request.Context(), recentVisitorsN)
		if err != nil {
			s.logger.Error().Err(err).Msg("error loading visitors")
			s.adminError(c, "Failed to load visitors")
			return
		}
		c.JSON(http.StatusOK, gin.H{"visitors": visitors})
	})

	admin.POST("/privacy/cleanup", func(c *gin.Context) {
		if s.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store not configured"})
			return
		}
		removed, err := s.store.CleanupVisitors(c.Request.Context())
		if err != nil {
			s.logger.Error().Err(err).Msg("error cleaning up visitor data")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cleanup failed"})
			return
		}
		s.logger.Info().Int64("removed", removed).Msg("privacy cleanup")
		c.JSON(http.StatusOK, gin.H{"removed": removed})
	})
}

func (s *Server) statsJSON(download bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.store == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store not configured"})
			return
		}
		stats, err := s.store.Stats(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if download {
			c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
			s.logger.Info().Str("by", s.admin.hashIP(c.ClientIP())).Msg("admin stats exported")
		}
		c.JSON(http.StatusOK, stats)
	}
}

func (s *Server) adminError(c *gin.Context, msg string) {
	c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
		"error": msg,
	})
}
