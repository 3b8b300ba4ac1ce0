// Package zmsim is a small fake of the ZoneMinder REST API: login with
// credentials, refresh with ?token=, and the monitors listing. It issues
// real HS256 tokens and can revoke them, which makes it suitable for
// end-to-end tests and local demos of the collector.
package zmsim

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Options configures a Server.
type Options struct {
	// BasePath is the ZoneMinder prefix, e.g. "/zm".
	BasePath string
	// User/Password are the accepted credentials. An empty User disables
	// authentication: monitors are served without a token.
	User     string
	Password string
	// Secret signs tokens.
	Secret string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides time.Now.
	Now func() time.Time
}

// Monitor is a camera served by the simulator.
type Monitor struct {
	ID               string
	Name             string
	Function         string
	Enabled          bool
	CaptureFPS       float64
	CaptureBandwidth float64
	TotalEvents      int64
	DiskSpaceBytes   int64
}

// Stats counts requests per endpoint.
type Stats struct {
	Logins          int
	Refreshes       int
	MonitorRequests int
	Rejected        int
}

// Server is the fake ZoneMinder API.
type Server struct {
	opts   Options
	secret []byte
	now    func() time.Time
	engine *gin.Engine

	mu         sync.Mutex
	monitors   []Monitor
	generation int
	stats      Stats
}

// New creates a simulator with sensible defaults (1h access, 24h refresh).
func New(opts Options) *Server {
	if opts.AccessTTL == 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.RefreshTTL == 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.Secret == "" {
		opts.Secret = "zmsim-secret"
	}
	opts.BasePath = "/" + strings.Trim(opts.BasePath, "/")

	s := &Server{
		opts:   opts,
		secret: []byte(opts.Secret),
		now:    opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	api := s.engine.Group(strings.TrimRight(opts.BasePath, "/") + "/api")
	api.POST("/host/login.json", s.handleLogin)
	api.GET("/monitors.json", s.handleMonitors)
	return s
}

// Handler returns the HTTP handler serving the API.
func (s *Server) Handler() http.Handler { return s.engine }

// SetMonitors replaces the monitor list.
func (s *Server) SetMonitors(monitors ...Monitor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.monitors = append([]Monitor(nil), monitors...)
}

// Revoke invalidates every token issued so far.
func (s *Server) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

// Stats returns the request counters.
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// ── Handlers ──────────────────────────────────────────────────────────────────

// failure mimics ZoneMinder's error envelope.
func failure(c *gin.Context, status int, name string) {
	c.JSON(status, gin.H{
		"success": false,
		"data": gin.H{
			"name":    name,
			"message": name,
			"url":     c.Request.URL.Path,
		},
	})
}

// handleLogin issues a new pair for user/pass form fields, or a new access
// token for a valid refresh token passed as ?token=.
//
//	POST /api/host/login.json            user=..&pass=..
//	POST /api/host/login.json?token=<refresh>
func (s *Server) handleLogin(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if refresh := c.Query("token"); refresh != "" {
		claims, err := s.verify(refresh, kindRefresh)
		if err != nil {
			s.stats.Rejected++
			failure(c, http.StatusUnauthorized, rejectionName(err))
			return
		}
		access, err := s.issue(claims.User, kindAccess, s.opts.AccessTTL)
		if err != nil {
			failure(c, http.StatusInternalServerError, "Token generation failed")
			return
		}
		s.stats.Refreshes++
		c.JSON(http.StatusOK, gin.H{
			"access_token":         access,
			"access_token_expires": int(s.opts.AccessTTL.Seconds()),
			"version":              "1.36.33",
			"apiversion":           "2.0",
		})
		return
	}

	user, pass := c.PostForm("user"), c.PostForm("pass")
	if s.opts.User == "" || user != s.opts.User || pass != s.opts.Password {
		s.stats.Rejected++
		failure(c, http.StatusUnauthorized, "Login denied")
		return
	}

	access, err := s.issue(user, kindAccess, s.opts.AccessTTL)
	if err != nil {
		failure(c, http.StatusInternalServerError, "Token generation failed")
		return
	}
	refresh, err := s.issue(user, kindRefresh, s.opts.RefreshTTL)
	if err != nil {
		failure(c, http.StatusInternalServerError, "Token generation failed")
		return
	}
	s.stats.Logins++
	c.JSON(http.StatusOK, gin.H{
		"access_token":          access,
		"access_token_expires":  int(s.opts.AccessTTL.Seconds()),
		"refresh_token":         refresh,
		"refresh_token_expires": int(s.opts.RefreshTTL.Seconds()),
		"version":               "1.36.33",
		"apiversion":            "2.0",
	})
}

// handleMonitors serves the monitor list in ZoneMinder's stringly-typed
// shape.
//
//	GET /api/monitors.json?token=<access>
func (s *Server) handleMonitors(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.User != "" {
		if _, err := s.verify(c.Query("token"), kindAccess); err != nil {
			s.stats.Rejected++
			failure(c, http.StatusUnauthorized, rejectionName(err))
			return
		}
	}
	s.stats.MonitorRequests++

	entries := make([]gin.H, 0, len(s.monitors))
	for _, m := range s.monitors {
		enabled := "0"
		if m.Enabled {
			enabled = "1"
		}
		entries = append(entries, gin.H{
			"Monitor": gin.H{
				"Id":                  m.ID,
				"Name":                m.Name,
				"Function":            m.Function,
				"Enabled":             enabled,
				"TotalEvents":         m.TotalEvents,
				"TotalEventDiskSpace": fmt.Sprintf("%d", m.DiskSpaceBytes),
			},
			"Monitor_Status": gin.H{
				"MonitorId":        m.ID,
				"Status":           "Connected",
				"CaptureFPS":       fmt.Sprintf("%.2f", m.CaptureFPS),
				"CaptureBandwidth": fmt.Sprintf("%.0f", m.CaptureBandwidth),
			},
		})
	}
	c.JSON(http.StatusOK, gin.H{"monitors": entries})
}

func rejectionName(err error) string {
	if errors.Is(err, errRevoked) {
		return "Token revoked"
	}
	return "Invalid token"
}
