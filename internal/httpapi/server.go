// Package httpapi serves the operational HTTP surface: health, status,
// device views, and the test-notification hook.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"aquamon/internal/monitor"
)

// DeviceSource exposes the on-demand device status view and the set of
// device keys currently believed offline.
type DeviceSource interface {
	DeviceStatuses(ctx context.Context) ([]monitor.DeviceStatus, error)
	OfflineKeys() []string
}

// StatsSource exposes the cumulative service counters.
type StatsSource interface {
	Snapshot() monitor.Snapshot
	Uptime() time.Duration
}

// Tester sends a one-off test notification.
type Tester interface {
	SendTest(ctx context.Context, email string) error
}

// Config controls the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 60 * time.Second
	}
	return c
}

type Server struct {
	cfg     Config
	devices DeviceSource
	stats   StatsSource
	tester  Tester
	log     zerolog.Logger

	srv *http.Server
}

func NewServer(cfg Config, devices DeviceSource, stats StatsSource, tester Tester, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg.withDefaults(),
		devices: devices,
		stats:   stats,
		tester:  tester,
		log:     log,
	}
	s.srv = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	return s
}

// Handler builds the route table. Exposed so tests can drive it with httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /devices", s.handleDevices)
	mux.HandleFunc("POST /test-notification", s.handleTestNotification)
	return mux
}

// Start begins serving in the background. Listen failures after startup are
// logged, not returned.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("http server stopped")
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "OK",
		"timestamp":         time.Now().UTC(),
		"uptime":            s.stats.Uptime().Seconds(),
		"offlineDeviceKeys": s.devices.OfflineKeys(),
		"stats":             s.stats.Snapshot(),
	})
}

type statusResponse struct {
	Service string           `json:"service"`
	Uptime  float64          `json:"uptimeSeconds"`
	Stats   monitor.Snapshot `json:"stats"`
	Memory  memoryStats      `json:"memory"`
}

type memoryStats struct {
	RSSBytes   uint64 `json:"rssBytes,omitempty"`
	HeapAlloc  uint64 `json:"heapAllocBytes"`
	HeapSys    uint64 `json:"heapSysBytes"`
	Goroutines int    `json:"goroutines"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	mem := memoryStats{
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		Goroutines: runtime.NumGoroutine(),
	}
	// RSS is best effort; /proc may be unavailable in minimal containers.
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil && mi != nil {
			mem.RSSBytes = mi.RSS
		}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Service: "aquamon",
		Uptime:  s.stats.Uptime().Seconds(),
		Stats:   s.stats.Snapshot(),
		Memory:  mem,
	})
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.DeviceStatuses(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("device status query failed")
		writeError(w, http.StatusInternalServerError, "failed to get device status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(devices),
		"devices": devices,
	})
}

func (s *Server) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.tester.SendTest(r.Context(), req.Email); err != nil {
		s.log.Error().Err(err).Msg("test notification failed")
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("test notification failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "test notification sent"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"success": false, "error": msg})
}
