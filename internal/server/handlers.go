package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/dohyunpark/autotrader/internal/config"
	"github.com/dohyunpark/autotrader/internal/events"
	"github.com/dohyunpark/autotrader/internal/journal"
	"github.com/dohyunpark/autotrader/internal/scheduler"
	"github.com/dohyunpark/autotrader/internal/users"
)

type handlers struct {
	log       zerolog.Logger
	cfg       *config.Config
	users     *users.Repository
	journal   *journal.Journal
	events    *events.Manager
	scheduler *scheduler.Scheduler
}

// SystemStatusResponse reports account enumeration and host resource use.
type SystemStatusResponse struct {
	EnabledUsers int     `json:"enabled_users"`
	CPUPercent   float64 `json:"cpu_percent"`
	RAMPercent   float64 `json:"ram_percent"`
	Market       string  `json:"market"`
	TimeZone     string  `json:"timezone"`
	CheckedAt    string  `json:"checked_at"`
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (h *handlers) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.users.Enabled()
	if err != nil {
		h.log.Error().Err(err).Msg("load enabled users for status")
	}

	cpuPct, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("cpu stats unavailable")
		cpuPct = []float64{0}
	}
	memStat, err := mem.VirtualMemory()
	ramPct := 0.0
	if err != nil {
		h.log.Warn().Err(err).Msg("memory stats unavailable")
	} else {
		ramPct = memStat.UsedPercent
	}

	resp := SystemStatusResponse{
		EnabledUsers: len(enabled),
		CPUPercent:   firstOr(cpuPct, 0),
		RAMPercent:   ramPct,
		Market:       string(h.cfg.Market),
		TimeZone:     h.cfg.TimeZone,
		CheckedAt:    time.Now().Format(time.RFC3339),
	}
	h.writeJSON(w, resp)
}

func firstOr(vals []float64, def float64) float64 {
	if len(vals) == 0 {
		return def
	}
	return vals[0]
}

func (h *handlers) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.writeJSON(w, []events.Event{})
		return
	}
	h.writeJSON(w, h.events.Recent())
}

// JobInfo names a registered job for the jobs status endpoint.
type JobInfo struct {
	Name string `json:"name"`
}

func (h *handlers) handleJobsStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"tick_cron":    h.cfg.TickInterval,
		"preopen_cron": h.cfg.PreOpenCron,
		"backup_cron":  h.cfg.BackupCron,
	})
}

func (h *handlers) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	suggestions, err := h.journal.PendingForUser(userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user", userID).Msg("load pending suggestions")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, suggestions)
}

// handleApproveSuggestion marks a pending suggestion approved. Placing the
// resulting order is a separate, external step — the controller never
// auto-executes an approved suggestion (see internal/journal/suggestions.go).
func (h *handlers) handleApproveSuggestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.journal.Approve(id); err != nil {
		h.log.Error().Err(err).Str("suggestion", id).Msg("approve suggestion")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, map[string]string{"status": "approved", "id": id})
}

func (h *handlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("encode json response")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
