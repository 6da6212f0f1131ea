package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// Server exposes metrics, health and a read-only view of moderation state
type Server struct {
	configRepo repo.ConfigRepo
	warnRepo   repo.WarnRepo
	auditLog   repo.AuditReader // may be nil

	server *http.Server
	addr   string
}

// GroupSummary is the API view of a watched group
type GroupSummary struct {
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name"`
	Enabled     bool   `json:"enabled"`
	BotHasAdmin bool   `json:"bot_has_admin"`
	Members     int    `json:"members"`
	ReplyRules  int    `json:"reply_rules"`
	WarnRules   int    `json:"warn_rules"`
	BanRules    int    `json:"ban_rules"`
}

// WarnMark is the API view of a warn mark
type WarnMark struct {
	GroupID string    `json:"group_id"`
	UserID  string    `json:"user_id"`
	FirstAt time.Time `json:"first_at"`
	Count   int       `json:"count"`
}

// NewServer creates a new API server listening on addr
func NewServer(configRepo repo.ConfigRepo, warnRepo repo.WarnRepo, auditLog repo.AuditReader, addr string) *Server {
	s := &Server{
		configRepo: configRepo,
		warnRepo:   warnRepo,
		auditLog:   auditLog,
		addr:       addr,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	// Moderation state
	mux.HandleFunc("/api/groups", s.handleGroups)
	mux.HandleFunc("/api/marks", s.handleMarks)
	mux.HandleFunc("/api/log", s.handleLog)

	// Health check
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Start listens and serves until Stop is called
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	slog.Info("starting HTTP server", "addr", ln.Addr().String())
	if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	groups, err := s.configRepo.ListGroups(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		result = append(result, summarize(g))
	}
	s.writeJSON(w, map[string]interface{}{"groups": result})
}

func (s *Server) handleMarks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// group ids may contain '/', so they travel as a query parameter
	marks, err := s.warnRepo.List(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result := make([]WarnMark, 0, len(marks))
	for _, m := range marks {
		result = append(result, WarnMark{GroupID: m.GroupID, UserID: m.UserID, FirstAt: m.FirstAt, Count: m.Count})
	}
	s.writeJSON(w, map[string]interface{}{"marks": result})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.auditLog == nil {
		http.Error(w, "audit log disabled", http.StatusNotFound)
		return
	}

	groupID := r.URL.Query().Get("group")
	if groupID == "" {
		http.Error(w, "group is required", http.StatusBadRequest)
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	records, err := s.auditLog.Recent(r.Context(), groupID, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []*domain.ModerationRecord{}
	}
	s.writeJSON(w, map[string]interface{}{"records": records})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func summarize(g *domain.GroupConfig) GroupSummary {
	return GroupSummary{
		GroupID:     g.GroupID,
		GroupName:   g.GroupName,
		Enabled:     g.Enabled,
		BotHasAdmin: g.BotHasAdmin,
		Members:     len(g.LastMembersSnapshot),
		ReplyRules:  len(g.AutoReplies),
		WarnRules:   len(g.WarnRules),
		BanRules:    len(g.BanRules),
	}
}
