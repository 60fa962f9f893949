package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sqlc-dev/pqtype"

	"github.com/saeidalz13/armada-backend/db/sqlc"
	"github.com/saeidalz13/armada-backend/internal/config"
	cerr "github.com/saeidalz13/armada-backend/internal/error"
	"github.com/saeidalz13/armada-backend/internal/events"
	mb "github.com/saeidalz13/armada-backend/models/battleship"
	mc "github.com/saeidalz13/armada-backend/models/connection"
	mm "github.com/saeidalz13/armada-backend/models/matchmaking"
)

const (
	defaultPort = 8000

	RouteWs          = "/armada"
	RouteHealth      = "/health"
	RouteLeaderboard = "/leaderboard"
	RoutePlayer      = "/players/{participantId}"
)

// IdentityCollaborator resolves participants and records their results.
// *sqlc.PlayerStatsManager is the production implementation.
type IdentityCollaborator interface {
	RegisterParticipant(ctx context.Context, participantId, displayName string) (sqlc.Player, error)
	ResolveParticipant(ctx context.Context, participantId string) (sqlc.Player, error)
	ReportOutcome(ctx context.Context, participantId string, won bool) error
	Leaderboard(ctx context.Context, limit int) ([]sqlc.Player, error)
}

type AnalyticsRecorder interface {
	IncrementGamesCreatedCount(ctx context.Context, serverIpNet pqtype.Inet) error
}

type Timings struct {
	CpuTurnDelay        time.Duration
	StartDelay          time.Duration
	PlacementWindow     time.Duration
	MatchRetention      time.Duration
	MatchmakingInterval time.Duration
}

var DefaultTimings = Timings{
	CpuTurnDelay:        time.Millisecond * 700,
	StartDelay:          time.Second,
	PlacementWindow:     time.Second * 45,
	MatchRetention:      time.Second * 30,
	MatchmakingInterval: time.Second * 2,
}

func TimingsFromConfig(cfg config.Config) Timings {
	return Timings{
		CpuTurnDelay:        cfg.CpuTurnDelay,
		StartDelay:          cfg.StartDelay,
		PlacementWindow:     cfg.PlacementWindow,
		MatchRetention:      cfg.MatchRetention,
		MatchmakingInterval: cfg.MatchmakingInterval,
	}
}

// Server owns every registry of the process: sessions, games, the
// matchmaking pool and the running matches.
type Server struct {
	port           int
	stage          string
	allowedOrigins map[string]bool
	timings        Timings
	rnd            mb.Randomizer

	identity  IdentityCollaborator
	analytics AnalyticsRecorder
	publisher events.Publisher

	SessionManager *mc.BattleshipSessionManager
	GameManager    *mb.BattleshipGameManager
	Pool           *mm.Pool

	serverIp pqtype.Inet

	mu      sync.RWMutex
	matches map[string]*Match
	seats   map[string]*Match
}

type Option func(*Server) error

func NewServer(optFuncs ...Option) *Server {
	server := Server{
		port:    defaultPort,
		stage:   config.StageDev,
		timings: DefaultTimings,
		matches: make(map[string]*Match, 10),
		seats:   make(map[string]*Match, 40),
	}
	for _, opt := range optFuncs {
		if err := opt(&server); err != nil {
			panic(err)
		}
	}

	if server.rnd == nil {
		server.rnd = mb.DefaultRandomizer
	}
	if server.identity == nil {
		server.identity = newMemoryIdentity()
	}
	if server.publisher == nil {
		server.publisher = events.NopPublisher{}
	}

	server.SessionManager = mc.NewBattleshipSessionManager()
	server.GameManager = mb.NewBattleshipGameManager(server.rnd)
	server.Pool = mm.NewPool(server.GameManager, server.rnd)
	server.serverIp = pqtype.Inet{IPNet: findServerIpNet(), Valid: true}

	return &server
}

func WithPort(port int) Option {
	return func(s *Server) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port: %d", port)
		}
		s.port = port
		return nil
	}
}

func WithStage(stage string) Option {
	return func(s *Server) error {
		if stage != config.StageProd && stage != config.StageDev {
			return fmt.Errorf("invalid type of development stage: %s", stage)
		}
		s.stage = stage
		return nil
	}
}

func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) error {
		s.allowedOrigins = make(map[string]bool, len(origins))
		for _, o := range origins {
			if o = strings.TrimSpace(o); o != "" {
				s.allowedOrigins[o] = true
			}
		}
		return nil
	}
}

func WithTimings(timings Timings) Option {
	return func(s *Server) error {
		if timings.MatchmakingInterval <= 0 {
			return errors.New("matchmaking interval must be positive")
		}
		s.timings = timings
		return nil
	}
}

// WithRandomizer seeds placement, matchmaking and targeting. A
// non-concurrent source such as *rand.Rand is wrapped in a lock.
func WithRandomizer(rnd mb.Randomizer) Option {
	return func(s *Server) error {
		s.rnd = &lockedRandomizer{rnd: rnd}
		return nil
	}
}

func WithIdentity(identity IdentityCollaborator) Option {
	return func(s *Server) error {
		s.identity = identity
		return nil
	}
}

func WithAnalytics(analytics AnalyticsRecorder) Option {
	return func(s *Server) error {
		s.analytics = analytics
		return nil
	}
}

func WithPublisher(publisher events.Publisher) Option {
	return func(s *Server) error {
		s.publisher = publisher
		return nil
	}
}

func (s *Server) Port() int {
	return s.port
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat(RouteHealth))

	r.Get(RouteWs, s.ServeHTTP)
	r.Get(RouteLeaderboard, s.handleLeaderboard)
	r.Get(RoutePlayer, s.handlePlayer)

	return r
}

// Run blocks until ctx is cancelled, driving matchmaking and the idle
// session sweep.
func (s *Server) Run(ctx context.Context) {
	go s.SessionManager.CleanupPeriodically(ctx)
	s.RunMatchmaking(ctx)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), sqlc.QuerierCtxTimeout)
	defer cancel()

	players, err := s.identity.Leaderboard(ctx, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, players)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	participantId := chi.URLParam(r, "participantId")

	ctx, cancel := context.WithTimeout(r.Context(), sqlc.QuerierCtxTimeout)
	defer cancel()

	player, err := s.identity.ResolveParticipant(ctx, participantId)
	switch {
	case errors.Is(err, cerr.ErrUnknownContestant):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to load player")
	default:
		writeJSON(w, http.StatusOK, player)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
