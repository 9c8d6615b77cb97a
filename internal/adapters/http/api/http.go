// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/okian/ballotboard/internal/domain/model"
	"github.com/okian/ballotboard/internal/domain/types"
	"github.com/okian/ballotboard/pkg/logger"
)

const maxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RegisterPlayer(ctx context.Context, voterID, name string) (types.Player, error)
	Players(ctx context.Context) ([]types.Player, error)

	CreateSeason(ctx context.Context, start, end string) (types.Season, error)
	CreateWeek(ctx context.Context, date string) (types.Week, error)
	Weeks(ctx context.Context, seasonOnly bool) ([]types.Week, error)
	CurrentWeek(ctx context.Context, voterID string) (types.CurrentWeek, error)

	// SubmitBallot queues a ballot. duplicate reports an idempotent replay.
	SubmitBallot(ctx context.Context, b model.Ballot, idemKey string) (duplicate bool, err error)
	Ballot(ctx context.Context, voterID, weekID string) (types.Ballot, error)

	Standings(ctx context.Context, weekID string) (types.Standings, error)
	Series(ctx context.Context, onlyWeeksWithBallots *bool) (types.Series, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	playersHandler   *PlayersHandler
	weeksHandler     *WeeksHandler
	ballotsHandler   *BallotsHandler
	standingsHandler *StandingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	log := logger.Get().Named("api")
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		playersHandler:   &PlayersHandler{deps: deps, logger: log},
		weeksHandler:     &WeeksHandler{deps: deps, logger: log},
		ballotsHandler:   &BallotsHandler{deps: deps, logger: log},
		standingsHandler: &StandingsHandler{deps: deps, logger: log},
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /players", MetricsMiddleware(s.playersHandler.HandleRegister, "players"))
	mux.HandleFunc("GET /players", MetricsMiddleware(s.playersHandler.HandleList, "players"))

	mux.HandleFunc("POST /seasons", MetricsMiddleware(s.weeksHandler.HandleCreateSeason, "seasons"))
	mux.HandleFunc("POST /weeks", MetricsMiddleware(s.weeksHandler.HandleCreateWeek, "weeks"))
	mux.HandleFunc("GET /weeks", MetricsMiddleware(s.weeksHandler.HandleList, "weeks"))
	mux.HandleFunc("GET /weeks/current", MetricsMiddleware(s.weeksHandler.HandleCurrent, "weeks_current"))

	mux.HandleFunc("POST /ballots", MetricsMiddleware(s.ballotsHandler.HandleSubmit, "ballots"))
	mux.HandleFunc("GET /ballots/{week_id}/{voter_id}", MetricsMiddleware(s.ballotsHandler.HandleGet, "ballot"))

	mux.HandleFunc("GET /standings", MetricsMiddleware(s.standingsHandler.HandleStandings, "standings"))
	mux.HandleFunc("GET /series", MetricsMiddleware(s.standingsHandler.HandleSeries, "series"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status its kind maps to. Server errors are
// logged; client errors are not.
func writeError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error(ctx, "request failed", logger.Error(err), logger.Int("status", status))
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error()})
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
