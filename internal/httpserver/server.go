// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the Mastermind backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, request log).
//   - Public endpoints: "/", "/health", "/palette".
//   - Round endpoints (optional auth): POST /game/new, POST /game/guess, POST /game/step,
//     GET /game/{id}, GET /game/{id}/watch (WebSocket, see watch.go).
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me, /games/mine (auth.go).
//   - Database bookkeeping for rounds and user stats.
//
// Notes:
//   - Player input arrives as text ("red green 3 4") and is parsed by the palette
//     package; the engine only ever sees validated sequences.
//   - The secret of a round the player is breaking is never sent until the round ends.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/apps/go-server/internal/config"
	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
	"github.com/robalobadob/mastermind/apps/go-server/internal/palette"
	"github.com/robalobadob/mastermind/apps/go-server/internal/store"
)

// Server bundles router, round store, DB handle and palette.
type Server struct {
	r     *chi.Mux
	cfg   config.Config
	store store.Store
	db    *sql.DB
	pal   *palette.Palette
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, pal *palette.Palette) *Server {
	s := &Server{r: chi.NewRouter(), cfg: cfg, store: st, db: db, pal: pal}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(requestLogger)   // zerolog access log
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"mastermind-go","endpoints":["/health","/palette","POST /game/new","POST /game/guess","POST /game/step","/game/{id}","/game/{id}/watch","/daily/*","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/palette", s.handlePalette)

		// Round endpoints: optional auth, guests can play
		r.With(s.withOptionalAuth()).Post("/game/new", s.handleNewGame)
		r.With(s.withOptionalAuth()).Post("/game/guess", s.handleGuess)
		r.With(s.withOptionalAuth()).Post("/game/step", s.handleStep)
		r.Get("/game/{id}", s.handleGetGame)

		// Daily challenge: optional auth, results persisted on a solve
		s.mountDaily(r.With(s.withOptionalAuth()))

		// Auth + profile/stats (require auth)
		s.mountAuthRoutes(r)
	})

	// Long-lived; outside the handler timeout.
	s.r.With(s.withOptionalAuth()).Get("/game/{id}/watch", s.handleWatch)

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "not_found")
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one debug line per request once the handler returns.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Str("requestId", chimw.GetReqID(r.Context())).
			Msg("request")
	})
}

// cors enables credentialed CORS for the single CLIENT_ORIGIN.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeErr writes {"error":code} with the given status.
func writeErr(w http.ResponseWriter, status int, code string) {
	http.Error(w, `{"error":"`+code+`"}`, status)
}

// writeGameErr maps engine errors onto HTTP responses.
func writeGameErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidLength):
		writeErr(w, http.StatusBadRequest, "invalid_length")
	case errors.Is(err, game.ErrInvalidColor):
		writeErr(w, http.StatusBadRequest, "invalid_color")
	case errors.Is(err, game.ErrRoundOver):
		writeErr(w, http.StatusConflict, "round_over")
	case errors.Is(err, game.ErrWrongMode):
		writeErr(w, http.StatusConflict, "wrong_mode")
	case errors.Is(err, store.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found")
	default:
		log.Error().Err(err).Msg("engine failure")
		writeErr(w, http.StatusInternalServerError, "internal")
	}
}

// ------------------------------ PALETTE ------------------------------------

type colorView struct {
	Index  int    `json:"index"`  // 0-based palette index
	Number int    `json:"number"` // 1-based, as typed by players
	Name   string `json:"name"`
}

type paletteRes struct {
	Colors     []colorView `json:"colors"`
	Length     int         `json:"length"`
	MaxGuesses int         `json:"maxGuesses"`
}

func (s *Server) handlePalette(w http.ResponseWriter, r *http.Request) {
	rules := s.cfg.Rules()
	res := paletteRes{Length: rules.Length, MaxGuesses: s.cfg.MaxGuesses}
	for i, name := range s.pal.Names(rules.Colors) {
		res.Colors = append(res.Colors, colorView{Index: i, Number: i + 1, Name: name})
	}
	_ = json.NewEncoder(w).Encode(res)
}

// ------------------------------ GAME ---------------------------------------

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Mode   string  `json:"mode"`   // "break" (default) | "make"
	Secret string  `json:"secret"` // required for "make"; fixed secret for "break" (testing)
	Seed   *uint64 `json:"seed"`   // optional; makes engine guesses reproducible
}
type newGameRes struct {
	GameID     string     `json:"gameId"`
	Mode       game.Mode  `json:"mode"`
	Rules      game.Rules `json:"rules"`
	MaxGuesses int        `json:"maxGuesses"`
}

// handleNewGame creates a round and persists a DB "owner" row
// (either user_id or anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeErr(w, http.StatusBadRequest, "bad_json")
		return
	}
	mode := game.ModeBreak
	if req.Mode != "" {
		m, err := game.ParseMode(req.Mode)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "invalid_mode")
			return
		}
		mode = m
	}

	rules := s.cfg.Rules()
	opts := game.Options{Rules: rules, MaxGuesses: s.cfg.MaxGuesses}
	if req.Secret != "" {
		secret, err := s.pal.ParseSequence(req.Secret, rules)
		if err != nil {
			writeGameErr(w, err)
			return
		}
		opts.Secret = secret
	}
	opts.Seed = req.Seed

	g, err := game.NewRound(mode, opts)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save round")
		writeErr(w, http.StatusInternalServerError, "save_failed")
		return
	}

	o := s.ownerOf(w, r)
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(r.Context(),
		`INSERT INTO games (id, user_id, anonymous_id, mode, status, guesses, started_at)
		 VALUES (?,?,?,?,?,0,?)`,
		g.ID, nullable(o.userID), nullable(o.anonID), mode.String(), game.StatePlaying.String(), now); err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}

	_ = json.NewEncoder(w).Encode(newGameRes{GameID: g.ID, Mode: mode, Rules: rules, MaxGuesses: g.MaxGuesses})
}

// guessReq/Res payloads for POST /game/guess.
type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}
type guessRes struct {
	Feedback  game.Feedback `json:"feedback"`
	State     game.State    `json:"state"`
	Guesses   int           `json:"guesses"`
	PlayerWon bool          `json:"playerWon"`
	Secret    []string      `json:"secret,omitempty"` // revealed once the round ends
}

// handleGuess scores a player's guess against the engine's secret.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	guess, err := s.pal.ParseSequence(req.Guess, g.Rules)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	fb, state, err := g.Guess(guess)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		writeErr(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.recordProgress(r.Context(), s.ownerOf(w, r), g, state)

	_, n := g.Status()
	res := guessRes{Feedback: fb, State: state, Guesses: n, PlayerWon: g.PlayerWon()}
	if state.Finished() {
		res.Secret = s.pal.Describe(g.Secret)
	}
	_ = json.NewEncoder(w).Encode(res)
}

// stepReq/Res payloads for POST /game/step.
type stepReq struct {
	GameID string `json:"gameId"`
}
type stepRes struct {
	Guess     []string      `json:"guess"`
	Feedback  game.Feedback `json:"feedback"`
	State     game.State    `json:"state"`
	Guesses   int           `json:"guesses"`
	Remaining int           `json:"remaining"` // candidates this guess was drawn from
	PlayerWon bool          `json:"playerWon"`
}

// handleStep lets the engine take its next guess at the player's secret.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req stepReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_json")
		return
	}
	g, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	turn, state, err := g.Step()
	if err != nil {
		writeGameErr(w, err)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		writeErr(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.recordProgress(r.Context(), s.ownerOf(w, r), g, state)
	_ = json.NewEncoder(w).Encode(s.stepView(g, turn, state))
}

func (s *Server) stepView(g *game.Round, turn game.Turn, state game.State) stepRes {
	_, n := g.Status()
	return stepRes{
		Guess:     s.pal.Describe(turn.Guess),
		Feedback:  turn.Feedback,
		State:     state,
		Guesses:   n,
		Remaining: g.Remaining(),
		PlayerWon: g.PlayerWon(),
	}
}

// roundView is the public shape of a round.
type roundView struct {
	GameID     string     `json:"gameId"`
	Mode       game.Mode  `json:"mode"`
	Rules      game.Rules `json:"rules"`
	MaxGuesses int        `json:"maxGuesses"`
	State      game.State `json:"state"`
	PlayerWon  bool       `json:"playerWon"`
	History    []turnView `json:"history"`
	Remaining  int        `json:"remaining,omitempty"`
	Secret     []string   `json:"secret,omitempty"`
}
type turnView struct {
	Guess    []string      `json:"guess"`
	Feedback game.Feedback `json:"feedback"`
}

// handleGetGame returns the round's history and state.
func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeGameErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(s.roundView(g))
}

func (s *Server) roundView(g *game.Round) roundView {
	state, _ := g.Status()
	v := roundView{
		GameID:     g.ID,
		Mode:       g.Mode,
		Rules:      g.Rules,
		MaxGuesses: g.MaxGuesses,
		State:      state,
		PlayerWon:  state.Finished() && g.PlayerWon(),
		History:    []turnView{},
		Remaining:  g.Remaining(),
	}
	for _, t := range g.Turns() {
		v.History = append(v.History, turnView{Guess: s.pal.Describe(t.Guess), Feedback: t.Feedback})
	}
	if g.Mode == game.ModeMake || state.Finished() {
		v.Secret = s.pal.Describe(g.Secret)
	}
	return v
}

// ---------------------------- bookkeeping ----------------------------------

// owner identifies who a round belongs to: a user or an anonymous cookie.
type owner struct {
	userID string
	anonID string
}

// ownerOf returns the signed-in user, or the anonymous id (set on first use).
func (s *Server) ownerOf(w http.ResponseWriter, r *http.Request) owner {
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		return owner{userID: me.ID}
	}
	return owner{anonID: s.ensureAnonID(w, r)}
}

func (o owner) clause() (string, any) {
	if o.userID != "" {
		return `user_id=?`, o.userID
	}
	return `anonymous_id=?`, o.anonID
}

// recordProgress persists counters/history and, when the round ends, user stats.
// Best effort: failures are logged, never surfaced to the player.
func (s *Server) recordProgress(ctx context.Context, o owner, g *game.Round, state game.State) {
	ownerClause, ownerArg := o.clause()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin progress tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE games SET guesses = guesses + 1 WHERE id=? AND `+ownerClause, g.ID, ownerArg); err != nil {
		log.Warn().Err(err).Msg("update guesses")
	}

	if state.Finished() {
		if _, err := tx.Exec(`UPDATE games SET status=?, finished_at=? WHERE id=? AND `+ownerClause,
			state.String(), time.Now().UTC().Format(time.RFC3339), g.ID, ownerArg); err != nil {
			log.Warn().Err(err).Msg("finish game")
		}
		if o.userID != "" {
			if err := s.bumpStats(tx, o.userID, g.PlayerWon()); err != nil {
				log.Warn().Err(err).Str("user", o.userID).Msg("bump stats")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit progress")
	}
}

// nullable maps "" to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
