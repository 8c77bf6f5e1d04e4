// apps/go-server/internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start today's round (creates or reuses a session)
//   - POST /daily/guess       → submit a guess for today's round
//   - GET  /daily/leaderboard → top 20 results for today (or ?date=YYYY-MM-DD)
//
// Everyone breaks the same code each UTC day, derived from date + salt.
// Each player can post one result per day (enforced by DB + in-memory session).

package httpserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/apps/go-server/internal/daily"
	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	sessions map[string]string // userID|date -> round ID
	mu       sync.Mutex        // guards sessions
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		sessions: make(map[string]string),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// playerID returns the authenticated user ID if logged in,
// otherwise the anonymous cookie id.
func (d *dailyServer) playerID(w http.ResponseWriter, r *http.Request) string {
	o := d.srv.ownerOf(w, r)
	if o.userID != "" {
		return o.userID
	}
	return o.anonID
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	GameID     string     `json:"gameId"`
	Date       string     `json:"date"`
	Played     bool       `json:"played"`
	Rules      game.Rules `json:"rules"`
	MaxGuesses int        `json:"maxGuesses"`
}

// handleNew creates or reuses today's round.
// - If the player already has a result for today → Played=true.
// - Otherwise create/reuse a session and return its GameID.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.playerID(w, r)
	now := time.Now().UTC()
	date := daily.DateKey(now)
	rules := d.srv.cfg.Rules()
	res := dailyNewRes{Date: date, Rules: rules, MaxGuesses: d.srv.cfg.MaxGuesses}

	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err == nil && played {
		res.Played = true
		_ = json.NewEncoder(w).Encode(res)
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	if id, ok := d.sessions[key]; ok {
		if _, err := d.srv.store.Get(r.Context(), id); err == nil {
			res.GameID = id
			_ = json.NewEncoder(w).Encode(res)
			return
		}
	}

	secret, err := daily.Secret(now, d.srv.cfg.DailySalt, rules)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	g, err := game.NewRound(game.ModeBreak, game.Options{Rules: rules, MaxGuesses: d.srv.cfg.MaxGuesses, Secret: secret})
	if err != nil {
		writeGameErr(w, err)
		return
	}
	if err := d.srv.store.Save(r.Context(), g); err != nil {
		writeErr(w, http.StatusInternalServerError, "save_failed")
		return
	}
	d.sessions[key] = g.ID

	res.GameID = g.ID
	_ = json.NewEncoder(w).Encode(res)
}

// -----------------------------------------------------------------------------
// /daily/guess

// dailyGuessRes is the response payload for /daily/guess.
type dailyGuessRes struct {
	Feedback *game.Feedback `json:"feedback,omitempty"`
	State    string         `json:"state"` // playing | solved | exhausted | locked
	Guesses  int            `json:"guesses"`
	Secret   []string       `json:"secret,omitempty"`
}

// handleGuess validates and applies a guess for today's round.
// - Rejects unknown sessions and rounds that belong to another day.
// - Returns "locked" once the round is over.
// - Persists the result when the code is broken.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid := d.playerID(w, r)

	var p guessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeErr(w, http.StatusBadRequest, "bad_json")
		return
	}
	date := daily.DateKey(time.Now())

	d.mu.Lock()
	id, ok := d.sessions[uid+"|"+date]
	d.mu.Unlock()
	if !ok || p.GameID == "" || id != p.GameID {
		writeErr(w, http.StatusConflict, "no_session")
		return
	}
	g, err := d.srv.store.Get(r.Context(), id)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	if state, n := g.Status(); state.Finished() {
		_ = json.NewEncoder(w).Encode(dailyGuessRes{State: "locked", Guesses: n})
		return
	}

	guess, err := d.srv.pal.ParseSequence(p.Guess, g.Rules)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	fb, state, err := g.Guess(guess)
	if err != nil {
		writeGameErr(w, err)
		return
	}
	if err := d.srv.store.Save(r.Context(), g); err != nil {
		writeErr(w, http.StatusInternalServerError, "save_failed")
		return
	}
	_, n := g.Status()

	res := dailyGuessRes{Feedback: &fb, State: state.String(), Guesses: n}
	if state.Finished() {
		res.Secret = d.srv.pal.Describe(g.Secret)
	}
	if state == game.StateSolved {
		elapsed := int(time.Since(g.StartedAt).Milliseconds())
		if err := d.store.InsertResult(r.Context(), daily.Result{
			UserID: uid, Date: date, Guesses: n, ElapsedMs: elapsed,
		}); err != nil {
			log.Warn().Err(err).Str("user", uid).Msg("insert daily result")
		}
	}
	_ = json.NewEncoder(w).Encode(res)
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(time.Now())
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "server_error")
		return
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
