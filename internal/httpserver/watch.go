package httpserver

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/apps/go-server/internal/game"
)

// watchMsg is one WebSocket frame: {"type":"round"|"step","data":{...}}.
type watchMsg struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleWatch streams a ModeMake round: the current round first, then one
// "step" frame per engine guess, WATCH_INTERVAL apart, until the round ends.
// The connection closes normally with the final state as the reason, also when
// the round was already over or another client finished it mid-stream.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	g, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeGameErr(w, err)
		return
	}
	if g.Mode != game.ModeMake {
		writeGameErr(w, game.ErrWrongMode)
		return
	}
	o := s.ownerOf(w, r)

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		log.Warn().Err(err).Msg("websocket accept")
		return
	}
	defer c.CloseNow()
	ctx := c.CloseRead(r.Context())

	if err := wsjson.Write(ctx, c, watchMsg{Type: "round", Data: s.roundView(g)}); err != nil {
		return
	}
	for {
		turn, state, err := g.Step()
		if errors.Is(err, game.ErrRoundOver) {
			break
		}
		if err != nil {
			log.Error().Err(err).Str("gameId", g.ID).Msg("watch step")
			c.Close(websocket.StatusInternalError, "step_failed")
			return
		}
		if err := s.store.Save(ctx, g); err != nil {
			log.Warn().Err(err).Str("gameId", g.ID).Msg("save round")
		}
		s.recordProgress(ctx, o, g, state)
		if err := wsjson.Write(ctx, c, watchMsg{Type: "step", Data: s.stepView(g, turn, state)}); err != nil {
			return
		}
		if state.Finished() {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.cfg.WatchInterval):
		}
	}
	state, _ := g.Status()
	c.Close(websocket.StatusNormalClosure, state.String())
}

// originPatterns allows the configured client origin to open sockets.
// Requests without an Origin header (non-browser clients) are always accepted.
func (s *Server) originPatterns() []string {
	u, err := url.Parse(s.cfg.ClientOrigin)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
