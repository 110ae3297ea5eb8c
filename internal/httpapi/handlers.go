package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/auth"
	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/internal/pvpchess"
	"github.com/park285/cheese-chess/internal/rules"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

const maxBody = 1 << 16

func caller(r *http.Request) pvpchess.Player {
	id, _ := auth.FromContext(r.Context())
	return pvpchess.Player{ID: id.ID, Name: id.Name}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req chessdto.CreateGameRequest
	if err := decodeBody(r, &req, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	g, err := s.games.CreateGame(r.Context(), caller(r), req.InvitedPlayerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, chessdto.CreateGameResponse{GameID: g.ID})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.JoinGame(r.Context(), caller(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.JoinGameResponse{GameID: g.ID})
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req chessdto.MoveRequest
	if err := decodeBody(r, &req, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	from := rules.Square{Row: req.FromRow, Col: req.FromCol}
	to := rules.Square{Row: req.ToRow, Col: req.ToCol}
	out, err := s.games.MakeMove(r.Context(), caller(r), mux.Vars(r)["id"], from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.MoveResponse{IsCheck: out.IsCheck, IsCheckmate: out.IsCheckmate})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.games.CancelGame(r.Context(), caller(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	g, err := s.games.GetGame(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// a missing game is a null body, not a 404
	writeJSON(w, http.StatusOK, pvpchess.ToDTO(g))
}

func (s *Server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	row, rerr := strconv.Atoi(q.Get("row"))
	col, cerr := strconv.Atoi(q.Get("col"))
	if rerr != nil || cerr != nil {
		s.writeError(w, r, badRequest("row and col must be integers"))
		return
	}
	from := rules.Square{Row: row, Col: col}
	dests, err := s.games.LegalMoves(r.Context(), mux.Vars(r)["id"], from)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := chessdto.LegalMovesResponse{From: pvpchess.SquareDTO(from), Destinations: make([]chessdto.Square, 0, len(dests))}
	for _, d := range dests {
		resp.Destinations = append(resp.Destinations, pvpchess.SquareDTO(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	games, err := s.games.GetActiveGames(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.GameList{Games: pvpchess.ToDTOs(games)})
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	games, err := s.games.GetMyGames(r.Context(), caller(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chessdto.GameList{Games: pvpchess.ToDTOs(games)})
}

func badRequest(msg string) *pvpchess.Error {
	return &pvpchess.Error{Code: pvpchess.CodeBadRequest, Key: "errors.bad_request", Message: msg}
}

// decodeBody reads a JSON body. An empty body is accepted when optional.
func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return badRequest("malformed request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("http_write_error", zap.Error(err))
	}
}
