package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/internal/pvpchess"
	"github.com/park285/cheese-chess/pkg/chessdto"
)

const (
	codeConflict = "CONFLICT"
	codeInternal = "INTERNAL"
)

func statusOf(code pvpchess.Code) int {
	switch code {
	case pvpchess.CodeNotFound:
		return http.StatusNotFound
	case pvpchess.CodeForbidden:
		return http.StatusForbidden
	case pvpchess.CodeBadRequest:
		return http.StatusBadRequest
	case pvpchess.CodeUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) render(key, fallback string) string {
	if s.messages == nil || key == "" {
		return fallback
	}
	return s.messages.RenderOr(key, nil, fallback)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *pvpchess.Error
	switch {
	case errors.As(err, &de):
		writeJSON(w, statusOf(de.Code), chessdto.ErrorResponse{Error: s.render(de.Key, de.Error()), Code: string(de.Code)})
	case errors.Is(err, pvpchess.ErrConcurrentUpdate):
		obslog.L().Warn("http_conflict", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusConflict, chessdto.ErrorResponse{Error: s.render("errors.conflict", err.Error()), Code: codeConflict})
	default:
		obslog.L().Error("http_internal_error", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, chessdto.ErrorResponse{Error: s.render("errors.internal", "internal error"), Code: codeInternal})
	}
}
