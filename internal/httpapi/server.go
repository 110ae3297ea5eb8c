// Package httpapi exposes the game session manager over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/park285/cheese-chess/internal/auth"
	"github.com/park285/cheese-chess/internal/obslog"
	"github.com/park285/cheese-chess/internal/pvpchess"
)

// IdentityResolver turns a request into the acting player.
type IdentityResolver interface {
	FromRequest(r *http.Request) (auth.Identity, error)
}

// Messages renders user-facing error text.
type Messages interface {
	RenderOr(key string, data any, fallback string) string
}

type Server struct {
	games    *pvpchess.Manager
	resolver IdentityResolver
	messages Messages
	router   *mux.Router
}

func New(games *pvpchess.Manager, resolver IdentityResolver, messages Messages) *Server {
	s := &Server{games: games, resolver: resolver, messages: messages}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/games").Subrouter()
	api.Use(s.requireAuth)
	api.HandleFunc("", s.handleCreate).Methods(http.MethodPost)
	// fixed paths first so they do not match {id}
	api.HandleFunc("/active", s.handleActive).Methods(http.MethodGet)
	api.HandleFunc("/mine", s.handleMine).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.handleGet).Methods(http.MethodGet)
	api.HandleFunc("/{id}/join", s.handleJoin).Methods(http.MethodPost)
	api.HandleFunc("/{id}/moves", s.handleMove).Methods(http.MethodPost)
	api.HandleFunc("/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/{id}/legal-moves", s.handleLegalMoves).Methods(http.MethodGet)
	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.resolver.FromRequest(r)
		if err != nil {
			obslog.L().Debug("http_auth_reject", zap.String("path", r.URL.Path), zap.Error(err))
			s.writeError(w, r, &pvpchess.Error{Code: pvpchess.CodeUnauthenticated, Key: "errors.unauthenticated", Message: "unauthenticated"})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		obslog.L().Info("http_request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

// ListenAndServe runs handler on addr until ctx is cancelled, then drains
// in-flight requests for up to grace.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		obslog.L().Info("http_listen", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	return srv.Shutdown(sctx)
}
