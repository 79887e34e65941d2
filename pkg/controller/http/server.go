package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/iris/pkg/usecase"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"github.com/secmon-lab/iris/pkg/utils/safe"
)

type Server struct {
	router             *chi.Mux
	uc                 *usecase.UseCases
	slackSigningSecret string
	enableEvents       bool
}

type Options func(*Server)

// WithSlackEvents enables the Events API endpoint. Requests are signature-verified
// when signingSecret is not empty.
func WithSlackEvents(signingSecret string) Options {
	return func(s *Server) {
		s.enableEvents = true
		s.slackSigningSecret = signingSecret
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	gw := &gatewayHandler{uc: uc}
	r.Get("/channels", gw.listChannels)
	r.Get("/users", gw.searchUsers)
	r.Get("/users/{channelID}", gw.listChannelMembers)
	r.Get("/crawl", gw.crawl)
	r.Get("/crawl/{channelID}", gw.crawlChannel)
	r.Post("/send/{channelID}", gw.sendMessage)

	// Slack Events API endpoint, no token; authenticity comes from the request signature
	if s.enableEvents {
		r.Route("/slack", func(r chi.Router) {
			if s.slackSigningSecret != "" {
				r.Use(SlackSignatureMiddleware(s.slackSigningSecret))
			} else {
				logging.Default().Warn("slack signing secret is not set, event requests are not verified")
			}
			r.Post("/events", NewSlackWebhookHandler(uc.Event).ServeHTTP)
		})
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests and binds a request-scoped
// logger to the context
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := logging.Default().With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.With(r.Context(), logger)

		defer func() {
			logger.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.EncodeJSON(r.Context(), w, v)
}
