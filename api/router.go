package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/middleware"
)

const (
	PathHealth         = "/healthz"
	PathMetrics        = "/metrics"
	PathSignin         = "/user/signin"
	PathSignup         = "/user/signup"
	PathChangePassword = "/user/change-password"
	PathLogout         = "/user/logout"
	PathProfile        = "/api/profile"
)

// Service is the subset of *tokenguard.Authority the handlers call.
type Service interface {
	middleware.Authenticator
	Signin(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, req tokenguard.SignupRequest) (tokenguard.SignupResult, error)
	ChangePassword(ctx context.Context, claims *tokenguard.Claims, previous, next string) (string, error)
	Logout(ctx context.Context, claims *tokenguard.Claims) error
}

// Options configures the router.
type Options struct {
	// AllowedOrigins enables CORS for the listed origins. Empty disables CORS.
	AllowedOrigins []string
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	// Ready backs /healthz. Nil always reports healthy.
	Ready func(ctx context.Context) error
	Logger logrus.FieldLogger
}

// NewRouter wires every route onto a gorilla/mux router.
func NewRouter(svc Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	h := &handlers{svc: svc, log: log, ready: opts.Ready}

	router := mux.NewRouter()
	router.Use(middleware.ClientIP(opts.TrustProxy))

	router.HandleFunc(PathHealth, h.health).Methods(http.MethodGet)
	if opts.Metrics != nil {
		router.Handle(PathMetrics, opts.Metrics).Methods(http.MethodGet)
	}

	router.HandleFunc(PathSignin, h.signin).Methods(http.MethodPost)
	router.HandleFunc(PathSignup, h.signup).Methods(http.MethodPost)

	guard := middleware.Guard(svc, log)
	router.Handle(PathChangePassword, guard(http.HandlerFunc(h.changePassword))).Methods(http.MethodPost)
	router.Handle(PathLogout, guard(http.HandlerFunc(h.logout))).Methods(http.MethodPost)

	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(guard)
	protected.HandleFunc("/profile", h.profile).Methods(http.MethodGet)

	if len(opts.AllowedOrigins) == 0 {
		return router
	}
	co := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
	return co.Handler(router)
}
