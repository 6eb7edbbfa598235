package mfa

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dmitrymomot/restauth/handler"
	"github.com/dmitrymomot/restauth/pkg/auth"
	"github.com/dmitrymomot/restauth/pkg/credential"
	"github.com/dmitrymomot/restauth/pkg/httpserver"
	"github.com/dmitrymomot/restauth/pkg/logger"
	"github.com/dmitrymomot/restauth/pkg/metrics"
	mfasvc "github.com/dmitrymomot/restauth/pkg/mfa"
	"github.com/dmitrymomot/restauth/pkg/ratelimiter"
	"github.com/dmitrymomot/restauth/pkg/requestmeta"
)

// ErrMissingDependency is returned by New when a required option is nil.
var ErrMissingDependency = errors.New("mfa module: missing dependency")

// Config holds the HTTP-level settings of the module.
type Config struct {
	AllowedOrigins   []string      `env:"HTTP_CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	AllowCredentials bool          `env:"HTTP_CORS_ALLOW_CREDENTIALS" envDefault:"false"`
	ReadinessTimeout time.Duration `env:"HTTP_READINESS_TIMEOUT" envDefault:"2s"`
	// OldPasswordRequired makes password change ask for the current password.
	OldPasswordRequired bool `env:"AUTH_OLD_PASSWORD_FIELD_ENABLED" envDefault:"false"`
	// LogoutOnPasswordChange revokes the API key and session after a password change.
	LogoutOnPasswordChange bool `env:"AUTH_LOGOUT_ON_PASSWORD_CHANGE" envDefault:"false"`
	RequestMeta            requestmeta.Config
}

// Options wires the module. Service, Credentials and Users are required.
type Options struct {
	Config      Config
	Service     *mfasvc.Service
	Credentials *credential.Service
	Users       auth.PasswordAuthenticator
	// Limiter throttles every auth route when set.
	Limiter *ratelimiter.Bucket
	// Metrics adds request metrics and the /metrics endpoint when set.
	Metrics *metrics.Metrics
	// Readiness checks served on /health/ready.
	Readiness map[string]httpserver.Check
	Logger    *slog.Logger
}

// Module serves the login, second factor and enrollment endpoints.
type Module struct {
	cfg          Config
	svc          *mfasvc.Service
	creds        *credential.Service
	users        auth.PasswordAuthenticator
	primary      mfasvc.PrimaryAuthenticator
	limiter      *ratelimiter.Bucket
	metrics      *metrics.Metrics
	readiness    map[string]httpserver.Check
	log          *slog.Logger
	validator    *handler.Validator
	errorHandler handler.ErrorHandler[handler.Context]
}

// New validates opts and builds the module.
func New(opts Options) (*Module, error) {
	if opts.Service == nil || opts.Credentials == nil || opts.Users == nil {
		return nil, ErrMissingDependency
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	return &Module{
		cfg:          opts.Config,
		svc:          opts.Service,
		creds:        opts.Credentials,
		users:        opts.Users,
		primary:      PasswordPrimary(opts.Users),
		limiter:      opts.Limiter,
		metrics:      opts.Metrics,
		readiness:    opts.Readiness,
		log:          log,
		validator:    handler.NewValidator(),
		errorHandler: handler.NewErrorHandler(log, classify),
	}, nil
}

// Handle builds the router:
//
//	POST /auth/register
//	POST /auth/login
//	POST /auth/logout
//	GET, PUT, PATCH /auth/user               (authenticated)
//	POST /auth/password/change              (authenticated)
//	POST /auth/token/refresh, /auth/token/verify (jwt mode)
//	POST /auth/mfa/verify
//	GET  /auth/mfa/totp/activate            (authenticated)
//	POST /auth/mfa/totp/activate            (authenticated)
//	POST /auth/mfa/totp/deactivate          (authenticated)
//	GET  /auth/mfa/status                   (authenticated)
//	GET  /auth/mfa/recovery-codes           (authenticated)
//	POST /auth/mfa/recovery-codes/regenerate (authenticated)
//	GET  /health/live, /health/ready, /metrics
func (m *Module) Handle() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestmeta.Middleware(m.cfg.RequestMeta))
	if m.metrics != nil {
		r.Use(m.metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   m.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", requestmeta.Header},
		ExposedHeaders:   []string{requestmeta.Header, "Retry-After"},
		AllowCredentials: m.cfg.AllowCredentials,
		MaxAge:           300,
	}))

	r.Get("/health/live", httpserver.LivenessHandler())
	r.Get("/health/ready", httpserver.ReadinessHandler(m.log, m.cfg.ReadinessTimeout, m.readiness))
	if m.metrics != nil {
		r.Handle("/metrics", m.metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(m.throttle("register")).Post("/register", bindJSON(m, m.register))
		r.With(m.throttle("login")).Post("/login", bindJSON(m, m.login))
		r.With(m.throttle("logout")).Post("/logout", noBody(m, m.logout))

		if m.creds.Mode() == credential.ModeJWT {
			r.With(m.throttle("token")).Post("/token/refresh", noBody(m, m.refresh))
			r.With(m.throttle("token")).Post("/token/verify", bindJSON(m, m.verifyToken))
		}

		r.Group(func(r chi.Router) {
			r.Use(m.creds.Middleware(m.unauthorized))

			r.Get("/user", noBody(m, m.userDetails))
			r.Put("/user", bindJSON(m, m.replaceUser))
			r.Patch("/user", bindJSON(m, m.patchUser))
			r.With(m.throttle("password_change")).Post("/password/change", bindJSON(m, m.changePassword))
		})

		r.Route("/mfa", func(r chi.Router) {
			r.With(m.throttle("mfa_verify")).Post("/verify", bindJSON(m, m.verify))

			r.Group(func(r chi.Router) {
				r.Use(m.creds.Middleware(m.unauthorized))
				r.Use(m.throttle("mfa_manage"))

				r.Get("/totp/activate", noBody(m, m.beginActivation))
				r.Post("/totp/activate", bindJSON(m, m.confirmActivation))
				r.Post("/totp/deactivate", bindJSON(m, m.deactivate))
				r.Get("/status", noBody(m, m.status))
				r.Get("/recovery-codes", noBody(m, m.recoveryCodes))
				r.Post("/recovery-codes/regenerate", noBody(m, m.regenerateRecoveryCodes))
			})
		})
	})

	return r
}

func bindJSON[R any](m *Module, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinder[handler.Context, R](binderJSON),
		handler.WithValidator[handler.Context, R](m.validator),
		handler.WithErrorHandler[handler.Context, R](m.errorHandler),
	)
}

func noBody(m *Module, h handler.HandlerFunc[handler.Context, struct{}]) http.HandlerFunc {
	return handler.Wrap(h, handler.WithErrorHandler[handler.Context, struct{}](m.errorHandler))
}

func (m *Module) fail(w http.ResponseWriter, r *http.Request, err error) {
	m.errorHandler(handler.NewContext(w, r), err)
}

func (m *Module) unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	m.fail(w, r, errors.Join(handler.ErrUnauthorized, err))
}

// throttle limits by client IP and route name. It is a no-op without a limiter.
func (m *Module) throttle(route string) func(http.Handler) http.Handler {
	if m.limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return ratelimiter.Middleware(m.limiter,
		ratelimiter.Composite(clientIP, ratelimiter.Static(route)),
		ratelimiter.WithLimitedHandler(func(w http.ResponseWriter, r *http.Request, _ *ratelimiter.Result) {
			m.fail(w, r, handler.ErrTooManyRequests)
		}),
		ratelimiter.WithErrorHandler(m.fail),
	)
}

func clientIP(r *http.Request) string {
	if ip, ok := requestmeta.IP(r.Context()); ok {
		return ip
	}
	return requestmeta.ClientIP(r, false)
}
