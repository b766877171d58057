package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/poltekatipdg/sipbmn-backend/api/controllers"
	"github.com/poltekatipdg/sipbmn-backend/api/middleware"
	authsvc "github.com/poltekatipdg/sipbmn-backend/internal/auth"
	"github.com/poltekatipdg/sipbmn-backend/internal/documents"
	"github.com/poltekatipdg/sipbmn-backend/internal/inventory"
	"github.com/poltekatipdg/sipbmn-backend/internal/letterconfig"
	loansvc "github.com/poltekatipdg/sipbmn-backend/internal/loans"
	usersvc "github.com/poltekatipdg/sipbmn-backend/internal/users"
	"github.com/poltekatipdg/sipbmn-backend/pkg/auth/session"
	"github.com/poltekatipdg/sipbmn-backend/pkg/config"
	"github.com/poltekatipdg/sipbmn-backend/pkg/db"
	"github.com/poltekatipdg/sipbmn-backend/pkg/enums"
	"github.com/poltekatipdg/sipbmn-backend/pkg/logger"
	"github.com/poltekatipdg/sipbmn-backend/pkg/redis"
)

// Services bundles every domain service the router wires into handlers.
type Services struct {
	Auth         authsvc.Service
	Users        usersvc.Service
	Inventory    inventory.Service
	Loans        loansvc.Service
	Documents    documents.Service
	LetterConfig letterconfig.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions session.AccessSessionChecker,
	gatherer prometheus.Gatherer,
	services Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUserLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUserLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/verify", controllers.VerifyDocument(services.Documents, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(services.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(services.Auth, logg))
		r.Post("/refresh", controllers.AuthRefresh(services.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Post("/logout", controllers.AuthLogout(services.Auth, logg))
			r.Get("/me", controllers.AuthProfile(services.Auth, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		adminOnly := middleware.RequireRole(enums.UserRoleAdmin, logg)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", controllers.ListItems(services.Inventory, logg))
			r.Get("/{itemCode}", controllers.GetItem(services.Inventory, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", controllers.CreateItem(services.Inventory, logg))
				r.Put("/{itemCode}", controllers.UpdateItem(services.Inventory, logg))
				r.Delete("/{itemCode}", controllers.DeleteItem(services.Inventory, logg))
			})
		})

		r.Route("/loans", func(r chi.Router) {
			r.Post("/", controllers.SubmitLoan(services.Loans, logg))
			r.Get("/", controllers.ListLoans(services.Loans, logg))
			r.Get("/{loanCode}", controllers.GetLoan(services.Loans, logg))
			r.Get("/{loanCode}/document", controllers.RenderLoanDocument(services.Documents, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/dashboard", controllers.LoanDashboard(services.Loans, logg))
				r.Get("/export", controllers.ExportLoans(services.Loans, logg))
				r.Post("/{loanCode}/approve", controllers.ApproveLoan(services.Loans, logg))
				r.Post("/{loanCode}/reject", controllers.RejectLoan(services.Loans, logg))
				r.Post("/{loanCode}/return", controllers.ReturnLoan(services.Loans, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{userId}", controllers.GetUser(services.Users, logg))
			r.Put("/{userId}", controllers.UpdateUser(services.Users, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", controllers.ListUsers(services.Users, logg))
				r.Post("/", controllers.CreateUser(services.Users, logg))
				r.Post("/import", controllers.ImportUsers(services.Users, logg))
				r.Delete("/{userId}", controllers.DeleteUser(services.Users, logg))
			})
		})

		r.Route("/letter-config", func(r chi.Router) {
			r.Get("/", controllers.GetLetterConfig(services.LetterConfig, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Put("/", controllers.UpdateLetterConfig(services.LetterConfig, logg))
				r.Post("/reset", controllers.ResetLetterConfig(services.LetterConfig, logg))
			})
		})
	})

	return r
}
