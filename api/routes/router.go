package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/library-backend/api/controllers"
	"github.com/angelmondragon/library-backend/api/middleware"
	"github.com/angelmondragon/library-backend/internal/auth"
	"github.com/angelmondragon/library-backend/internal/books"
	"github.com/angelmondragon/library-backend/internal/borrowers"
	"github.com/angelmondragon/library-backend/internal/content"
	"github.com/angelmondragon/library-backend/internal/lending"
	"github.com/angelmondragon/library-backend/internal/librarians"
	"github.com/angelmondragon/library-backend/internal/users"
	"github.com/angelmondragon/library-backend/pkg/auth/session"
	"github.com/angelmondragon/library-backend/pkg/config"
	"github.com/angelmondragon/library-backend/pkg/logger"
	"github.com/angelmondragon/library-backend/pkg/metrics"
	"github.com/angelmondragon/library-backend/pkg/redis"
)

// redisStore is what the auth rate limiter and idempotency middleware need.
type redisStore interface {
	redis.IdempotencyStore
	middleware.FixedWindowStore
	Ping(ctx context.Context) error
}

// Dependencies carries everything the HTTP surface is wired to.
type Dependencies struct {
	DB      controllers.Pinger
	Redis   redisStore
	Storage controllers.Pinger

	Sessions    session.AccessSessionChecker
	IPLimiter   *middleware.IPRateLimiter
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Auth       auth.Service
	Users      users.Service
	Books      books.Service
	Lending    lending.Service
	Borrowers  borrowers.Service
	Librarians librarians.Service
	Content    content.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.RateLimit(deps.IPLimiter, logg),
	)
	r.NotFound(controllers.NotFound())

	ready := map[string]controllers.Pinger{}
	if deps.DB != nil {
		ready["db"] = deps.DB
	}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}
	if deps.Storage != nil {
		ready["storage"] = deps.Storage
	}

	r.Get("/", controllers.Root())
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, ready, logg))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	authn := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	staff := middleware.RequireStaff(logg)
	admin := middleware.RequireAdmin(logg)

	var idem func(http.Handler) http.Handler = passthrough
	if deps.Redis != nil {
		idem = middleware.Idempotency(deps.Redis, logg)
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	loginLimit, registerLimit := passthrough, passthrough
	if deps.Redis != nil {
		loginLimit = middleware.AuthRateLimit(loginPolicy, deps.Redis, logg)
		registerLimit = middleware.AuthRateLimit(registerPolicy, deps.Redis, logg)
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(registerLimit, idem).Post("/register", controllers.AuthRegister(deps.Auth, logg))
			r.With(loginLimit).Post("/login", controllers.AuthLogin(deps.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
			r.Post("/logout", controllers.AuthLogout(deps.Auth, logg))

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/me", controllers.AuthMe(deps.Auth, logg))
				r.Get("/me/borrowed-books", controllers.MyBorrowedBooks(deps.Lending, logg))
				r.Get("/me/downloads", controllers.MyDownloads(deps.Content, logg))
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authn)
			r.With(admin).Get("/", controllers.ListUsers(deps.Users, logg))
			r.Put("/{id}", controllers.UpdateUser(deps.Users, logg))
			r.With(admin).Delete("/{id}", controllers.DeleteUser(deps.Users, logg))
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", controllers.ListBooks(deps.Books, logg))
			r.Get("/search", controllers.SearchBooks(deps.Books, logg))
			r.Get("/{id}", controllers.GetBook(deps.Books, logg))

			r.Group(func(r chi.Router) {
				r.Use(authn, idem)
				r.Post("/{id}/borrow", controllers.BorrowBook(deps.Lending, logg))
				r.Post("/{id}/return", controllers.ReturnBook(deps.Lending, logg))

				r.With(staff).Post("/", controllers.CreateBook(deps.Books, logg))
				r.With(staff).Put("/{id}", controllers.UpdateBook(deps.Books, logg))
				r.With(staff).Delete("/{id}", controllers.DeleteBook(deps.Books, logg))
			})
		})

		r.Route("/students", func(r chi.Router) {
			r.Use(authn, idem)
			r.Post("/", controllers.CreateBorrower(deps.Borrowers, logg))
			r.With(staff).Get("/", controllers.ListBorrowers(deps.Borrowers, logg))
			r.Get("/{id}", controllers.GetBorrower(deps.Borrowers, logg))
			r.Put("/{id}", controllers.UpdateBorrower(deps.Borrowers, logg))
			r.With(admin).Delete("/{id}", controllers.DeleteBorrower(deps.Borrowers, logg))

			r.Group(func(r chi.Router) {
				r.Use(staff)
				r.Post("/{id}/issue-book", controllers.IssueBook(deps.Lending, logg))
				r.Post("/{id}/return-book", controllers.ReturnIssuedBook(deps.Lending, logg))
				r.Post("/{id}/settle-fine", controllers.SettleFine(deps.Lending, logg))
			})
		})

		r.Route("/librarians", func(r chi.Router) {
			r.Use(authn)
			r.With(staff).Get("/{id}", controllers.GetLibrarian(deps.Librarians, logg))
			r.With(staff).Get("/{id}/stats", controllers.LibrarianStats(deps.Librarians, logg))

			r.Group(func(r chi.Router) {
				r.Use(admin)
				r.Post("/", controllers.CreateLibrarian(deps.Librarians, logg))
				r.Get("/", controllers.ListLibrarians(deps.Librarians, logg))
				r.Put("/{id}", controllers.UpdateLibrarian(deps.Librarians, logg))
				r.Delete("/{id}", controllers.DeleteLibrarian(deps.Librarians, logg))
			})
		})

		r.Route("/digital-content", func(r chi.Router) {
			r.Get("/", controllers.ListContent(deps.Content, logg))
			r.Get("/search", controllers.SearchContent(deps.Content, logg))
			r.Get("/trending", controllers.TrendingContent(deps.Content, logg))
			r.Get("/recommended", controllers.RecommendedContent(deps.Content, logg))
			r.Get("/browse/category/{category}", controllers.BrowseContentByCategory(deps.Content, logg))
			r.Get("/{id}", controllers.GetContent(deps.Content, logg))

			r.Group(func(r chi.Router) {
				r.Use(authn, idem)
				r.Get("/{id}/download", controllers.DownloadContent(deps.Content, logg))
				r.Post("/{id}/review", controllers.ReviewContent(deps.Content, logg))

				r.With(staff).Post("/upload", controllers.UploadContent(deps.Content, cfg.Storage.MaxUploadBytes(), logg))
				r.With(staff).Put("/{id}", controllers.UpdateContent(deps.Content, logg))
				r.With(staff).Delete("/{id}", controllers.DeleteContent(deps.Content, logg))
				r.With(admin).Get("/storage/info", controllers.StorageInfo(deps.Content, logg))
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}
