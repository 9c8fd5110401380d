package http

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"

	"github.com/pavelzorin/shortlink/internal/entity"
	"github.com/pavelzorin/shortlink/internal/service"
)

// URLService defines the interface for the core URL shortening business logic.
type URLService interface {
	// Shorten creates a shortened version of the provided original URL,
	// optionally under a caller-supplied alias and with an expiry time.
	Shorten(ctx context.Context, originalURL, customAlias, ownerID string, expiresAt *time.Time) (*entity.URL, error)

	// Resolve retrieves the original URL for a given short code and records
	// the visit asynchronously.
	Resolve(ctx context.Context, shortCode string, visit service.Visit) (string, error)

	// Deactivate removes the URL, making the short code no longer functional.
	Deactivate(ctx context.Context, shortCode string) error

	// Stats retrieves the usage statistics of the URL associated with the short code.
	Stats(ctx context.Context, shortCode string) (*entity.URL, error)
}

// getValidate initializes a new validator instance for validating incoming request payloads.
// It customizes tag name extraction from struct fields to match JSON tags.
func getValidate() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// NewRouter initializes and returns a new HTTP router with all routes and middleware configured.
func NewRouter(logger *httplog.Logger, urlSvc URLService) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		validate := getValidate()

		r.Get("/ping", handlePing)

		r.Route("/shorten", func(r chi.Router) {
			r.Post("/", handleShorten(urlSvc, validate))

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", handleResolve(urlSvc))
				r.Delete("/", handleDeactivate(urlSvc))
				r.Get("/stats", handleStats(urlSvc))
			})
		})
	})

	return r
}
