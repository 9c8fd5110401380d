package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/pavelzorin/shortlink/internal/entity"
	"github.com/pavelzorin/shortlink/internal/service"
	"github.com/pavelzorin/shortlink/pkg/response"
)

// handlePing handles health check requests to ensure the server is running.
func handlePing(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "pong")
}

// shortenRequest represents the request payload for creating a shortened URL.
type shortenRequest struct {
	URL         string     `json:"url" validate:"required,url"`
	CustomAlias string     `json:"custom_alias,omitempty" validate:"omitempty,max=10"`
	OwnerID     string     `json:"owner_id,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// urlResponse represents the response payload for a shortened URL operation.
type urlResponse struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	URL         string     `json:"url"`
	OwnerID     string     `json:"owner_id,omitempty"`
	CustomAlias bool       `json:"custom_alias"`
	ClickCount  int64      `json:"click_count"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// toURLResponse converts a URL record from the business layer into a response payload.
func toURLResponse(url *entity.URL) urlResponse {
	return urlResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		URL:         url.OriginalURL,
		OwnerID:     url.OwnerID,
		CustomAlias: url.CustomAlias,
		ClickCount:  url.ClickCount,
		CreatedAt:   url.CreatedAt,
		ExpiresAt:   url.ExpiresAt,
	}
}

// handleShorten handles POST requests to shorten a URL.
//
// The request must contain a valid URL and may carry a custom alias, an owner
// and an expiry time. Collisions on custom aliases are reported as a conflict;
// generated codes are retried internally.
func handleShorten(svc URLService, validate *validator.Validate) http.HandlerFunc {
	const op = "api.http.handleShorten"
	const successMsg = "The URL has been shortened successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		var req shortenRequest

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			if errors.Is(err, io.EOF) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.EmptyRequestBodyResponse)
				return
			}

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.BadRequestResponse)
			return
		}

		if err := validate.Struct(req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.ValidationErrorResponse(err))
			return
		}

		url, err := svc.Shorten(r.Context(), req.URL, req.CustomAlias, req.OwnerID, req.ExpiresAt)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrShortCodeExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, response.AliasTakenResponse)
			case errors.Is(err, entity.ErrInvalidAlias):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Invalid Alias", "The custom alias contains disallowed characters or is too long."))
			case errors.Is(err, entity.ErrInvalidURL):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, response.ErrorResponse("Invalid URL", "The provided URL is malformed."))
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url)))
	}
}

// handleResolve handles GET requests to resolve a short code into the original URL.
//
// The handler fetches the original URL for the provided short code. Expired
// codes are reported as gone, unknown ones as not found. The visit metadata
// is recorded asynchronously and never delays the response.
func handleResolve(svc URLService) http.HandlerFunc {
	const op = "api.http.handleResolve"
	const successMsg = "The short code was successfully resolved."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		visit := service.Visit{
			SourceAddr: r.RemoteAddr,
			UserAgent:  r.UserAgent(),
			Referrer:   r.Referer(),
		}

		url, err := svc.Resolve(r.Context(), shortCode, visit)
		if err != nil {
			switch {
			case errors.Is(err, entity.ErrURLNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
			case errors.Is(err, entity.ErrURLExpired):
				render.Status(r, http.StatusGone)
				render.JSON(w, r, response.URLExpiredResponse)
			default:
				httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, response.ServerErrorResponse)
			}
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, map[string]string{"url": url}))
	}
}

// handleDeactivate handles DELETE requests to deactivate the URL.
//
// Once deactivated, the short code resolves to not found. The handler returns
// a success message if deactivation is successful or an error if the short
// code doesn't exist.
func handleDeactivate(svc URLService) http.HandlerFunc {
	const op = "api.http.handleDeactivate"
	const successMsg = "The URL was successfully deactivated."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		err := svc.Deactivate(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, entity.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg))
	}
}

// handleStats handles GET requests to retrieve usage statistics for a shortened URL.
//
// The handler fetches click counts and other statistics for the given short
// code, returning the data or a 404 error if the URL doesn't exist.
func handleStats(svc URLService) http.HandlerFunc {
	const op = "api.http.handleStats"
	const successMsg = "The URL statistics retrieved successfully."

	return func(w http.ResponseWriter, r *http.Request) {
		shortCode := chi.URLParam(r, "shortCode")

		url, err := svc.Stats(r.Context(), shortCode)
		if err != nil {
			if errors.Is(err, entity.ErrURLNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, response.ResourceNotFoundResponse)
				return
			}

			httplog.LogEntrySetFields(r.Context(), map[string]any{"op": op, "err": err})

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.ServerErrorResponse)
			return
		}

		render.Status(r, http.StatusOK)
		render.JSON(w, r, response.SuccessResponse(successMsg, toURLResponse(url)))
	}
}
