package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/backpine/users-service/internal/core/domain"
)

// taggedError is the fallback envelope for errors without extra fields.
type taggedError struct {
	Tag     string `json:"_tag"`
	Message string `json:"message"`
}

type notFoundError struct {
	Tag     string `json:"_tag"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

type userNotFoundError struct {
	Tag     string `json:"_tag"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

type userCreationError struct {
	Tag   string `json:"_tag"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type validationError struct {
	Tag     string   `json:"_tag"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps typed domain errors to their status code and a body tagged with "_tag".
//   - Renders router misses as NotFoundError.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, any) {
	var (
		userNotFound *domain.UserNotFoundError
		creation     *domain.UserCreationError
		validation   *domain.ValidationError
		notFound     *domain.NotFoundError
		bindings     *domain.BindingsError
		database     *domain.DatabaseConnectionError
		he           *echo.HTTPError
	)

	switch {
	case errors.As(err, &userNotFound):
		return http.StatusNotFound, userNotFoundError{Tag: userNotFound.Tag(), ID: userNotFound.ID, Message: userNotFound.Message}
	case errors.As(err, &creation):
		return http.StatusBadRequest, userCreationError{Tag: creation.Tag(), Email: creation.Email, Name: creation.Name}
	case errors.As(err, &validation):
		errs := validation.Errors
		if errs == nil {
			errs = []string{}
		}
		return http.StatusBadRequest, validationError{Tag: validation.Tag(), Message: validation.Message, Errors: errs}
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFoundError{Tag: notFound.Tag(), Path: notFound.Path, Message: notFound.Message}
	case errors.As(err, &bindings):
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request reached a handler without bindings")
		return http.StatusInternalServerError, taggedError{Tag: bindings.Tag(), Message: bindings.Message}
	case errors.As(err, &database):
		log.Error().Err(err).Str("path", c.Request().URL.Path).Msg("database unavailable")
		return http.StatusServiceUnavailable, taggedError{Tag: database.Tag(), Message: database.Message}
	case errors.As(err, &he):
		// Echo's own errors (router misses, bind failures, method not allowed).
		if he.Code == http.StatusNotFound {
			path := c.Request().URL.Path
			return http.StatusNotFound, notFoundError{Tag: "NotFoundError", Path: path, Message: "Route not found: " + path}
		}
		return he.Code, taggedError{Tag: "HttpError", Message: fmt.Sprintf("%v", he.Message)}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, taggedError{Tag: "InternalServerError", Message: "An unexpected error occurred"}
}
