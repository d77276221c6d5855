package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/backpine/users-service/internal/api/middleware"
	"github.com/backpine/users-service/internal/core/domain"
	"github.com/backpine/users-service/internal/core/ports"
)

// UserHandler exposes the user use cases over HTTP. Errors are returned to
// the central error handler, which renders them as tagged JSON.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List godoc
//
//	@Summary	List users
//	@Tags		users
//	@Produce	json
//	@Success	200	{object}	ports.UserList
//	@Failure	500	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/api/users [get]
func (h *UserHandler) List(c echo.Context) error {
	list, err := h.service.ListUsers(c.Request().Context(), middleware.ScopeFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Get godoc
//
//	@Summary	Get a user by id
//	@Tags		users
//	@Produce	json
//	@Param		id	path		string	true	"User ID (usr_<n>)"
//	@Success	200	{object}	domain.User
//	@Failure	404	{object}	map[string]any
//	@Router		/api/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.GetUser(c.Request().Context(), middleware.ScopeFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Create godoc
//
//	@Summary	Create a user
//	@Tags		users
//	@Accept		json
//	@Produce	json
//	@Param		body	body		createUserRequest	true	"New user"
//	@Success	201		{object}	domain.User
//	@Failure	400		{object}	map[string]any
//	@Router		/api/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return &domain.ValidationError{
			Message: "Invalid request body",
			Errors:  []string{"body must be a JSON object with email and name"},
		}
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.service.CreateUser(c.Request().Context(), middleware.ScopeFrom(c), ports.CreateUserInput{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}
