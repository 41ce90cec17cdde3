package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/entity"
)

type UserService interface {
	SessionValidator
	Register(ctx context.Context, user *entity.User, password string) (*entity.User, error)
	Login(ctx context.Context, phone, password string) (string, *entity.User, error)
	Logout(ctx context.Context, userID int) error
	GetUserByID(ctx context.Context, id int) (*entity.User, error)
	ListUsers(ctx context.Context) ([]*entity.User, error)
	PromoteToAdmin(ctx context.Context, id int) error
}

type UserHandler struct {
	userService UserService
}

// NewUserHandler creates a new instance of UserHandler
func NewUserHandler(userService UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type addressRequest struct {
	PostalCode string `json:"postal_code" validate:"required"`
	Street     string `json:"street" validate:"required"`
	Number     string `json:"number" validate:"required"`
	Complement string `json:"complement"`
	District   string `json:"district" validate:"required"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required,len=2"`
}

type registerRequest struct {
	Phone    string         `json:"phone" validate:"required"`
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	Address  addressRequest `json:"address"`
}

func (r addressRequest) address() entity.Address {
	return entity.Address{
		PostalCode: r.PostalCode,
		Street:     r.Street,
		Number:     r.Number,
		Complement: r.Complement,
		District:   r.District,
		City:       r.City,
		State:      r.State,
	}
}

type loginRequest struct {
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Register creates an account --> POST /users
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	user := &entity.User{Phone: req.Phone, Name: req.Name, Email: req.Email, Address: req.Address.address()}
	created, err := h.userService.Register(c.Request().Context(), user, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Login opens a session --> POST /login
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	token, user, err := h.userService.Login(c.Request().Context(), req.Phone, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"token": token, "user": user})
}

// Logout ends the current session --> POST /logout
func (h *UserHandler) Logout(c echo.Context) error {
	if err := h.userService.Logout(c.Request().Context(), claimsFrom(c).UserID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the caller's account --> GET /me
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.userService.GetUserByID(c.Request().Context(), claimsFrom(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListUsers --> GET /admin/users
func (h *UserHandler) ListUsers(c echo.Context) error {
	users, err := h.userService.ListUsers(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, users)
}

// PromoteToAdmin --> PUT /admin/users/:id/admin
func (h *UserHandler) PromoteToAdmin(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID"})
	}

	if err := h.userService.PromoteToAdmin(c.Request().Context(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "User promoted to admin"})
}
