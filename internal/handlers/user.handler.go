package handlers

import (
	"bptracker/internal/app"
	userController "bptracker/internal/controllers/users"
	"bptracker/internal/handlers/middleware"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	Handler
	controller userController.UserController
	secure     bool
}

func NewUserHandler(app app.App, router fiber.Router) *UserHandler {
	log := logger.New("handlers").File("user_handler")
	return &UserHandler{
		controller: *app.UserController,
		secure:     app.Config.IsProduction(),
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *UserHandler) Register() {
	users := h.router.Group("/users")
	users.Post("/register", h.register)
	users.Post("/login", h.login)

	users.Get("/", h.middleware.AuthRequired(), h.getUser)
	users.Post("/logout", h.middleware.AuthRequired(), h.logout)
}

func (h *UserHandler) getUser(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.log.Function("getUser").ErMsg("No user found in locals")
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "error", "error": "failed to get user"})
	}

	return c.JSON(fiber.Map{"message": "success", "user": user})
}

func (h *UserHandler) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SESSION_COOKIE,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{"message": "success"})
}

func (h *UserHandler) register(c *fiber.Ctx) error {
	log := h.log.Function("register")

	var request RegisterRequest
	if err := c.BodyParser(&request); err != nil {
		log.Debug("failed to parse register request", "error", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse register request"})
	}

	if errs := validateStruct(request); errs.HasErrors() {
		log.Debug("invalid register request", "errors", errs)
		return validationFailed(c, errs)
	}

	user, err := h.controller.Register(c.UserContext(), request)
	if errors.Is(err, userController.ErrLoginTaken) {
		return c.Status(fiber.StatusConflict).
			JSON(fiber.Map{"message": "login is already registered"})
	}
	if err != nil {
		log.Er("failed to register user", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to register user", "error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "success", "user": user})
}

func (h *UserHandler) login(c *fiber.Ctx) error {
	log := h.log.Function("login")

	var loginRequest LoginRequest
	if err := c.BodyParser(&loginRequest); err != nil {
		log.Debug("failed to parse login request", "error", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse login request"})
	}

	if errs := validateStruct(loginRequest); errs.HasErrors() {
		return validationFailed(c, errs)
	}

	session, err := h.controller.Login(c.UserContext(), loginRequest)
	if errors.Is(err, userController.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).
			JSON(fiber.Map{"message": "invalid login or password"})
	}
	if err != nil {
		log.Er("failed to log in", err)
		return c.Status(fiber.StatusInternalServerError).
			JSON(fiber.Map{"message": "failed to log in", "error": err.Error()})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SESSION_COOKIE,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.JSON(fiber.Map{
		"message":   "success",
		"user":      session.User,
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	})
}
