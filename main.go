package main

import (
	"bptracker/internal/app"
	"bptracker/internal/handlers"
	"bptracker/internal/logger"
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	log := logger.New("main")

	app, err := app.New()
	if err != nil {
		log.Er("failed to initialize app", err)
		os.Exit(1)
	}
	logger.Setup(app.Config.Environment, app.Config.LogLevel)

	server := newServer(app)
	if err := handlers.Router(server, app); err != nil {
		log.Er("failed to register routes", err)
		_ = app.Close()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listenErr := make(chan error, 1)
	go func() {
		address := ":" + strconv.Itoa(app.Config.ServerPort)
		log.Info("Server listening", "address", address, "version", app.Config.GeneralVersion)
		listenErr <- server.Listen(address)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			log.Er("server stopped", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
	}

	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Er("failed to shut down server", err)
	}
	if err := app.Close(); err != nil && !errors.Is(err, context.Canceled) {
		log.Er("failed to close app", err)
	}
}

func newServer(app *app.App) *fiber.App {
	server := fiber.New(fiber.Config{
		AppName:               "bptracker " + app.Config.GeneralVersion,
		DisableStartupMessage: app.Config.IsProduction(),
	})

	server.Use(recover.New())
	server.Use(requestid.New())
	server.Use(cors.New(cors.Config{
		AllowOrigins:     app.Config.CorsAllowOrigins,
		AllowCredentials: app.Config.CorsAllowOrigins != "*",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	return server
}
