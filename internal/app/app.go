package app

import (
	"bptracker/config"
	"bptracker/internal/database"
	"bptracker/internal/events"
	"bptracker/internal/handlers/middleware"
	"bptracker/internal/logger"
	"bptracker/internal/repositories"
	"bptracker/internal/services"
	"bptracker/internal/websockets"

	measurementController "bptracker/internal/controllers/measurements"
	userController "bptracker/internal/controllers/users"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	// Services
	TransactionService *services.TransactionService
	SessionService     *services.SessionService

	// Repositories
	UserRepo        repositories.UserRepository
	MeasurementRepo repositories.MeasurementRepository
	PostureRepo     repositories.PostureRepository

	// Controllers
	UserController        *userController.UserController
	MeasurementController *measurementController.MeasurementController
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	return NewWithConfig(config)
}

// NewWithConfig wires the application from an already loaded config.
func NewWithConfig(config config.Config) (*App, error) {
	log := logger.New("app").Function("NewWithConfig")

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events, config)

	// Initialize services
	transactionService := services.NewTransactionService(db)
	sessionService := services.NewSessionService(config)

	// Initialize repositories
	userRepo := repositories.New(db)
	measurementRepo := repositories.NewMeasurement(db)
	postureRepo := repositories.NewPosture(db)

	// Initialize controllers with repositories and services
	userController := userController.New(userRepo, sessionService, transactionService)
	measurementController := measurementController.New(measurementRepo, postureRepo, eventBus)
	middleware := middleware.New(userController, config)

	websocket, err := websockets.New(eventBus)
	if err != nil {
		_ = eventBus.Close()
		_ = db.Close()
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	app := &App{
		Database:              db,
		Config:                config,
		Middleware:            middleware,
		TransactionService:    transactionService,
		SessionService:        sessionService,
		UserRepo:              userRepo,
		MeasurementRepo:       measurementRepo,
		PostureRepo:           postureRepo,
		UserController:        userController,
		MeasurementController: measurementController,
		Websocket:             websocket,
		EventBus:              eventBus,
	}

	if err := app.validate(); err != nil {
		_ = app.Close()
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := map[string]bool{
		"websocket":             a.Websocket == nil,
		"eventBus":              a.EventBus == nil,
		"transactionService":    a.TransactionService == nil,
		"sessionService":        a.SessionService == nil,
		"userRepo":              a.UserRepo == nil,
		"measurementRepo":       a.MeasurementRepo == nil,
		"postureRepo":           a.PostureRepo == nil,
		"userController":        a.UserController == nil,
		"measurementController": a.MeasurementController == nil,
	}

	for name, isNil := range nilChecks {
		if isNil {
			return log.Error("nil check failed", "component", name)
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Database.SQL != nil {
		if dbErr := a.Database.Close(); dbErr != nil {
			err = dbErr
		}
	}

	return err
}
