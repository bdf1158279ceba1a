package seed

import (
	"bptracker/config"
	"bptracker/internal/database"
	"bptracker/internal/logger"
	. "bptracker/internal/models"
	"bptracker/internal/repositories"
	"bptracker/internal/services"
	"context"
	"errors"
	"time"
)

type sample struct {
	systolic  int
	diastolic int
	pulse     int
}

// Twenty readings spanning every category, newest first.
var samples = []sample{
	{110, 70, 68},
	{115, 72, 70},
	{125, 75, 72},
	{128, 78, 66},
	{132, 82, 73},
	{135, 85, 77},
	{145, 95, 80},
	{150, 92, 84},
	{185, 120, 88},
	{190, 110, 91},
	{112, 68, 65},
	{118, 76, 71},
	{130, 79, 74},
	{140, 85, 78},
	{182, 121, 90},
	{124, 79, 69},
	{134, 83, 75},
	{146, 96, 82},
	{111, 69, 67},
	{188, 122, 93},
}

var notes = []string{"Morning reading", "Evening reading", "Post-walk", "Before meal", "After coffee"}

func stringPtr(s string) *string {
	return &s
}

func intPtr(i int) *int {
	return &i
}

// Seed creates the development user and their sample readings. It does
// nothing for a user that already has readings.
func Seed(ctx context.Context, db database.DB, config config.Config, log logger.Logger) error {
	log = log.Function("seed")
	log.Info("Seeding development data")

	userRepo := repositories.New(db)
	measurementRepo := repositories.NewMeasurement(db)
	transactionService := services.NewTransactionService(db)

	login := NormalizeLogin(config.SeedUserLogin)

	return transactionService.Execute(ctx, func(txCtx context.Context) error {
		user, err := userRepo.GetByLogin(txCtx, login)
		if errors.Is(err, ErrNotFound) {
			user = &User{
				Login:       login,
				Email:       stringPtr(login),
				DisplayName: "Test User",
				Password:    config.SeedUserPassword,
			}
			log.Info("Seeding user", "login", user.Login)
			if err := userRepo.Create(txCtx, user); err != nil {
				return log.Err("failed to create seed user", err, "login", user.Login)
			}
		} else if err != nil {
			return log.Err("failed to look up seed user", err, "login", login)
		}

		_, total, err := measurementRepo.List(txCtx, user.ID, MeasurementFilter{PageSize: 1})
		if err != nil {
			return log.Err("failed to count seed readings", err, "userID", user.ID)
		}
		if total > 0 {
			log.Info("Seed user already has readings", "userID", user.ID, "count", total)
			return nil
		}

		now := time.Now().UTC()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		for i, s := range samples {
			measurement := &Measurement{
				UserID:            user.ID,
				Systolic:          s.systolic,
				Diastolic:         s.diastolic,
				DateOfMeasurement: today.AddDate(0, 0, -i),
				Pulse:             intPtr(s.pulse),
				Notes:             stringPtr(notes[i%len(notes)]),
				PostureID:         intPtr(DefaultPostures[i%len(DefaultPostures)].ID),
				CreatedAt:         now.Add(-time.Duration(i*5) * time.Minute),
			}
			if err := measurementRepo.Create(txCtx, measurement); err != nil {
				return log.Err("failed to create seed reading", err, "index", i)
			}
		}

		log.Info("Seeded readings", "userID", user.ID, "count", len(samples))
		return nil
	})
}
