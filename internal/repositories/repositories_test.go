package repositories

import (
	"bptracker/config"
	"bptracker/internal/database"
	. "bptracker/internal/models"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) database.DB {
	t.Helper()
	db, err := database.New(config.Config{
		DatabaseDriver: "sqlite",
		DatabaseDbPath: filepath.Join(t.TempDir(), "repositories.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func intPtr(i int) *int {
	return &i
}

func stringPtr(s string) *string {
	return &s
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 8, 0, 0, 0, time.UTC)
}

func seedMeasurement(t *testing.T, repo MeasurementRepository, userID string, systolic, diastolic int, date time.Time) Measurement {
	t.Helper()
	measurement := Measurement{
		UserID:            userID,
		Systolic:          systolic,
		Diastolic:         diastolic,
		DateOfMeasurement: date,
		CreatedAt:         time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), &measurement))
	require.NotZero(t, measurement.ID)
	return measurement
}

func TestCategoryCondition_AgreesWithCategorize(t *testing.T) {
	db := newTestDB(t)
	repo := NewMeasurement(db)
	ctx := context.Background()

	expected := map[Category]int64{}
	var batch []Measurement
	for systolic := 90; systolic <= 200; systolic += 5 {
		for diastolic := 55; diastolic <= 130; diastolic += 5 {
			batch = append(batch, Measurement{
				UserID:            "grid",
				Systolic:          systolic,
				Diastolic:         diastolic,
				DateOfMeasurement: day(1),
				CreatedAt:         day(1),
			})
			expected[Categorize(systolic, diastolic)]++
		}
	}
	// values sitting exactly on every threshold
	for _, pair := range [][2]int{{120, 79}, {119, 79}, {130, 79}, {129, 80}, {140, 89}, {139, 90}, {180, 119}, {179, 120}} {
		batch = append(batch, Measurement{
			UserID: "grid", Systolic: pair[0], Diastolic: pair[1],
			DateOfMeasurement: day(1), CreatedAt: day(1),
		})
		expected[Categorize(pair[0], pair[1])]++
	}
	require.NoError(t, db.SQL.CreateInBatches(batch, 100).Error)

	var total int64
	for _, category := range Categories {
		_, count, err := repo.List(ctx, "grid", MeasurementFilter{Category: &category})
		require.NoError(t, err)
		assert.Equal(t, expected[category], count, "category %s", category)
		total += count
	}
	assert.Equal(t, int64(len(batch)), total, "categories partition the readings")

	unknown := Category("Stage 3")
	_, count, err := repo.List(ctx, "grid", MeasurementFilter{Category: &unknown})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMeasurementRepository_ListPaginationAndSort(t *testing.T) {
	repo := NewMeasurement(newTestDB(t))
	ctx := context.Background()

	for i := 1; i <= 25; i++ {
		seedMeasurement(t, repo, "u1", 100+i, 70, day(i))
	}

	items, total, err := repo.List(ctx, "u1", MeasurementFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(25), total)
	require.Len(t, items, 10)
	assert.Equal(t, day(25), items[0].DateOfMeasurement.UTC(), "newest first by default")

	items, _, err = repo.List(ctx, "u1", MeasurementFilter{Page: 3})
	require.NoError(t, err)
	assert.Len(t, items, 5)

	items, total, err = repo.List(ctx, "u1", MeasurementFilter{Page: 4})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, int64(25), total)

	asc := false
	items, _, err = repo.List(ctx, "u1", MeasurementFilter{SortBy: SortBySystolic, Desc: &asc, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, []int{101, 102, 103}, []int{items[0].Systolic, items[1].Systolic, items[2].Systolic})
}

func TestMeasurementRepository_FiltersAreConjunctive(t *testing.T) {
	repo := NewMeasurement(newTestDB(t))
	ctx := context.Background()

	seedMeasurement(t, repo, "u1", 110, 70, day(1))
	seedMeasurement(t, repo, "u1", 135, 85, day(2))
	seedMeasurement(t, repo, "u1", 150, 95, day(3))
	seedMeasurement(t, repo, "u1", 185, 100, day(4))

	from, to := day(2), day(4)
	_, byDate, err := repo.List(ctx, "u1", MeasurementFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, int64(3), byDate)

	_, bySys, err := repo.List(ctx, "u1", MeasurementFilter{MinSys: intPtr(130), MaxSys: intPtr(160)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), bySys)

	stage2 := CategoryStage2
	_, combined, err := repo.List(ctx, "u1", MeasurementFilter{
		From: &from, To: &to, MinSys: intPtr(130), MaxSys: intPtr(160), Category: &stage2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), combined)

	_, byDia, err := repo.List(ctx, "u1", MeasurementFilter{MinDia: intPtr(90), MaxDia: intPtr(99)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), byDia)
}

func TestMeasurementRepository_UpdateAndSoftDelete(t *testing.T) {
	repo := NewMeasurement(newTestDB(t))
	ctx := context.Background()

	created := seedMeasurement(t, repo, "u1", 120, 80, day(1))
	editedAt := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	ok, err := repo.Update(ctx, "u2", created.ID, MeasurementInput{Systolic: 1, Diastolic: 1, DateOfMeasurement: day(1)}, editedAt)
	require.NoError(t, err)
	assert.False(t, ok, "other owners cannot update")

	ok, err = repo.Update(ctx, "u1", created.ID, MeasurementInput{
		Systolic:          125,
		Diastolic:         75,
		DateOfMeasurement: day(2),
		Pulse:             intPtr(64),
		Notes:             stringPtr("after walk"),
		PostureID:         intPtr(2),
	}, editedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	stored, err := repo.GetByID(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, 125, stored.Systolic)
	assert.Equal(t, "after walk", *stored.Notes)
	require.NotNil(t, stored.Posture)
	assert.Equal(t, "Standing", stored.Posture.Name)
	require.NotNil(t, stored.UpdatedAt)
	assert.True(t, editedAt.Equal(*stored.UpdatedAt))

	ok, err = repo.SoftDelete(ctx, "u2", created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.SoftDelete(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.SoftDelete(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.False(t, ok, "already deleted")

	_, err = repo.GetByID(ctx, "u1", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMeasurementRepository_Readings(t *testing.T) {
	repo := NewMeasurement(newTestDB(t))
	ctx := context.Background()

	seedMeasurement(t, repo, "u1", 130, 85, day(3))
	seedMeasurement(t, repo, "u1", 110, 70, day(1))
	seedMeasurement(t, repo, "u1", 120, 75, day(2))
	seedMeasurement(t, repo, "u2", 200, 130, day(2))

	points, err := repo.Readings(ctx, "u1", nil, nil)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 110, points[0].Systolic)
	assert.Equal(t, 120, points[1].Systolic)
	assert.Equal(t, 130, points[2].Systolic)

	from := day(2)
	points, err = repo.Readings(ctx, "u1", &from, nil)
	require.NoError(t, err)
	assert.Len(t, points, 2)
}

func TestPostureRepository(t *testing.T) {
	repo := NewPosture(newTestDB(t))
	ctx := context.Background()

	postures, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, postures, 3)
	assert.Equal(t, "Lying", postures[0].Name)
	assert.Equal(t, "Sitting", postures[1].Name)
	assert.Equal(t, "Standing", postures[2].Name)

	exists, err := repo.Exists(ctx, 2)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.EnsureDefaults(ctx))
	postures, err = repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, postures, 3)
}

func TestUserRepository(t *testing.T) {
	repo := New(newTestDB(t))
	ctx := context.Background()

	user := &User{Login: "ada", Password: "password", DisplayName: "Ada Lovelace"}
	require.NoError(t, repo.Create(ctx, user))
	assert.NotEmpty(t, user.ID)

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", byID.Login)

	byLogin, err := repo.GetByLogin(ctx, "ada")
	require.NoError(t, err)
	assert.True(t, byLogin.CheckPassword("password"))

	_, err = repo.GetByLogin(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, &User{Login: "ada", Password: "other"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey, "login is unique")
}
