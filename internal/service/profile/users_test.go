package profile_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/db/dbtest"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/service/profile"
)

func newServices(t *testing.T) (*profile.UserService, *profile.InterestService, *gorm.DB) {
	t.Helper()
	gdb := dbtest.Seeded(t)
	appCtx := app.New(gdb, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return profile.NewUserService(appCtx), profile.NewInterestService(appCtx), gdb
}

func ptr[T any](v T) *T { return &v }

func TestCreateUser(t *testing.T) {
	users, _, _ := newServices(t)
	ctx := context.Background()

	u, err := users.Create(ctx, profile.CreateUserInput{
		FirebaseUID: "fb-new",
		Email:       "new@test.com",
		FullName:    "  Dana  ",
		Age:         ptr(30),
		Gender:      ptr("Non-binary"),
		DateOfBirth: ptr("1995-04-01"),
	})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Dana", u.FullName)
	assert.True(t, u.IsActive)
	require.NotNil(t, u.DateOfBirth)
	assert.Equal(t, 1995, u.DateOfBirth.Year())

	got, err := users.Get(ctx, "fb-new")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestCreateUser_Validation(t *testing.T) {
	users, _, _ := newServices(t)
	ctx := context.Background()

	valid := func() profile.CreateUserInput {
		return profile.CreateUserInput{FirebaseUID: "fb-x", Email: "x@test.com", FullName: "Xavier"}
	}

	cases := []struct {
		name  string
		mod   func(*profile.CreateUserInput)
		kind  svcErr.Kind
		error string
	}{
		{"missing uid", func(in *profile.CreateUserInput) { in.FirebaseUID = "" }, svcErr.KindInvalidInput, "Firebase UID is required"},
		{"missing email", func(in *profile.CreateUserInput) { in.Email = " " }, svcErr.KindInvalidInput, "Email is required"},
		{"bad email", func(in *profile.CreateUserInput) { in.Email = "nope" }, svcErr.KindInvalidInput, "Must be a valid email"},
		{"short name", func(in *profile.CreateUserInput) { in.FullName = "X" }, svcErr.KindInvalidInput, "Full name must be between 2 and 255 characters"},
		{"too young", func(in *profile.CreateUserInput) { in.Age = ptr(17) }, svcErr.KindInvalidInput, "Age must be between 18 and 120"},
		{"too old", func(in *profile.CreateUserInput) { in.Age = ptr(121) }, svcErr.KindInvalidInput, "Age must be between 18 and 120"},
		{"bad gender", func(in *profile.CreateUserInput) { in.Gender = ptr("male") }, svcErr.KindInvalidInput, "Invalid gender value"},
		{"bad dob", func(in *profile.CreateUserInput) { in.DateOfBirth = ptr("01/04/1995") }, svcErr.KindInvalidInput, "date_of_birth must be YYYY-MM-DD"},
		{"taken uid", func(in *profile.CreateUserInput) { in.FirebaseUID = "uid-alice" }, svcErr.KindAlreadyExists, "User with this Firebase UID or email already exists"},
		{"taken email", func(in *profile.CreateUserInput) { in.Email = "bob@test.com" }, svcErr.KindAlreadyExists, "User with this Firebase UID or email already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.mod(&in)
			_, err := users.Create(ctx, in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, svcErr.KindOf(err))
			assert.Equal(t, tc.error, svcErr.PublicMessage(err))
		})
	}
}

func TestUpdateUser(t *testing.T) {
	users, _, _ := newServices(t)
	ctx := context.Background()

	u, err := users.Update(ctx, "uid-alice", map[string]any{
		"full_name":         "Alice Smith",
		"age":               float64(29),
		"preferred_age_min": float64(25),
		"horoscope":         nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", u.FullName)
	require.NotNil(t, u.Age)
	assert.Equal(t, 29, *u.Age)
	require.NotNil(t, u.PreferredAgeMin)
	assert.Equal(t, 25, *u.PreferredAgeMin)
	assert.Nil(t, u.Horoscope)

	// same values again is still a success
	_, err = users.Update(ctx, "uid-alice", map[string]any{"full_name": "Alice Smith"})
	require.NoError(t, err)
}

func TestUpdateUser_Rejections(t *testing.T) {
	users, _, _ := newServices(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		uid     string
		updates map[string]any
		kind    svcErr.Kind
		message string
	}{
		{"firebase uid", "uid-alice", map[string]any{"firebase_uid": "x"}, svcErr.KindInvalidInput, "Cannot update Firebase UID"},
		{"user id", "uid-alice", map[string]any{"user_id": 9}, svcErr.KindInvalidInput, "Cannot update user ID"},
		{"created at", "uid-alice", map[string]any{"created_at": "now"}, svcErr.KindInvalidInput, "Cannot update created_at"},
		{"empty", "uid-alice", map[string]any{}, svcErr.KindInvalidInput, "No valid fields to update"},
		{"unknown", "uid-alice", map[string]any{"password": "x"}, svcErr.KindInvalidInput, "Unknown field: password"},
		{"fractional age", "uid-alice", map[string]any{"age": 30.5}, svcErr.KindInvalidInput, "age must be an integer"},
		{"bad gender", "uid-alice", map[string]any{"gender": "robot"}, svcErr.KindInvalidInput, "Invalid gender value"},
		{"missing user", "uid-nobody", map[string]any{"full_name": "Nobody"}, svcErr.KindNotFound, "User not found"},
		{"taken email", "uid-alice", map[string]any{"email": "bob@test.com"}, svcErr.KindAlreadyExists, "Record already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := users.Update(ctx, tc.uid, tc.updates)
			require.Error(t, err)
			assert.Equal(t, tc.kind, svcErr.KindOf(err))
			assert.Equal(t, tc.message, svcErr.PublicMessage(err))
		})
	}
}

func TestDeleteUser_IsSoft(t *testing.T) {
	users, _, _ := newServices(t)
	ctx := context.Background()

	u, err := users.Delete(ctx, "uid-bob")
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	stored, err := users.Get(ctx, "uid-bob")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	active, err := users.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	_, err = users.Delete(ctx, "uid-nobody")
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}

func TestListUsers_LimitOffset(t *testing.T) {
	users, _, _ := newServices(t)
	ctx := context.Background()

	page, err := users.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := users.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.NotContains(t, []uint64{page[0].ID, page[1].ID}, rest[0].ID)
}

func TestHealth(t *testing.T) {
	users, _, _ := newServices(t)
	assert.NoError(t, users.Health(context.Background()))
}
