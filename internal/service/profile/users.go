package profile

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/db"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
	dateLayout       = "2006-01-02"
)

var genders = []string{"Male", "Female", "Non-binary", "Other"}

// CreateUserInput is the body of a profile registration.
type CreateUserInput struct {
	FirebaseUID            string   `json:"firebase_uid"`
	Email                  string   `json:"email"`
	FullName               string   `json:"full_name"`
	DateOfBirth            *string  `json:"date_of_birth"`
	Age                    *int     `json:"age"`
	Horoscope              *string  `json:"horoscope"`
	Gender                 *string  `json:"gender"`
	LocationPostcode       *string  `json:"location_postcode"`
	Latitude               *float64 `json:"latitude"`
	Longitude              *float64 `json:"longitude"`
	RelationshipPreference *string  `json:"relationship_preference"`
	LookingFor             *string  `json:"looking_for"`
	PreferredAgeMin        *int     `json:"preferred_age_min"`
	PreferredAgeMax        *int     `json:"preferred_age_max"`
}

// UserService manages dating profiles.
type UserService struct {
	appCtx *app.AppContext
	users  *repository.UserRepository
}

// NewUserService creates a new UserService instance.
func NewUserService(appCtx *app.AppContext) *UserService {
	return &UserService{
		appCtx: appCtx,
		users:  repository.NewUserRepository(appCtx.DB),
	}
}

// Create registers a profile.
//
// Behavior:
//   - firebase_uid, email and full_name are required; full_name is trimmed
//     and must be 2 to 255 characters.
//   - age, when present, is 18..120; gender is Male, Female, Non-binary or Other.
//   - A taken firebase_uid or email is AlreadyExists.
//
// Example:
//
//	u, err := svc.Create(ctx, CreateUserInput{FirebaseUID: "fb-1", Email: "a@b.co", FullName: "Alice"})
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*db.User, error) {
	s.appCtx.Logger.Debug("CreateUser called", "firebase_uid", in.FirebaseUID)

	in.FirebaseUID = strings.TrimSpace(in.FirebaseUID)
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)

	switch {
	case in.FirebaseUID == "":
		return nil, svcErr.InvalidInput("Firebase UID is required")
	case in.Email == "":
		return nil, svcErr.InvalidInput("Email is required")
	case in.FullName == "":
		return nil, svcErr.InvalidInput("Full name is required")
	}
	if err := validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := validateFullName(in.FullName); err != nil {
		return nil, err
	}
	if err := validateAge(in.Age); err != nil {
		return nil, err
	}
	if err := validateGender(in.Gender); err != nil {
		return nil, err
	}
	dob, err := parseDate(in.DateOfBirth)
	if err != nil {
		return nil, err
	}

	taken, err := s.users.ExistsByFirebaseUIDOrEmail(ctx, in.FirebaseUID, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, svcErr.AlreadyExists("User with this Firebase UID or email already exists")
	}

	u := &db.User{
		FirebaseUID:            in.FirebaseUID,
		Email:                  in.Email,
		FullName:               in.FullName,
		DateOfBirth:            dob,
		Age:                    in.Age,
		Horoscope:              in.Horoscope,
		Gender:                 in.Gender,
		LocationPostcode:       in.LocationPostcode,
		Latitude:               in.Latitude,
		Longitude:              in.Longitude,
		RelationshipPreference: in.RelationshipPreference,
		LookingFor:             in.LookingFor,
		PreferredAgeMin:        in.PreferredAgeMin,
		PreferredAgeMax:        in.PreferredAgeMax,
		IsActive:               true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, svcErr.AlreadyExists("User with this Firebase UID or email already exists")
		}
		return nil, err
	}
	return u, nil
}

// Get returns the profile for a firebase uid.
func (s *UserService) Get(ctx context.Context, firebaseUID string) (*db.User, error) {
	u, err := s.users.GetByFirebaseUID(ctx, firebaseUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("User not found")
	}
	return u, err
}

// updatable lists the columns an update may touch.
var updatable = map[string]struct{}{
	"email": {}, "full_name": {}, "date_of_birth": {}, "age": {}, "horoscope": {},
	"gender": {}, "location_postcode": {}, "latitude": {}, "longitude": {},
	"relationship_preference": {}, "looking_for": {}, "preferred_age_min": {},
	"preferred_age_max": {}, "onboarding_step": {},
}

var immutable = map[string]string{
	"firebase_uid": "Cannot update Firebase UID",
	"user_id":      "Cannot update user ID",
	"created_at":   "Cannot update created_at",
}

// Update applies a partial profile update and returns the stored profile.
//
// Behavior:
//   - firebase_uid, user_id and created_at cannot be changed.
//   - Unknown keys are InvalidInput; so is an update with no keys at all.
//   - age, gender, email and full_name are validated like on Create.
//
// Example:
//
//	u, err := svc.Update(ctx, "fb-1", map[string]any{"onboarding_step": 3})
func (s *UserService) Update(ctx context.Context, firebaseUID string, updates map[string]any) (*db.User, error) {
	s.appCtx.Logger.Debug("UpdateUser called", "firebase_uid", firebaseUID, "fields", len(updates))

	cols := make(map[string]any, len(updates))
	for key, val := range updates {
		if msg, ok := immutable[key]; ok {
			return nil, svcErr.InvalidInput(msg)
		}
		if _, ok := updatable[key]; !ok {
			return nil, svcErr.InvalidInput(fmt.Sprintf("Unknown field: %s", key))
		}
		v, err := normalizeField(key, val)
		if err != nil {
			return nil, err
		}
		cols[key] = v
	}
	if len(cols) == 0 {
		return nil, svcErr.InvalidInput("No valid fields to update")
	}

	if _, err := s.users.UpdateByFirebaseUID(ctx, firebaseUID, cols); err != nil {
		return nil, err
	}
	// a no-op update matches zero rows on MySQL, so existence comes from the re-read
	return s.Get(ctx, firebaseUID)
}

// Delete deactivates a profile. The row stays so history keeps its references.
func (s *UserService) Delete(ctx context.Context, firebaseUID string) (*db.User, error) {
	u, err := s.Get(ctx, firebaseUID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.Deactivate(ctx, firebaseUID); err != nil {
		return nil, err
	}
	u.IsActive = false
	return u, nil
}

// List pages through active profiles, newest first.
func (s *UserService) List(ctx context.Context, limit, offset int) ([]db.User, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.ListActive(ctx, limit, offset)
}

// Health checks the database connection.
func (s *UserService) Health(ctx context.Context) error {
	if err := s.users.Ping(ctx); err != nil {
		return svcErr.Wrap(svcErr.KindTransient, "database unavailable", err)
	}
	return nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return svcErr.InvalidInput("Must be a valid email")
	}
	return nil
}

func validateFullName(name string) error {
	if n := len([]rune(name)); n < 2 || n > 255 {
		return svcErr.InvalidInput("Full name must be between 2 and 255 characters")
	}
	return nil
}

func validateAge(age *int) error {
	if age != nil && (*age < 18 || *age > 120) {
		return svcErr.InvalidInput("Age must be between 18 and 120")
	}
	return nil
}

func validateGender(g *string) error {
	if g == nil {
		return nil
	}
	for _, ok := range genders {
		if *g == ok {
			return nil
		}
	}
	return svcErr.InvalidInput("Invalid gender value")
}

func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, svcErr.InvalidInput("date_of_birth must be YYYY-MM-DD")
	}
	return &t, nil
}

// normalizeField checks one update value and converts JSON numbers to the
// column's Go type. nil clears nullable columns.
func normalizeField(key string, val any) (any, error) {
	switch key {
	case "email", "full_name":
		s, ok := val.(string)
		if !ok {
			return nil, svcErr.InvalidInput(fmt.Sprintf("%s must be a string", key))
		}
		s = strings.TrimSpace(s)
		if key == "email" {
			return s, validateEmail(s)
		}
		return s, validateFullName(s)

	case "age", "preferred_age_min", "preferred_age_max", "onboarding_step":
		if val == nil && key != "onboarding_step" {
			return nil, nil
		}
		n, ok := asInt(val)
		if !ok {
			return nil, svcErr.InvalidInput(fmt.Sprintf("%s must be an integer", key))
		}
		if key == "age" {
			return n, validateAge(&n)
		}
		return n, nil

	case "latitude", "longitude":
		if val == nil {
			return nil, nil
		}
		f, ok := val.(float64)
		if !ok {
			return nil, svcErr.InvalidInput(fmt.Sprintf("%s must be a number", key))
		}
		return f, nil

	case "date_of_birth":
		if val == nil {
			return nil, nil
		}
		s, ok := val.(string)
		if !ok {
			return nil, svcErr.InvalidInput("date_of_birth must be YYYY-MM-DD")
		}
		t, err := parseDate(&s)
		if err != nil || t == nil {
			return nil, err
		}
		return *t, nil
	}

	// remaining columns are nullable strings
	if val == nil {
		return nil, nil
	}
	s, ok := val.(string)
	if !ok {
		return nil, svcErr.InvalidInput(fmt.Sprintf("%s must be a string", key))
	}
	if key == "gender" {
		return s, validateGender(&s)
	}
	return s, nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
