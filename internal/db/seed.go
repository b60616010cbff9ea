package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-faker/faker/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var seedTables = []string{
	"notifications", "matches", "daily_swipe_limits", "swipes",
	"user_interests", "user_photos", "users",
}

// SeedTestData resets the database and populates it with demo profiles.
//
// Behavior:
//  1. Clears every table, children first.
//  2. Creates 20 onboarded users (10 male, 10 female) with faker names and emails,
//     straight preferences and a 21..45 age window.
//  3. Gives each user a primary placeholder photo and two interests.
//  4. Adds a handful of one-way likes so feeds and notifications aren't empty.
//
// Compatible with Postgres, MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if err := clearTables(db); err != nil {
		return err
	}
	log.Println("Cleared existing data")

	interests := InterestOptions
	users := make([]User, 0, 20)
	for i := 1; i <= 20; i++ {
		gender := "Male"
		if i > 10 {
			gender = "Female"
		}
		age := 21 + r.Intn(25)
		dob := time.Now().AddDate(-age, 0, -r.Intn(300))
		pref := "Straight"
		minAge, maxAge := 21, 45

		u := User{
			FirebaseUID:            faker.UUIDHyphenated(),
			Email:                  fmt.Sprintf("seed%d.%s", i, faker.Email()),
			FullName:               faker.Name(),
			DateOfBirth:            &dob,
			Age:                    &age,
			Gender:                 &gender,
			RelationshipPreference: &pref,
			PreferredAgeMin:        &minAge,
			PreferredAgeMax:        &maxAge,
			OnboardingStep:         OnboardingComplete,
			IsActive:               true,
		}
		if err := db.Create(&u).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
		users = append(users, u)

		photo := Photo{
			UserID:      u.ID,
			PhotoURL:    fmt.Sprintf("https://picsum.photos/seed/birdie-%d/600/800", u.ID),
			ObjectKey:   fmt.Sprintf("seed/%d.jpg", u.ID),
			UploadOrder: 1,
			IsPrimary:   true,
		}
		if err := db.Create(&photo).Error; err != nil {
			return fmt.Errorf("failed to seed photo: %w", err)
		}

		for _, j := range r.Perm(len(interests))[:2] {
			tag := Interest{UserID: u.ID, Slug: InterestSlug(interests[j]), InterestName: interests[j]}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&tag).Error; err != nil {
				return fmt.Errorf("failed to seed interest: %w", err)
			}
		}
	}
	log.Printf("Seeded %d users.", len(users))

	// one-way likes from women to men; the feed still has plenty left
	likes := 0
	for _, actor := range users[10:] {
		target := users[r.Intn(10)]
		s := Swipe{SwiperUserID: actor.ID, SwipedUserID: target.ID, SwipeType: SwipeLike}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&s).Error; err != nil {
			return fmt.Errorf("failed to seed swipe: %w", err)
		}
		n := Notification{
			UserID:           target.ID,
			RelatedUserID:    actor.ID,
			NotificationType: NotificationLike,
			Message:          fmt.Sprintf("%s liked you!", actor.FullName),
		}
		if err := db.Create(&n).Error; err != nil {
			return fmt.Errorf("failed to seed notification: %w", err)
		}
		likes++
	}
	log.Printf("Seeded %d likes.", likes)

	return nil
}

// SeedMinimalTestData creates three onboarded users with fixed ids:
// 1 Alice (Female, Straight), 2 Bob (Male, Straight), 3 Cara (Female, Straight).
func SeedMinimalTestData(db *gorm.DB) error {
	if err := clearTables(db); err != nil {
		return err
	}

	female, male, straight := "Female", "Male", "Straight"
	a, b, c := 28, 31, 26
	users := []User{
		{ID: 1, FirebaseUID: "uid-alice", Email: "alice@test.com", FullName: "Alice", Gender: &female, Age: &a, RelationshipPreference: &straight, OnboardingStep: OnboardingComplete, IsActive: true},
		{ID: 2, FirebaseUID: "uid-bob", Email: "bob@test.com", FullName: "Bob", Gender: &male, Age: &b, RelationshipPreference: &straight, OnboardingStep: OnboardingComplete, IsActive: true},
		{ID: 3, FirebaseUID: "uid-cara", Email: "cara@test.com", FullName: "Cara", Gender: &female, Age: &c, RelationshipPreference: &straight, OnboardingStep: OnboardingComplete, IsActive: true},
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}
	// explicit ids do not advance the postgres sequence
	if db.Dialector.Name() == "postgres" {
		return db.Exec("SELECT setval('users_id_seq', (SELECT MAX(id) FROM users))").Error
	}
	return nil
}

func clearTables(db *gorm.DB) error {
	for _, table := range seedTables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range seedTables {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "postgres":
		for _, table := range seedTables {
			db.Exec("ALTER SEQUENCE IF EXISTS " + table + "_id_seq RESTART WITH 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}
	return nil
}
