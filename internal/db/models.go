package db

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// OnboardingComplete is the onboarding step at which a profile shows up in feeds.
const OnboardingComplete = 3

// User is a dating profile. Identity is owned by an external provider and
// mirrored through FirebaseUID; the numeric ID is what every other table
// references.
type User struct {
	ID                     uint64     `gorm:"primaryKey;autoIncrement" json:"user_id"`
	FirebaseUID            string     `gorm:"uniqueIndex;size:128;not null" json:"firebase_uid"`
	Email                  string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName               string     `gorm:"size:255;not null" json:"full_name"`
	DateOfBirth            *time.Time `json:"date_of_birth,omitempty"`
	Age                    *int       `gorm:"index:idx_users_feed,priority:3" json:"age,omitempty"`
	Horoscope              *string    `gorm:"size:32" json:"horoscope,omitempty"`
	Gender                 *string    `gorm:"size:32;index:idx_users_feed,priority:2" json:"gender,omitempty"`
	LocationPostcode       *string    `gorm:"size:16" json:"location_postcode,omitempty"`
	Latitude               *float64   `json:"latitude,omitempty"`
	Longitude              *float64   `json:"longitude,omitempty"`
	RelationshipPreference *string    `gorm:"size:32" json:"relationship_preference,omitempty"`
	LookingFor             *string    `gorm:"size:64" json:"looking_for,omitempty"`
	PreferredAgeMin        *int       `json:"preferred_age_min,omitempty"`
	PreferredAgeMax        *int       `json:"preferred_age_max,omitempty"`
	OnboardingStep         int        `gorm:"not null;default:0;index:idx_users_feed,priority:1" json:"onboarding_step"`
	IsActive               bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Photo is one of up to six profile pictures. ObjectKey addresses the image
// on the host so it can be deleted with the row.
type Photo struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"photo_id"`
	UserID      uint64    `gorm:"not null;uniqueIndex:idx_user_photo_order,priority:1" json:"user_id"`
	PhotoURL    string    `gorm:"size:512;not null" json:"photo_url"`
	ObjectKey   string    `gorm:"size:255;not null" json:"-"`
	UploadOrder int       `gorm:"not null;uniqueIndex:idx_user_photo_order,priority:2" json:"upload_order"`
	IsPrimary   bool      `gorm:"not null;default:false" json:"is_primary"`
	UploadedAt  time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (Photo) TableName() string { return "user_photos" }

// Interest tags a user with one of the fixed interest options. Slug is the
// normalized option and carries the per-user uniqueness.
type Interest struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"interest_id"`
	UserID       uint64    `gorm:"not null;uniqueIndex:idx_user_interest,priority:1" json:"user_id"`
	Slug         string    `gorm:"size:64;not null;uniqueIndex:idx_user_interest,priority:2" json:"-"`
	InterestName string    `gorm:"size:64;not null" json:"interest_name"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Interest) TableName() string { return "user_interests" }

// InterestOptions is the closed set of interests a user may pick from.
var InterestOptions = []string{"Music", "Fitness", "Travel", "Cooking", "Movies", "Art", "Fashion", "Gaming"}

// InterestSlug normalizes an interest name for comparison and storage.
func InterestSlug(name string) string { return slug.Make(name) }

// LookupInterest resolves free-form input to its canonical option name.
func LookupInterest(name string) (string, bool) {
	s := InterestSlug(name)
	if s == "" {
		return "", false
	}
	for _, opt := range InterestOptions {
		if InterestSlug(opt) == s {
			return opt, true
		}
	}
	return "", false
}

type SwipeType string

const (
	SwipeLike SwipeType = "LIKE"
	SwipePass SwipeType = "PASS"
)

// ParseSwipeType accepts LIKE, PASS and the legacy UNLIKE (stored as PASS),
// case-insensitively.
func ParseSwipeType(s string) (SwipeType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LIKE":
		return SwipeLike, true
	case "PASS", "UNLIKE":
		return SwipePass, true
	}
	return "", false
}

// Swipe records one directed decision. (SwiperUserID, SwipedUserID) is
// unique; the same index serves the reverse-like lookup.
type Swipe struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement"`
	SwiperUserID uint64    `gorm:"not null;uniqueIndex:idx_swipe_pair,priority:1"`
	SwipedUserID uint64    `gorm:"not null;uniqueIndex:idx_swipe_pair,priority:2;index"`
	SwipeType    SwipeType `gorm:"size:8;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// DailySwipeLimit is the quota bucket: one row per user per calendar day.
type DailySwipeLimit struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	UserID     uint64    `gorm:"not null;uniqueIndex:idx_user_swipe_date,priority:1"`
	SwipeDate  string    `gorm:"size:10;not null;uniqueIndex:idx_user_swipe_date,priority:2"`
	SwipeCount int       `gorm:"not null;default:0"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// Match is an unordered pair stored canonically as (min id, max id).
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"match_id"`
	User1ID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:1;check:chk_match_pair_order,user1_id < user2_id" json:"user1_id"`
	User2ID   uint64    `gorm:"not null;uniqueIndex:idx_match_pair,priority:2;index" json:"user2_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OtherUserID returns the member of the pair that is not userID.
func (m Match) OtherUserID(userID uint64) uint64 {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// CanonicalPair orders two ids the way matches are stored.
func CanonicalPair(a, b uint64) (uint64, uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

type NotificationType string

const (
	NotificationLike  NotificationType = "LIKE"
	NotificationMatch NotificationType = "MATCH"
)

// Notification is written by the swipe engine inside its transaction.
// IsRead belongs to the reader; DeliveredAt to the delivery dispatcher.
type Notification struct {
	ID               uint64           `gorm:"primaryKey;autoIncrement"`
	UserID           uint64           `gorm:"not null;index:idx_notification_user_created,priority:1"`
	RelatedUserID    uint64           `gorm:"not null"`
	NotificationType NotificationType `gorm:"size:16;not null"`
	Message          string           `gorm:"size:255;not null"`
	IsRead           bool             `gorm:"not null;default:false"`
	CreatedAt        time.Time        `gorm:"autoCreateTime;index:idx_notification_user_created,priority:2,sort:desc"`
	DeliveredAt      *time.Time       `gorm:"index"`
}

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&User{}, &Photo{}, &Interest{}, &Swipe{},
		&DailySwipeLimit{}, &Match{}, &Notification{},
	}
}
