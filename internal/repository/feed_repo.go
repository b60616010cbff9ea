package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/db"
)

// FeedFilter narrows the candidate pool for one viewer.
type FeedFilter struct {
	ViewerID uint64
	// Gender keeps only candidates of this gender; empty means everyone.
	Gender string
	// MinAge/MaxAge apply only when both are set.
	MinAge, MaxAge *int
	Limit          int
}

// FeedRepository selects swipe candidates.
type FeedRepository struct {
	db *gorm.DB
}

// NewFeedRepository creates a new repository bound to the given DB connection.
func NewFeedRepository(database *gorm.DB) *FeedRepository {
	return &FeedRepository{db: database}
}

// Candidates returns users the viewer may swipe on next.
//
// Behavior:
//   - Only active, fully onboarded users other than the viewer.
//   - Excludes anyone the viewer already swiped, in either type.
//   - Applies gender and age filters from f.
//   - Ordered by id so paging through the feed is stable.
//
// Example:
//
//	repo.Candidates(ctx, FeedFilter{ViewerID: 1, Gender: "Male", Limit: 10})
func (r *FeedRepository) Candidates(ctx context.Context, f FeedFilter) ([]db.User, error) {
	swiped := r.db.
		Table("swipes s").
		Select("1").
		Where("s.swiper_user_id = ? AND s.swiped_user_id = users.id", f.ViewerID)

	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("users.id <> ? AND users.is_active = ? AND users.onboarding_step = ?",
			f.ViewerID, true, db.OnboardingComplete).
		Where("NOT EXISTS (?)", swiped).
		Order("users.id ASC").
		Limit(f.Limit)

	if f.Gender != "" {
		query = query.Where("users.gender = ?", f.Gender)
	}
	if f.MinAge != nil && f.MaxAge != nil {
		query = query.Where("users.age BETWEEN ? AND ?", *f.MinAge, *f.MaxAge)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
