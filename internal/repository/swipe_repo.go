package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/birdie/internal/db"
)

// SwipeRepository owns swipe history and the per-day quota buckets.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *SwipeRepository) WithTx(tx *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: tx}
}

// LockDailyCount returns the swipe count of user for day, holding the quota
// row lock until the transaction ends.
//
// Behavior:
//   - Inserts a zero row first if none exists (ON CONFLICT DO NOTHING), so
//     there is always a row to lock, even for the first swipe of the day.
//   - Two concurrent first swipes both land on the same row; the second waits
//     on the lock and then reads the first one's committed count.
//
// Example:
//
//	used, err := repo.WithTx(tx).LockDailyCount(ctx, 42, "2026-10-14") // -> 0
func (r *SwipeRepository) LockDailyCount(ctx context.Context, userID uint64, day string) (int, error) {
	seed := db.DailySwipeLimit{UserID: userID, SwipeDate: day}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "swipe_date"}},
			DoNothing: true,
		}).
		Create(&seed).Error; err != nil {
		return 0, err
	}

	var bucket db.DailySwipeLimit
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND swipe_date = ?", userID, day).
		First(&bucket).Error
	if err != nil {
		return 0, err
	}
	return bucket.SwipeCount, nil
}

// IncrementDailyCount adds one to the user's bucket for day.
// Call it only while LockDailyCount's lock is held.
func (r *SwipeRepository) IncrementDailyCount(ctx context.Context, userID uint64, day string) error {
	return r.db.WithContext(ctx).
		Model(&db.DailySwipeLimit{}).
		Where("user_id = ? AND swipe_date = ?", userID, day).
		Update("swipe_count", gorm.Expr("swipe_count + ?", 1)).Error
}

// DailyCount reads a bucket without locking. Absent rows count as zero.
func (r *SwipeRepository) DailyCount(ctx context.Context, userID uint64, day string) (int, error) {
	var counts []int
	err := r.db.WithContext(ctx).
		Model(&db.DailySwipeLimit{}).
		Where("user_id = ? AND swipe_date = ?", userID, day).
		Limit(1).
		Pluck("swipe_count", &counts).Error
	if err != nil || len(counts) == 0 {
		return 0, err
	}
	return counts[0], nil
}

// InsertSwipe records swiper → swiped once.
//
// Behavior:
//   - Returns true when a new row was written.
//   - Returns false, nil when the pair was already swiped; the stored type is
//     left untouched (first decision wins).
//
// Example:
//
//	created, err := repo.InsertSwipe(ctx, 1, 2, db.SwipeLike)
func (r *SwipeRepository) InsertSwipe(ctx context.Context, swiperID, swipedID uint64, t db.SwipeType) (bool, error) {
	swipe := db.Swipe{
		SwiperUserID: swiperID,
		SwipedUserID: swipedID,
		SwipeType:    t,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "swiper_user_id"}, {Name: "swiped_user_id"}},
			DoNothing: true,
		}).
		Create(&swipe)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// HasLiked checks whether actor has a LIKE on recipient.
//
// Behavior:
//   - Returns true if a swipe row exists where swiper = actor,
//     swiped = recipient and type = LIKE.
//   - Used for the mutual like check while the pair is locked.
//
// Example:
//
//	repo.HasLiked(ctx, 2, 1) // -> true if user 2 liked user 1
func (r *SwipeRepository) HasLiked(ctx context.Context, actorID, recipientID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_user_id = ? AND swiped_user_id = ? AND swipe_type = ?", actorID, recipientID, db.SwipeLike).
		Count(&count).Error
	return count > 0, err
}

// Get returns the swipe swiper → swiped or gorm.ErrRecordNotFound.
func (r *SwipeRepository) Get(ctx context.Context, swiperID, swipedID uint64) (*db.Swipe, error) {
	var s db.Swipe
	err := r.db.WithContext(ctx).
		Where("swiper_user_id = ? AND swiped_user_id = ?", swiperID, swipedID).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}
