package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/db"
	"github.com/oggyb/birdie/internal/utils/pagination"
)

// PendingLikers returns LIKE swipes on recipient that the recipient has not
// answered yet, newest first.
//
// Behavior:
//   - Only swipes where swiped = recipient and type = LIKE are considered.
//   - Excludes likers the recipient already swiped, either way; a LIKE back
//     is a match and a PASS closes the card.
//   - Excludes deactivated likers, so pages and CountPendingLikers agree.
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	repo.PendingLikers(ctx, 42, nil, 20) // first 20 unanswered likes for user 42
func (r *SwipeRepository) PendingLikers(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	cursor, err := pagination.Decode(pagination.Token(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("swipes s").
		Select("s.*").
		Where("s.swiped_user_id = ? AND s.swipe_type = ?", recipientID, db.SwipeLike).
		Where("NOT EXISTS (?)", r.answered(recipientID)).
		Where("EXISTS (?)", r.activeLiker()).
		Order("s.created_at DESC, s.id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.CreatedAt()
		query = query.Where(
			"(s.created_at < ? OR (s.created_at = ? AND s.id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var swipes []db.Swipe
	if err := query.Find(&swipes).Error; err != nil {
		return nil, nil, err
	}

	swipes, next := pagination.Trim(swipes, limit, func(s db.Swipe) pagination.Cursor {
		return pagination.At(s.ID, s.CreatedAt)
	})
	return swipes, next, nil
}

// CountPendingLikers returns how many likes on recipient are unanswered,
// over the same set PendingLikers pages through.
//
// Example:
//
//	repo.CountPendingLikers(ctx, 42) // -> 7
func (r *SwipeRepository) CountPendingLikers(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.swiped_user_id = ? AND s.swipe_type = ?", recipientID, db.SwipeLike).
		Where("NOT EXISTS (?)", r.answered(recipientID)).
		Where("EXISTS (?)", r.activeLiker()).
		Count(&count).Error
	return count, err
}

// answered matches a swipe from recipient back onto the liker of row s.
func (r *SwipeRepository) answered(recipientID uint64) *gorm.DB {
	return r.db.
		Table("swipes back").
		Select("1").
		Where("back.swiper_user_id = ? AND back.swiped_user_id = s.swiper_user_id", recipientID)
}

// activeLiker matches the still active author of row s.
func (r *SwipeRepository) activeLiker() *gorm.DB {
	return r.db.
		Table("users u").
		Select("1").
		Where("u.id = s.swiper_user_id AND u.is_active = ?", true)
}
