package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/birdie/internal/db"
)

// InterestRepository stores per-user interest tags.
type InterestRepository struct {
	db *gorm.DB
}

// NewInterestRepository creates a new repository bound to the given DB connection.
func NewInterestRepository(database *gorm.DB) *InterestRepository {
	return &InterestRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *InterestRepository) WithTx(tx *gorm.DB) *InterestRepository {
	return &InterestRepository{db: tx}
}

// ListForUser returns a user's interests ordered by name.
func (r *InterestRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Interest, error) {
	var rows []db.Interest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("interest_name ASC").
		Find(&rows).Error
	return rows, err
}

// ListForUsers returns interests for many users at once, grouped by user id.
func (r *InterestRepository) ListForUsers(ctx context.Context, userIDs []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []db.Interest
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC, interest_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.InterestName)
	}
	return out, nil
}

// Add tags the user with name. Returns false, nil when the tag already exists.
func (r *InterestRepository) Add(ctx context.Context, userID uint64, name string) (*db.Interest, bool, error) {
	row := db.Interest{UserID: userID, Slug: db.InterestSlug(name), InterestName: name}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "slug"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	return &row, res.RowsAffected > 0, nil
}

// Remove deletes one tag and reports whether it existed.
func (r *InterestRepository) Remove(ctx context.Context, userID uint64, name string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND slug = ?", userID, db.InterestSlug(name)).
		Delete(&db.Interest{})
	return res.RowsAffected > 0, res.Error
}

// RemoveAll deletes every tag of the user and returns how many went.
func (r *InterestRepository) RemoveAll(ctx context.Context, userID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.Interest{})
	return res.RowsAffected, res.Error
}
