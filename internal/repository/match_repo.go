package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/birdie/internal/db"
)

// MatchRepository is the match ledger. Pairs are always stored as
// (min id, max id) whatever order the caller passes.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *MatchRepository) WithTx(tx *gorm.DB) *MatchRepository {
	return &MatchRepository{db: tx}
}

// CreateIfAbsent materializes the match for a and b and returns it.
//
// Behavior:
//   - Canonicalizes the pair before writing.
//   - INSERT ... ON CONFLICT DO NOTHING on the pair index; when the row
//     already existed the stored one is read back, so two racing callers get
//     the same match id.
//
// Example:
//
//	m, err := repo.CreateIfAbsent(ctx, 7, 3) // m.User1ID == 3, m.User2ID == 7
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, a, b uint64) (*db.Match, error) {
	lo, hi := db.CanonicalPair(a, b)

	m := db.Match{User1ID: lo, User2ID: hi}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&m)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 && m.ID != 0 {
		return &m, nil
	}
	return r.FindByPair(ctx, lo, hi)
}

// FindByPair returns the match for a and b in either order, or
// gorm.ErrRecordNotFound.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (*db.Match, error) {
	lo, hi := db.CanonicalPair(a, b)

	var m db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", lo, hi).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns the user's matches, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID uint64, limit int) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}
