package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/birdie/internal/db"
)

// UserRepository is the user directory: profile rows keyed by numeric id and
// by the identity provider's uid.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// LockPair row-locks two users for the rest of the transaction and returns
// them keyed by id.
//
// Behavior:
//   - Rows are locked in ascending id order, so two transactions touching the
//     same pair in opposite directions queue instead of deadlocking.
//   - Missing users are simply absent from the result map.
//   - SQLite ignores the locking clause; its writer lock already serializes.
//
// Example:
//
//	users, err := repo.WithTx(tx).LockPair(ctx, 7, 3) // SELECT ... WHERE id IN (3,7) ORDER BY id FOR UPDATE
func (r *UserRepository) LockPair(ctx context.Context, a, b uint64) (map[uint64]db.User, error) {
	lo, hi := db.CanonicalPair(a, b)

	var users []db.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id", "full_name", "is_active").
		Where("id IN ?", []uint64{lo, hi}).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]db.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepository) Create(ctx context.Context, u *db.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// GetByID returns gorm.ErrRecordNotFound when the user is missing.
func (r *UserRepository) GetByID(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByFirebaseUID returns gorm.ErrRecordNotFound when the user is missing.
func (r *UserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", uid).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// ExistsByFirebaseUIDOrEmail reports whether either identifier is taken.
func (r *UserRepository) ExistsByFirebaseUIDOrEmail(ctx context.Context, uid, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("firebase_uid = ? OR email = ?", uid, email).
		Count(&count).Error
	return count > 0, err
}

// UpdateByFirebaseUID applies column updates and reports whether a row matched.
func (r *UserRepository) UpdateByFirebaseUID(ctx context.Context, uid string, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("firebase_uid = ?", uid).
		Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// Deactivate soft-deletes a profile. Already inactive users still count as found.
func (r *UserRepository) Deactivate(ctx context.Context, uid string) (bool, error) {
	return r.UpdateByFirebaseUID(ctx, uid, map[string]any{"is_active": false})
}

// ListActive pages through active users, newest first.
func (r *UserRepository) ListActive(ctx context.Context, limit, offset int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error
	return users, err
}

// Exists reports whether a user row with id exists.
func (r *UserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// Ping checks connectivity for health endpoints.
func (r *UserRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// ActiveByIDs returns the active users among ids, in no particular order.
func (r *UserRepository) ActiveByIDs(ctx context.Context, ids []uint64) ([]db.User, error) {
	var users []db.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", ids, true).
		Find(&users).Error
	return users, err
}
