package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/birdie/internal/db"
)

// PhotoRepository stores profile photo rows; the images themselves live on
// the image host.
type PhotoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new repository bound to the given DB connection.
func NewPhotoRepository(database *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: database}
}

// WithTx returns a copy of the repository that runs on tx.
func (r *PhotoRepository) WithTx(tx *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: tx}
}

// LockOwner row-locks the user so concurrent uploads for the same user
// check the slot limits one at a time. Returns gorm.ErrRecordNotFound for
// unknown users.
func (r *PhotoRepository) LockOwner(ctx context.Context, userID uint64) error {
	var u db.User
	return r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&u, userID).Error
}

// OwnerExists reports whether the user row exists, without locking it.
func (r *PhotoRepository) OwnerExists(ctx context.Context, userID uint64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", userID).Count(&n).Error
	return n > 0, err
}

// ListForUser returns photos with the primary first, then by upload order.
func (r *PhotoRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Photo, error) {
	var rows []db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_primary DESC, upload_order ASC").
		Find(&rows).Error
	return rows, err
}

// PrimaryForUsers maps user id → primary photo URL for the given users.
func (r *PhotoRepository) PrimaryForUsers(ctx context.Context, userIDs []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []db.Photo
	err := r.db.WithContext(ctx).
		Select("user_id", "photo_url").
		Where("user_id IN ? AND is_primary = ?", userIDs, true).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.UserID] = p.PhotoURL
	}
	return out, nil
}

// Get returns the photo when it belongs to userID, else gorm.ErrRecordNotFound.
func (r *PhotoRepository) Get(ctx context.Context, userID, photoID uint64) (*db.Photo, error) {
	var p db.Photo
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", photoID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Primary returns the user's primary photo or gorm.ErrRecordNotFound.
func (r *PhotoRepository) Primary(ctx context.Context, userID uint64) (*db.Photo, error) {
	var p db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_primary = ?", userID, true).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PhotoRepository) Count(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Photo{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// OrderTaken reports whether the user already has a photo in that slot.
func (r *PhotoRepository) OrderTaken(ctx context.Context, userID uint64, order int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Photo{}).
		Where("user_id = ? AND upload_order = ?", userID, order).
		Count(&count).Error
	return count > 0, err
}

// ClearPrimary unsets the primary flag on all of the user's photos.
func (r *PhotoRepository) ClearPrimary(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Photo{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("is_primary", false).Error
}

func (r *PhotoRepository) Create(ctx context.Context, p *db.Photo) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// SetPrimary flags one photo as primary. Reports false when the photo is
// not the user's.
func (r *PhotoRepository) SetPrimary(ctx context.Context, userID, photoID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Photo{}).
		Where("id = ? AND user_id = ?", photoID, userID).
		Update("is_primary", true)
	return res.RowsAffected > 0, res.Error
}

// Delete removes the photo row and reports whether it existed.
func (r *PhotoRepository) Delete(ctx context.Context, userID, photoID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", photoID, userID).
		Delete(&db.Photo{})
	return res.RowsAffected > 0, res.Error
}

// SetOrder moves one photo to another slot. Reports false when the photo is
// not the user's.
func (r *PhotoRepository) SetOrder(ctx context.Context, userID, photoID uint64, order int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Photo{}).
		Where("id = ? AND user_id = ?", photoID, userID).
		Update("upload_order", order)
	return res.RowsAffected > 0, res.Error
}

// DeleteAll removes every photo row of the user and returns them, so the
// caller can clean up the stored objects.
func (r *PhotoRepository) DeleteAll(ctx context.Context, userID uint64) ([]db.Photo, error) {
	var rows []db.Photo
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&db.Photo{}).Error
	return rows, err
}
