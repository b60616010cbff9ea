package profile

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/db"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/repository"
)

// InterestService manages the interest tags shown on profile cards.
type InterestService struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	interests *repository.InterestRepository
}

// NewInterestService creates a new InterestService instance.
func NewInterestService(appCtx *app.AppContext) *InterestService {
	return &InterestService{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		interests: repository.NewInterestRepository(appCtx.DB),
	}
}

// Options returns the interests a user may pick from.
func (s *InterestService) Options() []string {
	out := make([]string, len(db.InterestOptions))
	copy(out, db.InterestOptions)
	return out
}

// List returns a user's interests ordered by name.
func (s *InterestService) List(ctx context.Context, userID uint64) ([]db.Interest, error) {
	rows, err := s.interests.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []db.Interest{}
	}
	return rows, nil
}

// Add tags the user with one interest. name is matched against the options
// case-insensitively and stored in its canonical spelling.
func (s *InterestService) Add(ctx context.Context, userID uint64, name string) (*db.Interest, error) {
	canonical, ok := db.LookupInterest(name)
	if !ok {
		return nil, svcErr.InvalidInput("Invalid interest name")
	}
	if err := s.requireUser(ctx, s.users, userID); err != nil {
		return nil, err
	}

	row, created, err := s.interests.Add(ctx, userID, canonical)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, svcErr.AlreadyExists("User already has this interest")
	}
	return row, nil
}

// AddMany tags the user with every valid name in one transaction and returns
// the rows it created. Unknown names and interests the user already has are
// skipped.
func (s *InterestService) AddMany(ctx context.Context, userID uint64, names []string) ([]db.Interest, error) {
	if len(names) == 0 {
		return nil, svcErr.InvalidInput("interests must be a non-empty array")
	}

	added := []db.Interest{}
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireUser(ctx, s.users.WithTx(tx), userID); err != nil {
			return err
		}
		var err error
		added, err = s.addAll(ctx, s.interests.WithTx(tx), userID, names)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Replace swaps the user's interests for names in one transaction. Invalid
// names are skipped, so Replace with only invalid names clears the list.
func (s *InterestService) Replace(ctx context.Context, userID uint64, names []string) ([]db.Interest, error) {
	if names == nil {
		return nil, svcErr.InvalidInput("interests must be an array")
	}

	added := []db.Interest{}
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.requireUser(ctx, s.users.WithTx(tx), userID); err != nil {
			return err
		}
		repo := s.interests.WithTx(tx)
		if _, err := repo.RemoveAll(ctx, userID); err != nil {
			return err
		}
		var err error
		added, err = s.addAll(ctx, repo, userID, names)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// Remove drops one interest. Missing tags are NotFound.
func (s *InterestService) Remove(ctx context.Context, userID uint64, name string) error {
	canonical, ok := db.LookupInterest(name)
	if !ok {
		return svcErr.NotFound("Interest not found for this user")
	}
	removed, err := s.interests.Remove(ctx, userID, canonical)
	if err != nil {
		return err
	}
	if !removed {
		return svcErr.NotFound("Interest not found for this user")
	}
	return nil
}

// RemoveAll drops every interest of the user and returns how many went.
func (s *InterestService) RemoveAll(ctx context.Context, userID uint64) (int64, error) {
	return s.interests.RemoveAll(ctx, userID)
}

func (s *InterestService) addAll(ctx context.Context, repo *repository.InterestRepository, userID uint64, names []string) ([]db.Interest, error) {
	added := []db.Interest{}
	for _, name := range names {
		canonical, ok := db.LookupInterest(name)
		if !ok {
			s.appCtx.Logger.Debug("skipping unknown interest", "user", userID, "interest", name)
			continue
		}
		row, created, err := repo.Add(ctx, userID, canonical)
		if err != nil {
			return nil, err
		}
		if created {
			added = append(added, *row)
		}
	}
	return added, nil
}

func (s *InterestService) requireUser(ctx context.Context, users *repository.UserRepository, userID uint64) error {
	ok, err := users.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return svcErr.NotFound(fmt.Sprintf("User %d not found", userID))
	}
	return nil
}
