package feed

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/db"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/repository"
)

const (
	// FeedSize is how many cards one feed request returns.
	FeedSize = 10

	defaultLikedYouPage = 20
	maxLikedYouPage     = 100
)

// Card is one profile as shown in the swipe deck.
type Card struct {
	UserID           uint64   `json:"user_id"`
	FullName         string   `json:"full_name"`
	Age              *int     `json:"age"`
	Horoscope        *string  `json:"horoscope"`
	Gender           *string  `json:"gender"`
	LocationPostcode *string  `json:"location_postcode"`
	LookingFor       *string  `json:"looking_for"`
	OnboardingStep   int      `json:"onboarding_step"`
	PhotoURL         *string  `json:"photo_url"`
	Interests        []string `json:"interests"`
}

// Liker is a card for someone whose LIKE is still unanswered.
type Liker struct {
	Card
	LikedAtUnix int64 `json:"liked_at_unix"`
}

// LikedYouPage is one slice of a user's unanswered likes.
type LikedYouPage struct {
	Likers              []Liker
	NextPaginationToken *string
}

// Service builds swipe decks and the "liked you" list.
type Service struct {
	appCtx    *app.AppContext
	users     *repository.UserRepository
	feed      *repository.FeedRepository
	swipes    *repository.SwipeRepository
	photos    *repository.PhotoRepository
	interests *repository.InterestRepository
}

// NewFeedService creates a new Service instance.
func NewFeedService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		users:     repository.NewUserRepository(appCtx.DB),
		feed:      repository.NewFeedRepository(appCtx.DB),
		swipes:    repository.NewSwipeRepository(appCtx.DB),
		photos:    repository.NewPhotoRepository(appCtx.DB),
		interests: repository.NewInterestRepository(appCtx.DB),
	}
}

// TargetGender maps the viewer's gender and preference to the gender they
// see. Empty means everyone.
//
//   - Straight: Male sees Female and Female sees Male; other genders see everyone.
//   - Gay, Lesbian: the viewer's own gender.
//   - Anything else (Bisexual, unset): everyone.
func TargetGender(gender, preference *string) string {
	if gender == nil || preference == nil {
		return ""
	}
	switch *preference {
	case "Straight":
		switch *gender {
		case "Male":
			return "Female"
		case "Female":
			return "Male"
		}
	case "Gay", "Lesbian":
		return *gender
	}
	return ""
}

// Feed returns up to FeedSize swipe candidates for viewerID.
//
// Behavior:
//   - Candidates are active, fully onboarded, not the viewer and not
//     already swiped by the viewer (LIKE or PASS).
//   - Gender follows TargetGender; age follows the viewer's preferred range
//     when both bounds are set.
//   - Each card carries the primary photo URL (null if none) and interests.
//
// Example:
//
//	cards, err := svc.Feed(ctx, 42)
func (s *Service) Feed(ctx context.Context, viewerID uint64) ([]Card, error) {
	viewer, err := s.users.GetByID(ctx, viewerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}

	target := TargetGender(viewer.Gender, viewer.RelationshipPreference)
	s.appCtx.Logger.Debug("Feed called", "viewer", viewerID, "target_gender", target)

	users, err := s.feed.Candidates(ctx, repository.FeedFilter{
		ViewerID: viewerID,
		Gender:   target,
		MinAge:   viewer.PreferredAgeMin,
		MaxAge:   viewer.PreferredAgeMax,
		Limit:    FeedSize,
	})
	if err != nil {
		return nil, err
	}
	return s.cards(ctx, users)
}

// LikedYou lists users whose LIKE on userID is still unanswered, newest first.
func (s *Service) LikedYou(ctx context.Context, userID uint64, token *string, limit int) (*LikedYouPage, error) {
	if limit <= 0 {
		limit = defaultLikedYouPage
	}
	if limit > maxLikedYouPage {
		limit = maxLikedYouPage
	}

	swipes, next, err := s.swipes.PendingLikers(ctx, userID, token, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(swipes))
	for _, sw := range swipes {
		ids = append(ids, sw.SwiperUserID)
	}
	users, err := s.users.ActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	cards, err := s.cards(ctx, users)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]Card, len(cards))
	for _, c := range cards {
		byID[c.UserID] = c
	}

	likers := make([]Liker, 0, len(swipes))
	for _, sw := range swipes {
		c, ok := byID[sw.SwiperUserID]
		if !ok {
			// deactivated between the two reads
			continue
		}
		likers = append(likers, Liker{Card: c, LikedAtUnix: sw.CreatedAt.UnixMilli()})
	}
	return &LikedYouPage{Likers: likers, NextPaginationToken: next}, nil
}

// CountLikedYou returns how many likes on userID are unanswered.
func (s *Service) CountLikedYou(ctx context.Context, userID uint64) (int64, error) {
	return s.swipes.CountPendingLikers(ctx, userID)
}

func (s *Service) cards(ctx context.Context, users []db.User) ([]Card, error) {
	out := make([]Card, 0, len(users))
	if len(users) == 0 {
		return out, nil
	}

	ids := make([]uint64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	photos, err := s.photos.PrimaryForUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	interests, err := s.interests.ListForUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		c := Card{
			UserID:           u.ID,
			FullName:         u.FullName,
			Age:              u.Age,
			Horoscope:        u.Horoscope,
			Gender:           u.Gender,
			LocationPostcode: u.LocationPostcode,
			LookingFor:       u.LookingFor,
			OnboardingStep:   u.OnboardingStep,
			Interests:        interests[u.ID],
		}
		if url, ok := photos[u.ID]; ok {
			c.PhotoURL = &url
		}
		if c.Interests == nil {
			c.Interests = []string{}
		}
		out = append(out, c)
	}
	return out, nil
}
