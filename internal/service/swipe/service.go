package swipe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/config"
	"github.com/oggyb/birdie/internal/db"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/repository"
)

// DayKeyLayout formats the quota bucket date.
const DayKeyLayout = "2006-01-02"

// Config tunes the engine.
type Config struct {
	// DailyLimit is the number of swipes a user may make per calendar day.
	DailyLimit int
	// Location decides where a calendar day starts.
	Location *time.Location
	// ChargeDuplicates makes a repeated swipe on the same user still consume quota.
	ChargeDuplicates bool
}

// ConfigFrom reads the engine settings out of the app config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		DailyLimit:       cfg.Swipe.DailyLimit,
		Location:         cfg.Location(),
		ChargeDuplicates: cfg.Swipe.ChargeDuplicates,
	}
}

// NotificationSink persists notifications on the caller's transaction so
// they commit or roll back with the swipe.
type NotificationSink interface {
	Emit(ctx context.Context, tx *gorm.DB, recipientID, relatedID uint64, kind db.NotificationType, message string) error
}

// MatchDetails identifies the match a swipe produced or joined.
type MatchDetails struct {
	MatchID uint64 `json:"matchId"`
}

// Result is the outcome of one swipe.
type Result struct {
	SwipedID        uint64
	Type            db.SwipeType
	IsMatch         bool
	Match           *MatchDetails
	RemainingSwipes int
	// Duplicate is set when the swiper had already swiped this user; no
	// state other than the quota (see Config.ChargeDuplicates) changed.
	Duplicate bool
}

// MatchSummary is one entry of a user's match list.
type MatchSummary struct {
	MatchID     uint64    `json:"match_id"`
	OtherUserID uint64    `json:"user_id"`
	MatchedAt   time.Time `json:"matched_at"`
}

// Service is the swipe/match engine.
type Service struct {
	appCtx  *app.AppContext
	cfg     Config
	users   *repository.UserRepository
	swipes  *repository.SwipeRepository
	matches *repository.MatchRepository
	sink    NotificationSink
	now     func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, mostly for tests around midnight.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNotificationSink replaces the default notifications-table sink.
func WithNotificationSink(sink NotificationSink) Option {
	return func(s *Service) { s.sink = sink }
}

// NewSwipeService creates the engine with repositories bound to appCtx.DB.
func NewSwipeService(appCtx *app.AppContext, cfg Config, opts ...Option) *Service {
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = 20
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &Service{
		appCtx:  appCtx,
		cfg:     cfg,
		users:   repository.NewUserRepository(appCtx.DB),
		swipes:  repository.NewSwipeRepository(appCtx.DB),
		matches: repository.NewMatchRepository(appCtx.DB),
		sink:    repository.NewNotificationRepository(appCtx.DB),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DayKey returns the quota bucket for instant now in loc.
func DayKey(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return now.In(loc).Format(DayKeyLayout)
}

// ProcessSwipe records swiper's decision on swiped and settles its effects.
//
// Behavior:
//   - Validation happens before any write: zero ids and unknown types are
//     InvalidInput, swiping yourself is InvalidOperation, unknown users are NotFound.
//   - One transaction covers the quota check, the swipe row, the quota bump,
//     the match row and the notifications. Any failure rolls all of it back.
//   - A user already at the daily limit gets ErrQuotaExceeded and nothing is written.
//   - A LIKE answering an earlier LIKE creates the match (once per pair) and
//     notifies both users; any other LIKE notifies the swiped user.
//   - Repeating a swipe is not an error: no new rows besides the quota bump,
//     and IsMatch reports whether the pair is already matched.
//
// Example:
//
//	res, err := svc.ProcessSwipe(ctx, 1, 2, "LIKE") // res.IsMatch if 2 already liked 1
func (s *Service) ProcessSwipe(ctx context.Context, swiperID, swipedID uint64, swipeType string) (*Result, error) {
	log := s.appCtx.Logger.With("swiper", swiperID, "swiped", swipedID)
	log.Debug("ProcessSwipe called", "type", swipeType)

	if swiperID == 0 || swipedID == 0 {
		return nil, svcErr.InvalidInput("Missing required fields")
	}
	if swiperID == swipedID {
		return nil, svcErr.InvalidOperation("Cannot swipe on yourself")
	}
	kind, ok := db.ParseSwipeType(swipeType)
	if !ok {
		return nil, svcErr.InvalidInput("swipeType must be LIKE or PASS")
	}

	day := DayKey(s.now(), s.cfg.Location)

	var (
		res      *Result
		notified []uint64
	)
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		res, notified, err = s.process(ctx, tx, swiperID, swipedID, kind, day)
		return err
	})
	if err != nil {
		switch svcErr.KindOf(err) {
		case svcErr.KindInternal:
			log.Error("swipe transaction failed", "err", err)
			var tagged *svcErr.Error
			if !errors.As(err, &tagged) {
				err = svcErr.Wrap(svcErr.KindInternal, "failed to process swipe", err)
			}
		case svcErr.KindTransient:
			log.Warn("swipe transaction aborted, caller may retry", "err", err)
		default:
			log.Debug("swipe rejected", "err", err)
		}
		return nil, err
	}

	s.appCtx.InvalidateUnread(ctx, notified...)

	log.Debug("ProcessSwipe result",
		"match", res.IsMatch, "duplicate", res.Duplicate, "remaining", res.RemainingSwipes)
	return res, nil
}

// process is the transactional body of ProcessSwipe. It returns the ids of
// users who received a notification.
func (s *Service) process(
	ctx context.Context,
	tx *gorm.DB,
	swiperID, swipedID uint64,
	kind db.SwipeType,
	day string,
) (*Result, []uint64, error) {
	// Locking the pair in id order serializes A→B against B→A, so the later
	// of two crossing likes always sees the earlier one.
	users, err := s.users.WithTx(tx).LockPair(ctx, swiperID, swipedID)
	if err != nil {
		return nil, nil, err
	}
	swiper, ok := users[swiperID]
	if !ok || !swiper.IsActive {
		return nil, nil, svcErr.NotFound("Swiper not found")
	}
	swiped, ok := users[swipedID]
	if !ok || !swiped.IsActive {
		return nil, nil, svcErr.NotFound("User not found")
	}

	swipes := s.swipes.WithTx(tx)
	used, err := swipes.LockDailyCount(ctx, swiperID, day)
	if err != nil {
		return nil, nil, err
	}
	if used >= s.cfg.DailyLimit {
		return nil, nil, svcErr.ErrQuotaExceeded
	}

	created, err := swipes.InsertSwipe(ctx, swiperID, swipedID, kind)
	if err != nil {
		return nil, nil, err
	}

	charged := created || s.cfg.ChargeDuplicates
	if charged {
		if err := swipes.IncrementDailyCount(ctx, swiperID, day); err != nil {
			return nil, nil, err
		}
		used++
	}

	res := &Result{
		SwipedID:        swipedID,
		Type:            kind,
		RemainingSwipes: s.cfg.DailyLimit - used,
		Duplicate:       !created,
	}

	matches := s.matches.WithTx(tx)
	if !created {
		existing, err := matches.FindByPair(ctx, swiperID, swipedID)
		switch {
		case err == nil:
			res.IsMatch = true
			res.Match = &MatchDetails{MatchID: existing.ID}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, nil, err
		}
		return res, nil, nil
	}

	if kind != db.SwipeLike {
		return res, nil, nil
	}

	mutual, err := swipes.HasLiked(ctx, swipedID, swiperID)
	if err != nil {
		return nil, nil, err
	}

	if !mutual {
		msg := fmt.Sprintf("%s liked you!", swiper.FullName)
		if err := s.sink.Emit(ctx, tx, swipedID, swiperID, db.NotificationLike, msg); err != nil {
			return nil, nil, err
		}
		return res, []uint64{swipedID}, nil
	}

	m, err := matches.CreateIfAbsent(ctx, swiperID, swipedID)
	if err != nil {
		return nil, nil, err
	}
	res.IsMatch = true
	res.Match = &MatchDetails{MatchID: m.ID}

	if err := s.sink.Emit(ctx, tx, swiperID, swipedID, db.NotificationMatch,
		fmt.Sprintf("You matched with %s!", swiped.FullName)); err != nil {
		return nil, nil, err
	}
	if err := s.sink.Emit(ctx, tx, swipedID, swiperID, db.NotificationMatch,
		fmt.Sprintf("You matched with %s!", swiper.FullName)); err != nil {
		return nil, nil, err
	}
	return res, []uint64{swiperID, swipedID}, nil
}

// RemainingSwipes reports how many swipes userID has left today.
func (s *Service) RemainingSwipes(ctx context.Context, userID uint64) (int, error) {
	used, err := s.swipes.DailyCount(ctx, userID, DayKey(s.now(), s.cfg.Location))
	if err != nil {
		return 0, err
	}
	if left := s.cfg.DailyLimit - used; left > 0 {
		return left, nil
	}
	return 0, nil
}

// ListMatches returns userID's matches, newest first.
func (s *Service) ListMatches(ctx context.Context, userID uint64, limit int) ([]MatchSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := s.matches.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]MatchSummary, 0, len(rows))
	for _, m := range rows {
		out = append(out, MatchSummary{MatchID: m.ID, OtherUserID: m.OtherUserID(userID), MatchedAt: m.CreatedAt})
	}
	return out, nil
}
