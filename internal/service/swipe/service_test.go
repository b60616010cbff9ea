package swipe_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/birdie/internal/app"
	"github.com/oggyb/birdie/internal/cache"
	"github.com/oggyb/birdie/internal/db"
	"github.com/oggyb/birdie/internal/db/dbtest"
	svcErr "github.com/oggyb/birdie/internal/errors"
	"github.com/oggyb/birdie/internal/service/swipe"
)

//
// Test helpers
//

type fixture struct {
	svc *swipe.Service
	db  *gorm.DB
	mr  *miniredis.Miniredis
}

// setupService spins up a seeded in-memory SQLite DB (1 Alice, 2 Bob, 3 Cara)
// and a miniredis, and wires them into a swipe engine with a 20/day limit.
func setupService(t *testing.T, cfg swipe.Config, opts ...swipe.Option) fixture {
	t.Helper()

	gdb := dbtest.Seeded(t)
	mr := miniredis.RunT(t)
	rc := &cache.RedisCache{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = rc.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(gdb, rc, log)

	if cfg.DailyLimit == 0 {
		cfg.DailyLimit = 20
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return fixture{svc: swipe.NewSwipeService(appCtx, cfg, opts...), db: gdb, mr: mr}
}

func defaultConfig() swipe.Config {
	return swipe.Config{DailyLimit: 20, Location: time.UTC, ChargeDuplicates: true}
}

func count(t *testing.T, gdb *gorm.DB, model any, where ...any) int64 {
	t.Helper()
	var n int64
	q := gdb.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func notificationsFor(t *testing.T, gdb *gorm.DB, userID uint64) []db.Notification {
	t.Helper()
	var rows []db.Notification
	require.NoError(t, gdb.Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error)
	return rows
}

type failingSink struct{}

func (failingSink) Emit(context.Context, *gorm.DB, uint64, uint64, db.NotificationType, string) error {
	return errors.New("notification store unavailable")
}

//
// Tests
//

func TestProcessSwipe_OneWayLikeNotifiesSwiped(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	res, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
	assert.Nil(t, res.Match)
	assert.Equal(t, 19, res.RemainingSwipes)
	assert.Equal(t, db.SwipeLike, res.Type)
	assert.EqualValues(t, 2, res.SwipedID)

	notes := notificationsFor(t, f.db, 2)
	require.Len(t, notes, 1)
	assert.Equal(t, db.NotificationLike, notes[0].NotificationType)
	assert.Equal(t, "Alice liked you!", notes[0].Message)
	assert.EqualValues(t, 1, notes[0].RelatedUserID)
	assert.Empty(t, notificationsFor(t, f.db, 1))
	assert.Zero(t, count(t, f.db, &db.Match{}))
}

func TestProcessSwipe_MutualLikeCreatesSingleMatch(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.NoError(t, err)

	res, err := f.svc.ProcessSwipe(ctx, 2, 1, "like")
	require.NoError(t, err)
	require.True(t, res.IsMatch)
	require.NotNil(t, res.Match)

	var m db.Match
	require.NoError(t, f.db.First(&m).Error)
	assert.Equal(t, m.ID, res.Match.MatchID)
	assert.EqualValues(t, 1, m.User1ID)
	assert.EqualValues(t, 2, m.User2ID)
	assert.EqualValues(t, 1, count(t, f.db, &db.Match{}))

	aliceNotes := notificationsFor(t, f.db, 1)
	require.Len(t, aliceNotes, 1)
	assert.Equal(t, db.NotificationMatch, aliceNotes[0].NotificationType)
	assert.Equal(t, "You matched with Bob!", aliceNotes[0].Message)

	bobNotes := notificationsFor(t, f.db, 2)
	require.Len(t, bobNotes, 2)
	assert.Equal(t, db.NotificationLike, bobNotes[0].NotificationType)
	assert.Equal(t, db.NotificationMatch, bobNotes[1].NotificationType)
	assert.Equal(t, "You matched with Alice!", bobNotes[1].Message)
}

func TestProcessSwipe_PairIsStoredCanonically(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	ids := dbtest.CreateUsers(t, f.db, 4) // 4..7
	require.EqualValues(t, 7, ids[3])

	_, err := f.svc.ProcessSwipe(ctx, 3, 7, "LIKE")
	require.NoError(t, err)
	res, err := f.svc.ProcessSwipe(ctx, 7, 3, "LIKE")
	require.NoError(t, err)
	require.True(t, res.IsMatch)

	var m db.Match
	require.NoError(t, f.db.First(&m, res.Match.MatchID).Error)
	assert.EqualValues(t, 3, m.User1ID)
	assert.EqualValues(t, 7, m.User2ID)
}

func TestProcessSwipe_DuplicateIsIdempotent(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	first, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	again, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.False(t, again.IsMatch)
	assert.Equal(t, 18, again.RemainingSwipes, "duplicates are charged")

	assert.EqualValues(t, 1, count(t, f.db, &db.Swipe{}))
	assert.Len(t, notificationsFor(t, f.db, 2), 1, "no notification re-emitted")
}

func TestProcessSwipe_DuplicateNotChargedWhenDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.ChargeDuplicates = false
	f := setupService(t, cfg)
	ctx := context.Background()

	_, err := f.svc.ProcessSwipe(ctx, 1, 2, "PASS")
	require.NoError(t, err)
	again, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, 19, again.RemainingSwipes)

	var s db.Swipe
	require.NoError(t, f.db.First(&s).Error)
	assert.Equal(t, db.SwipePass, s.SwipeType, "first decision wins")
}

func TestProcessSwipe_DuplicateAfterMatchReportsMatch(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	_, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.NoError(t, err)
	matched, err := f.svc.ProcessSwipe(ctx, 2, 1, "LIKE")
	require.NoError(t, err)
	require.True(t, matched.IsMatch)

	again, err := f.svc.ProcessSwipe(ctx, 2, 1, "LIKE")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.True(t, again.IsMatch)
	assert.Equal(t, matched.Match.MatchID, again.Match.MatchID)
	assert.EqualValues(t, 1, count(t, f.db, &db.Match{}))
	assert.EqualValues(t, 3, count(t, f.db, &db.Notification{}))
}

func TestProcessSwipe_PassHasNoSideEffects(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	res, err := f.svc.ProcessSwipe(ctx, 1, 2, "PASS")
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
	assert.Equal(t, 19, res.RemainingSwipes)
	assert.Zero(t, count(t, f.db, &db.Notification{}))

	// a later like from the other side is still one-way
	res, err = f.svc.ProcessSwipe(ctx, 2, 1, "LIKE")
	require.NoError(t, err)
	assert.False(t, res.IsMatch)
	assert.Len(t, notificationsFor(t, f.db, 1), 1)
	assert.Zero(t, count(t, f.db, &db.Match{}))
}

func TestProcessSwipe_UnlikeIsStoredAsPass(t *testing.T) {
	f := setupService(t, defaultConfig())

	res, err := f.svc.ProcessSwipe(context.Background(), 1, 3, "UNLIKE")
	require.NoError(t, err)
	assert.Equal(t, db.SwipePass, res.Type)
	assert.EqualValues(t, 1, count(t, f.db, &db.Swipe{}, "swipe_type = ?", db.SwipePass))
}

func TestProcessSwipe_QuotaBoundary(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()
	targets := dbtest.CreateUsers(t, f.db, 21)

	for i := 0; i < 19; i++ {
		_, err := f.svc.ProcessSwipe(ctx, 1, targets[i], "PASS")
		require.NoError(t, err)
	}

	twentieth, err := f.svc.ProcessSwipe(ctx, 1, targets[19], "LIKE")
	require.NoError(t, err)
	assert.Equal(t, 0, twentieth.RemainingSwipes)

	notesBefore := count(t, f.db, &db.Notification{})
	_, err = f.svc.ProcessSwipe(ctx, 1, targets[20], "LIKE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcErr.ErrQuotaExceeded))
	assert.Equal(t, svcErr.KindQuotaExceeded, svcErr.KindOf(err))
	assert.Equal(t, "Daily swipe limit reached", svcErr.PublicMessage(err))

	assert.EqualValues(t, 20, count(t, f.db, &db.Swipe{}, "swiper_user_id = ?", 1))
	assert.Zero(t, count(t, f.db, &db.Swipe{}, "swiped_user_id = ?", targets[20]))
	assert.Equal(t, notesBefore, count(t, f.db, &db.Notification{}))

	var bucket db.DailySwipeLimit
	require.NoError(t, f.db.Where("user_id = ?", 1).First(&bucket).Error)
	assert.Equal(t, 20, bucket.SwipeCount)

	left, err := f.svc.RemainingSwipes(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, left)
}

func TestProcessSwipe_QuotaResetsOnNextDay(t *testing.T) {
	now := time.Date(2026, 10, 14, 23, 0, 0, 0, time.UTC)
	cfg := defaultConfig()
	cfg.DailyLimit = 2
	f := setupService(t, cfg, swipe.WithClock(func() time.Time { return now }))
	ctx := context.Background()
	targets := dbtest.CreateUsers(t, f.db, 3)

	_, err := f.svc.ProcessSwipe(ctx, 1, targets[0], "PASS")
	require.NoError(t, err)
	_, err = f.svc.ProcessSwipe(ctx, 1, targets[1], "PASS")
	require.NoError(t, err)
	_, err = f.svc.ProcessSwipe(ctx, 1, targets[2], "PASS")
	require.ErrorIs(t, err, svcErr.ErrQuotaExceeded)

	now = now.Add(2 * time.Hour)
	res, err := f.svc.ProcessSwipe(ctx, 1, targets[2], "PASS")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RemainingSwipes)

	var days []string
	require.NoError(t, f.db.Model(&db.DailySwipeLimit{}).Order("swipe_date").Pluck("swipe_date", &days).Error)
	assert.Equal(t, []string{"2026-10-14", "2026-10-15"}, days)
}

func TestDayKey_UsesConfiguredLocation(t *testing.T) {
	instant := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-10-14", swipe.DayKey(instant, time.UTC))
	assert.Equal(t, "2026-10-15", swipe.DayKey(instant, time.FixedZone("UTC+9", 9*3600)))
	assert.Equal(t, "2026-10-14", swipe.DayKey(instant, time.FixedZone("UTC-5", -5*3600)))
}

func TestProcessSwipe_ValidationWritesNothing(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	cases := []struct {
		name     string
		swiper   uint64
		swiped   uint64
		typ      string
		wantKind svcErr.Kind
	}{
		{"self swipe", 1, 1, "LIKE", svcErr.KindInvalidOperation},
		{"unknown type", 1, 2, "SUPERLIKE", svcErr.KindInvalidInput},
		{"missing swiped", 1, 0, "LIKE", svcErr.KindInvalidInput},
		{"unknown swiped", 1, 999, "LIKE", svcErr.KindNotFound},
		{"unknown swiper", 999, 1, "LIKE", svcErr.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.ProcessSwipe(ctx, tc.swiper, tc.swiped, tc.typ)
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, svcErr.KindOf(err))
		})
	}

	assert.Zero(t, count(t, f.db, &db.Swipe{}))
	assert.Zero(t, count(t, f.db, &db.DailySwipeLimit{}))
	assert.Zero(t, count(t, f.db, &db.Notification{}))
}

func TestProcessSwipe_DeactivatedUserIsNotFound(t *testing.T) {
	f := setupService(t, defaultConfig())
	require.NoError(t, f.db.Model(&db.User{}).Where("id = ?", 2).Update("is_active", false).Error)

	_, err := f.svc.ProcessSwipe(context.Background(), 1, 2, "LIKE")
	assert.Equal(t, svcErr.KindNotFound, svcErr.KindOf(err))
}

func TestProcessSwipe_RollsBackWhenNotificationFails(t *testing.T) {
	f := setupService(t, defaultConfig(), swipe.WithNotificationSink(failingSink{}))
	ctx := context.Background()

	_, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.Error(t, err)
	assert.Equal(t, svcErr.KindInternal, svcErr.KindOf(err))
	assert.Equal(t, "internal error", svcErr.PublicMessage(err))

	assert.Zero(t, count(t, f.db, &db.Swipe{}))
	assert.Zero(t, count(t, f.db, &db.DailySwipeLimit{}))
	assert.Zero(t, count(t, f.db, &db.Notification{}))

	// PASS never reaches the sink and still commits
	res, err := f.svc.ProcessSwipe(ctx, 1, 3, "PASS")
	require.NoError(t, err)
	assert.Equal(t, 19, res.RemainingSwipes)
}

func TestProcessSwipe_RollsBackMatchWhenNotificationFails(t *testing.T) {
	f := setupService(t, defaultConfig(), swipe.WithNotificationSink(failingSink{}))
	ctx := context.Background()

	// seed the reverse like directly so the failing swipe goes down the match path
	require.NoError(t, f.db.Create(&db.Swipe{SwiperUserID: 2, SwipedUserID: 1, SwipeType: db.SwipeLike}).Error)

	_, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.Error(t, err)
	assert.Zero(t, count(t, f.db, &db.Match{}))
	assert.EqualValues(t, 1, count(t, f.db, &db.Swipe{}))
}

func TestProcessSwipe_InvalidatesUnreadCache(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	require.NoError(t, f.mr.Set(cache.KeyForUnreadCount(1), "5"))
	require.NoError(t, f.mr.Set(cache.KeyForUnreadCount(2), "5"))

	_, err := f.svc.ProcessSwipe(ctx, 1, 2, "LIKE")
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cache.KeyForUnreadCount(2)))
	assert.True(t, f.mr.Exists(cache.KeyForUnreadCount(1)), "swiper got nothing new")

	_, err = f.svc.ProcessSwipe(ctx, 2, 1, "LIKE")
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cache.KeyForUnreadCount(1)))
}

func TestProcessSwipe_WorksWithoutRedis(t *testing.T) {
	gdb := dbtest.Seeded(t)
	appCtx := app.New(gdb, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := swipe.NewSwipeService(appCtx, defaultConfig())

	_, err := svc.ProcessSwipe(context.Background(), 1, 2, "LIKE")
	assert.NoError(t, err)
}

func TestProcessSwipe_ConcurrentOppositeLikesMatchOnce(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()
	ids := dbtest.CreateUsers(t, f.db, 10)

	type outcome struct {
		res *swipe.Result
		err error
	}
	pairs := [][2]uint64{}
	for i := 0; i+1 < len(ids); i += 2 {
		pairs = append(pairs, [2]uint64{ids[i], ids[i+1]})
	}

	results := make([][2]outcome, len(pairs))
	var wg sync.WaitGroup
	for i, p := range pairs {
		for dir := 0; dir < 2; dir++ {
			wg.Add(1)
			go func(i, dir int, a, b uint64) {
				defer wg.Done()
				if dir == 1 {
					a, b = b, a
				}
				res, err := f.svc.ProcessSwipe(ctx, a, b, "LIKE")
				results[i][dir] = outcome{res, err}
			}(i, dir, p[0], p[1])
		}
	}
	wg.Wait()

	for i, p := range pairs {
		matched := 0
		for _, o := range results[i] {
			require.NoError(t, o.err)
			if o.res.IsMatch {
				matched++
			}
		}
		assert.Equal(t, 1, matched, "pair %v", p)
		assert.EqualValues(t, 1, count(t, f.db, &db.Match{}, "user1_id = ? AND user2_id = ?", p[0], p[1]))
		assert.EqualValues(t, 2, count(t, f.db, &db.Notification{},
			"notification_type = ? AND (user_id = ? OR user_id = ?)", db.NotificationMatch, p[0], p[1]))
	}
}

func TestProcessSwipe_ConcurrentSwipesNeverExceedLimit(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()
	targets := dbtest.CreateUsers(t, f.db, 30)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		rejected int
	)
	for _, target := range targets {
		wg.Add(1)
		go func(target uint64) {
			defer wg.Done()
			_, err := f.svc.ProcessSwipe(ctx, 1, target, "PASS")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, svcErr.ErrQuotaExceeded):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(target)
	}
	wg.Wait()

	assert.Equal(t, 20, ok)
	assert.Equal(t, 10, rejected)
	assert.EqualValues(t, 20, count(t, f.db, &db.Swipe{}, "swiper_user_id = ?", 1))
}

func TestListMatches(t *testing.T) {
	f := setupService(t, defaultConfig())
	ctx := context.Background()

	for _, pair := range [][2]uint64{{1, 2}, {2, 1}, {3, 2}, {2, 3}} {
		_, err := f.svc.ProcessSwipe(ctx, pair[0], pair[1], "LIKE")
		require.NoError(t, err)
	}

	matches, err := f.svc.ListMatches(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	others := []uint64{matches[0].OtherUserID, matches[1].OtherUserID}
	assert.ElementsMatch(t, []uint64{1, 3}, others)
}
