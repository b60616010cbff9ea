package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/birdie/internal/db"
	"github.com/oggyb/birdie/internal/db/dbtest"
	"github.com/oggyb/birdie/internal/repository"
)

func TestPendingLikers_ExcludesAnswered(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.Open(t)
	ids := dbtest.CreateUsers(t, dbase, 5)
	me, a, b, c, d := ids[0], ids[1], ids[2], ids[3], ids[4]
	repo := repository.NewSwipeRepository(dbase)

	for _, liker := range []uint64{a, b, c} {
		_, err := repo.InsertSwipe(ctx, liker, me, db.SwipeLike)
		require.NoError(t, err)
	}
	_, err := repo.InsertSwipe(ctx, d, me, db.SwipePass)
	require.NoError(t, err)

	// liked b back (a match), passed c
	_, err = repo.InsertSwipe(ctx, me, b, db.SwipeLike)
	require.NoError(t, err)
	_, err = repo.InsertSwipe(ctx, me, c, db.SwipePass)
	require.NoError(t, err)

	swipes, next, err := repo.PendingLikers(ctx, me, nil, 10)
	require.NoError(t, err)
	assert.Nil(t, next)
	require.Len(t, swipes, 1)
	assert.Equal(t, a, swipes[0].SwiperUserID)

	n, err := repo.CountPendingLikers(ctx, me)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPendingLikers_Pagination(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.Open(t)
	ids := dbtest.CreateUsers(t, dbase, 4)
	me := ids[0]
	repo := repository.NewSwipeRepository(dbase)

	for _, liker := range ids[1:] {
		_, err := repo.InsertSwipe(ctx, liker, me, db.SwipeLike)
		require.NoError(t, err)
	}

	first, next, err := repo.PendingLikers(ctx, me, nil, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.NotNil(t, next)
	assert.Equal(t, ids[3], first[0].SwiperUserID)

	second, next, err := repo.PendingLikers(ctx, me, next, 2)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Nil(t, next)
	assert.Equal(t, ids[1], second[0].SwiperUserID)

	bad := "not-a-token"
	_, _, err = repo.PendingLikers(ctx, me, &bad, 2)
	assert.Error(t, err)
}

func TestPendingLikers_HidesDeactivatedLikers(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.Seeded(t)
	repo := repository.NewSwipeRepository(dbase)

	for _, liker := range []uint64{1, 3} {
		_, err := repo.InsertSwipe(ctx, liker, 2, db.SwipeLike)
		require.NoError(t, err)
	}
	require.NoError(t, dbase.Model(&db.User{}).Where("id = ?", 3).Update("is_active", false).Error)

	n, err := repo.CountPendingLikers(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// the newest like belongs to the deactivated user; the page must still be full
	swipes, next, err := repo.PendingLikers(ctx, 2, nil, 1)
	require.NoError(t, err)
	require.Len(t, swipes, 1)
	assert.EqualValues(t, 1, swipes[0].SwiperUserID)
	assert.Nil(t, next)
}

func TestPendingLikers_SubMillisecondTimestamps(t *testing.T) {
	ctx := context.Background()
	dbase := dbtest.Open(t)
	ids := dbtest.CreateUsers(t, dbase, 4)
	me := ids[0]
	repo := repository.NewSwipeRepository(dbase)

	base := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	offsets := []time.Duration{123456 * time.Microsecond, 123300 * time.Microsecond, 118 * time.Millisecond}
	for i, liker := range ids[1:] {
		require.NoError(t, dbase.Create(&db.Swipe{
			SwiperUserID: liker, SwipedUserID: me, SwipeType: db.SwipeLike, CreatedAt: base.Add(offsets[i]),
		}).Error)
	}

	var got []uint64
	var token *string
	for i := 0; i < 5; i++ {
		page, next, err := repo.PendingLikers(ctx, me, token, 1)
		require.NoError(t, err)
		for _, s := range page {
			got = append(got, s.SwiperUserID)
		}
		if next == nil {
			break
		}
		token = next
	}
	assert.Equal(t, ids[1:], got)
}
