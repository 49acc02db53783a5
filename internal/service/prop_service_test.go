package service

import (
	"testing"
	"time"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type propFixture struct {
	svc       *PropService
	props     *repository.PropRepository
	watchlist *repository.WatchlistRepository
}

func newPropFixture(t *testing.T) *propFixture {
	t.Helper()
	db := newTestDB(t)
	props := repository.NewPropRepository(db)
	watchlist := repository.NewWatchlistRepository(db)
	return &propFixture{
		svc:       NewPropService(props, watchlist, nil, nil),
		props:     props,
		watchlist: watchlist,
	}
}

func seedProp(t *testing.T, fx *propFixture, player, market string, line float64) *models.Prop {
	t.Helper()
	p := &models.Prop{
		Player:   player,
		Team:     "BOS",
		Opponent: "LAL",
		Market:   market,
		Line:     line,
		GameTime: time.Now().Add(4 * time.Hour),
	}
	require.NoError(t, fx.svc.Create(p))
	return p
}

func TestBoardTruncatesForFreeMembers(t *testing.T) {
	fx := newPropFixture(t)
	for i := 0; i < FreeBoardLimit+5; i++ {
		seedProp(t, fx, "Player "+string(rune('A'+i)), domain.MarketPoints, 20.5)
	}

	list, truncated, err := fx.svc.Board(repository.PropFilter{}, false)
	require.NoError(t, err)
	assert.Len(t, list, FreeBoardLimit)
	assert.True(t, truncated)

	list, truncated, err = fx.svc.Board(repository.PropFilter{}, true)
	require.NoError(t, err)
	assert.Len(t, list, FreeBoardLimit+5)
	assert.False(t, truncated)
}

func TestBoardFreeMemberCannotRaiseLimit(t *testing.T) {
	fx := newPropFixture(t)
	for i := 0; i < FreeBoardLimit+5; i++ {
		seedProp(t, fx, "Player "+string(rune('A'+i)), domain.MarketPoints, 20.5)
	}
	list, _, err := fx.svc.Board(repository.PropFilter{Limit: 50}, false)
	require.NoError(t, err)
	assert.Len(t, list, FreeBoardLimit)
}

func TestBoardFilters(t *testing.T) {
	fx := newPropFixture(t)
	seedProp(t, fx, "Tatum", domain.MarketPoints, 27.5)
	seedProp(t, fx, "Tatum", domain.MarketRebounds, 8.5)
	seedProp(t, fx, "Brown", domain.MarketPoints, 23.5)

	list, _, err := fx.svc.Board(repository.PropFilter{Market: domain.MarketPoints}, true)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, _, err = fx.svc.Board(repository.PropFilter{Player: "Tatum"}, true)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCreatePropRejectsUnknownMarket(t *testing.T) {
	fx := newPropFixture(t)
	err := fx.svc.Create(&models.Prop{
		Player: "Tatum", Team: "BOS", Opponent: "LAL",
		Market: "TURNOVERS", Line: 3.5, GameTime: time.Now(),
	})
	assert.ErrorIs(t, err, ErrInvalidMarket)
}

func TestSettleRecordsResultAndClosesProp(t *testing.T) {
	fx := newPropFixture(t)
	p := seedProp(t, fx, "Tatum", domain.MarketPoints, 27.5)

	settled, err := fx.svc.Settle(p.ID, 31)
	require.NoError(t, err)
	assert.Equal(t, domain.PropStatusSettled, settled.Status)

	got, err := fx.props.GetByID(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, 31.0, got.Result.Actual)
}

func TestSettleOverwritesOnCorrection(t *testing.T) {
	fx := newPropFixture(t)
	p := seedProp(t, fx, "Tatum", domain.MarketPoints, 27.5)

	_, err := fx.svc.Settle(p.ID, 31)
	require.NoError(t, err)
	_, err = fx.svc.Settle(p.ID, 29)
	require.NoError(t, err)

	got, err := fx.props.GetByID(p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Result)
	assert.Equal(t, 29.0, got.Result.Actual, "stat corrections replace the result")
}

func TestWatchlistAddIsIdempotent(t *testing.T) {
	fx := newPropFixture(t)
	require.NoError(t, fx.watchlist.Add(1, "Tatum"))
	require.NoError(t, fx.watchlist.Add(1, "Tatum"))

	list, err := fx.watchlist.ListByUserID(1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestWatchlistRemoveAndReAdd(t *testing.T) {
	fx := newPropFixture(t)
	require.NoError(t, fx.watchlist.Add(1, "Tatum"))
	require.NoError(t, fx.watchlist.Remove(1, "Tatum"))

	watching, err := fx.watchlist.IsWatching(1, "Tatum")
	require.NoError(t, err)
	assert.False(t, watching)

	require.NoError(t, fx.watchlist.Add(1, "Tatum"))
	watching, _ = fx.watchlist.IsWatching(1, "Tatum")
	assert.True(t, watching)
}

func TestListWatcherIDs(t *testing.T) {
	fx := newPropFixture(t)
	require.NoError(t, fx.watchlist.Add(1, "Tatum"))
	require.NoError(t, fx.watchlist.Add(2, "Tatum"))
	require.NoError(t, fx.watchlist.Add(3, "Brown"))

	ids, err := fx.watchlist.ListWatcherIDs("Tatum")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 2}, ids)
}
