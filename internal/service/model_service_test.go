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

type modelFixture struct {
	svc     *ModelService
	propSvc *PropService
	props   *repository.PropRepository
}

func newModelFixture(t *testing.T) *modelFixture {
	t.Helper()
	db := newTestDB(t)
	props := repository.NewPropRepository(db)
	return &modelFixture{
		svc:     NewModelService(repository.NewModelRepository(db), props),
		propSvc: NewPropService(props, nil, nil, nil),
		props:   props,
	}
}

func balancedModel(userID uint) *models.UserModel {
	return &models.UserModel{
		UserID:           userID,
		Name:             "Balanced",
		WeightSeasonAvg:  1,
		WeightRecentForm: 1,
	}
}

func (fx *modelFixture) settleProp(t *testing.T, p *models.Prop, actual float64) {
	t.Helper()
	require.NoError(t, fx.propSvc.Create(p))
	_, err := fx.propSvc.Settle(p.ID, actual)
	require.NoError(t, err)
}

func TestCreateModelValidatesWeights(t *testing.T) {
	fx := newModelFixture(t)

	m := balancedModel(1)
	m.WeightSeasonAvg = -1
	assert.ErrorIs(t, fx.svc.Create(m), ErrInvalidWeights)

	m = balancedModel(1)
	m.WeightSeasonAvg = 0
	m.WeightRecentForm = 0
	assert.ErrorIs(t, fx.svc.Create(m), ErrInvalidWeights)

	require.NoError(t, fx.svc.Create(balancedModel(1)))
}

func TestCreateModelEnforcesLimit(t *testing.T) {
	fx := newModelFixture(t)
	for i := 0; i < MaxModelsPerUser; i++ {
		require.NoError(t, fx.svc.Create(balancedModel(1)))
	}
	assert.ErrorIs(t, fx.svc.Create(balancedModel(1)), ErrModelLimit)
	// other users are unaffected
	assert.NoError(t, fx.svc.Create(balancedModel(2)))
}

func TestUpdateModelIsOwnerScoped(t *testing.T) {
	fx := newModelFixture(t)
	m := balancedModel(1)
	require.NoError(t, fx.svc.Create(m))

	_, err := fx.svc.Update(m.ID, 2, func(u *models.UserModel) { u.Name = "stolen" })
	assert.ErrorIs(t, err, ErrModelNotFound)

	got, err := fx.svc.Update(m.ID, 1, func(u *models.UserModel) { u.Name = "renamed" })
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
}

func TestProjectionDeterministic(t *testing.T) {
	m := &models.UserModel{
		WeightSeasonAvg:  2,
		WeightRecentForm: 1,
		WeightOpponent:   3,
		WeightHomeAway:   1.5,
	}
	p := &models.Prop{
		SeasonAvg:    27,
		Last5Avg:     30,
		OpponentRank: 30, // softest matchup
		HomeGame:     true,
	}
	// blend (2*27+1*30)/3 = 28, opponent (30-15.5)/14.5*3 = 3, home +1.5
	assert.InDelta(t, 32.5, Projection(m, p), 1e-9)
	assert.Equal(t, Projection(m, p), Projection(m, p))

	p.HomeGame = false
	assert.InDelta(t, 29.5, Projection(m, p), 1e-9)
}

func TestProjectionToughMatchupNudgesDown(t *testing.T) {
	m := &models.UserModel{WeightSeasonAvg: 1, WeightRecentForm: 1, WeightOpponent: 2}
	p := &models.Prop{SeasonAvg: 20, Last5Avg: 20, OpponentRank: 1}
	assert.Less(t, Projection(m, p), 20.0)
}

func TestBacktestCountsHitsAndExcludesPushes(t *testing.T) {
	fx := newModelFixture(t)
	m := balancedModel(1)
	require.NoError(t, fx.svc.Create(m))

	game := time.Now().Add(-24 * time.Hour)
	// projection 25 > line 22.5, pick OVER, actual 28: hit
	fx.settleProp(t, &models.Prop{
		Player: "Tatum", Team: "BOS", Opponent: "LAL", Market: domain.MarketPoints,
		Line: 22.5, SeasonAvg: 25, Last5Avg: 25, GameTime: game,
	}, 28)
	// projection 25 > line 24.5, pick OVER, actual 20: miss
	fx.settleProp(t, &models.Prop{
		Player: "Brown", Team: "BOS", Opponent: "LAL", Market: domain.MarketPoints,
		Line: 24.5, SeasonAvg: 25, Last5Avg: 25, GameTime: game,
	}, 20)
	// actual lands on the line: push, excluded from the rate
	fx.settleProp(t, &models.Prop{
		Player: "White", Team: "BOS", Opponent: "LAL", Market: domain.MarketPoints,
		Line: 24, SeasonAvg: 25, Last5Avg: 25, GameTime: game,
	}, 24)

	res, err := fx.svc.Backtest(m.ID, 1, domain.MarketPoints, 100)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Sample)
	assert.Equal(t, 1, res.Hits)
	assert.Equal(t, 1, res.Pushes)
	assert.InDelta(t, 0.5, res.HitRate, 1e-9)
}

func TestBacktestIgnoresOpenProps(t *testing.T) {
	fx := newModelFixture(t)
	m := balancedModel(1)
	require.NoError(t, fx.svc.Create(m))

	require.NoError(t, fx.propSvc.Create(&models.Prop{
		Player: "Tatum", Team: "BOS", Opponent: "LAL", Market: domain.MarketPoints,
		Line: 22.5, SeasonAvg: 25, Last5Avg: 25, GameTime: time.Now(),
	}))

	res, err := fx.svc.Backtest(m.ID, 1, domain.MarketPoints, 100)
	require.NoError(t, err)
	assert.Zero(t, res.Sample)
}

func TestBacktestOwnerScoped(t *testing.T) {
	fx := newModelFixture(t)
	m := balancedModel(1)
	require.NoError(t, fx.svc.Create(m))
	_, err := fx.svc.Backtest(m.ID, 2, "", 100)
	assert.ErrorIs(t, err, ErrModelNotFound)
}
