package service

import (
	"errors"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"

	"gorm.io/gorm"
)

var (
	ErrInvalidWeights = errors.New("season and recent-form weights must be non-negative and sum to a positive number")
	ErrModelLimit     = errors.New("model limit reached")
	ErrModelNotFound  = errors.New("model not found")
)

// MaxModelsPerUser keeps one member from hoarding models.
const MaxModelsPerUser = 20

type ModelService struct {
	repo  *repository.ModelRepository
	props *repository.PropRepository
}

func NewModelService(repo *repository.ModelRepository, props *repository.PropRepository) *ModelService {
	return &ModelService{repo: repo, props: props}
}

func validWeights(m *models.UserModel) bool {
	if m.WeightSeasonAvg < 0 || m.WeightRecentForm < 0 {
		return false
	}
	return m.WeightSeasonAvg+m.WeightRecentForm > 0
}

func (s *ModelService) Create(m *models.UserModel) error {
	if !validWeights(m) {
		return ErrInvalidWeights
	}
	count, err := s.repo.CountByUserID(m.UserID)
	if err != nil {
		return err
	}
	if count >= MaxModelsPerUser {
		return ErrModelLimit
	}
	return s.repo.Create(m)
}

func (s *ModelService) Update(id, userID uint, apply func(*models.UserModel)) (*models.UserModel, error) {
	m, err := s.repo.GetByIDForUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	apply(m)
	if !validWeights(m) {
		return nil, ErrInvalidWeights
	}
	return m, s.repo.Update(m)
}

func (s *ModelService) List(userID uint) ([]models.UserModel, error) {
	return s.repo.ListByUserID(userID)
}

func (s *ModelService) Delete(id, userID uint) error {
	return s.repo.Delete(id, userID)
}

// Projection is the model's predicted stat line for a prop. The two
// averages are blended by normalized weights, then nudged by opponent
// strength and venue. Deterministic: same model and prop always project
// the same number.
func Projection(m *models.UserModel, p *models.Prop) float64 {
	wSum := m.WeightSeasonAvg + m.WeightRecentForm
	base := (p.SeasonAvg*m.WeightSeasonAvg + p.Last5Avg*m.WeightRecentForm) / wSum

	// opponent_rank 1 is the toughest matchup, 30 the softest; center on
	// the league median so the nudge is signed
	opp := (float64(p.OpponentRank) - 15.5) / 14.5
	base += opp * m.WeightOpponent

	if p.HomeGame {
		base += m.WeightHomeAway
	} else {
		base -= m.WeightHomeAway
	}
	return base
}

type BacktestPick struct {
	PropID     uint    `json:"prop_id"`
	Player     string  `json:"player"`
	Market     string  `json:"market"`
	Line       float64 `json:"line"`
	Projection float64 `json:"projection"`
	Pick       string  `json:"pick"`
	Actual     float64 `json:"actual"`
	Hit        bool    `json:"hit"`
	Push       bool    `json:"push"`
}

type BacktestResult struct {
	ModelID uint           `json:"model_id"`
	Sample  int            `json:"sample"`
	Hits    int            `json:"hits"`
	Pushes  int            `json:"pushes"`
	HitRate float64        `json:"hit_rate"` // pushes excluded from the denominator
	Picks   []BacktestPick `json:"picks"`
}

// Backtest replays the model over settled props: project, pick the side,
// compare to the actual. Pushes (actual lands exactly on the line) are
// excluded from the hit rate.
func (s *ModelService) Backtest(id, userID uint, market string, limit int) (*BacktestResult, error) {
	m, err := s.repo.GetByIDForUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrModelNotFound
		}
		return nil, err
	}
	props, err := s.props.ListSettled(market, limit)
	if err != nil {
		return nil, err
	}
	res := &BacktestResult{ModelID: m.ID, Picks: make([]BacktestPick, 0, len(props))}
	for i := range props {
		p := &props[i]
		if p.Result == nil {
			continue
		}
		proj := Projection(m, p)
		pick := domain.PickUnder
		if proj > p.Line {
			pick = domain.PickOver
		}
		actual := p.Result.Actual
		bp := BacktestPick{
			PropID:     p.ID,
			Player:     p.Player,
			Market:     p.Market,
			Line:       p.Line,
			Projection: proj,
			Pick:       pick,
			Actual:     actual,
		}
		switch {
		case actual == p.Line:
			bp.Push = true
			res.Pushes++
		case (pick == domain.PickOver && actual > p.Line) || (pick == domain.PickUnder && actual < p.Line):
			bp.Hit = true
			res.Hits++
		}
		res.Picks = append(res.Picks, bp)
		res.Sample++
	}
	if decided := res.Sample - res.Pushes; decided > 0 {
		res.HitRate = float64(res.Hits) / float64(decided)
	}
	return res, nil
}
