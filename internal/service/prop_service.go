package service

import (
	"errors"
	"log"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"
	"propdesk/internal/ws"
)

var (
	ErrInvalidMarket = errors.New("unknown market")
	ErrPropSettled   = errors.New("prop already settled")
)

// FreeBoardLimit caps how much of the board free members see.
const FreeBoardLimit = 10

type PropService struct {
	props     *repository.PropRepository
	watchlist *repository.WatchlistRepository
	notif     *NotificationService
	hub       *ws.PropsHub
}

func NewPropService(props *repository.PropRepository, watchlist *repository.WatchlistRepository, notif *NotificationService, hub *ws.PropsHub) *PropService {
	return &PropService{props: props, watchlist: watchlist, notif: notif, hub: hub}
}

func validMarket(market string) bool {
	for _, m := range domain.Markets {
		if m == market {
			return true
		}
	}
	return false
}

// Board lists props for the member. Free members get a truncated board;
// premium members get everything the filter matches.
func (s *PropService) Board(f repository.PropFilter, premium bool) ([]models.Prop, bool, error) {
	if !premium && (f.Limit <= 0 || f.Limit > FreeBoardLimit) {
		f.Limit = FreeBoardLimit
	}
	list, err := s.props.List(f)
	if err != nil {
		return nil, false, err
	}
	truncated := !premium && len(list) == FreeBoardLimit
	return list, truncated, nil
}

func (s *PropService) Get(id uint) (*models.Prop, error) {
	return s.props.GetByID(id)
}

func (s *PropService) Create(p *models.Prop) error {
	if !validMarket(p.Market) {
		return ErrInvalidMarket
	}
	if p.Status == "" {
		p.Status = domain.PropStatusOpen
	}
	if err := s.props.Create(p); err != nil {
		return err
	}
	s.broadcast("prop_created", p)
	return nil
}

func (s *PropService) Update(p *models.Prop) error {
	if !validMarket(p.Market) {
		return ErrInvalidMarket
	}
	if err := s.props.Update(p); err != nil {
		return err
	}
	s.broadcast("prop_updated", p)
	return nil
}

// Settle records the actual stat line, closes the prop and notifies
// watchers. Re-settling overwrites the result (stat corrections happen).
func (s *PropService) Settle(propID uint, actual float64) (*models.Prop, error) {
	p, err := s.props.GetByID(propID)
	if err != nil {
		return nil, err
	}
	if err := s.props.UpsertResult(&models.PropResult{PropID: p.ID, Actual: actual}); err != nil {
		return nil, err
	}
	p.Status = domain.PropStatusSettled
	if err := s.props.Update(p); err != nil {
		return nil, err
	}
	s.broadcast("prop_settled", p)
	if s.watchlist != nil && s.notif != nil {
		watchers, err := s.watchlist.ListWatcherIDs(p.Player)
		if err != nil {
			log.Printf("[props] list watchers for %s: %v", p.Player, err)
		} else {
			s.notif.NotifyPropSettled(watchers, p, actual)
		}
	}
	return p, nil
}

func (s *PropService) broadcast(event string, p *models.Prop) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastPropEvent(ws.PropEvent{Type: event, Prop: p})
}
