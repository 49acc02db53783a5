package service

import (
	"context"
	"encoding/json"
	"fmt"

	"propdesk/internal/domain"
	"propdesk/internal/models"
	"propdesk/internal/repository"
)

type NotificationService struct {
	repo     *repository.NotificationRepository
	userRepo *repository.UserRepository
	fcm      *FCMService
}

func NewNotificationService(repo *repository.NotificationRepository, userRepo *repository.UserRepository, fcm *FCMService) *NotificationService {
	return &NotificationService{repo: repo, userRepo: userRepo, fcm: fcm}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	})
	if err != nil {
		return err
	}
	s.sendPush(userID, notifType, title, body, data)
	return nil
}

func (s *NotificationService) sendPush(userID uint, notifType, title, body string, data map[string]interface{}) {
	if s.fcm == nil || s.userRepo == nil {
		return
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u == nil || u.FCMToken == "" {
		return
	}
	_ = s.fcm.SendToUser(context.Background(), u.FCMToken, notifType, title, body, data)
}

func (s *NotificationService) NotifyBalanceCredited(userID uint, amountCents int64, sessionID string) error {
	return s.Notify(userID, domain.NotifTypeBalanceCredited, "Balance added",
		fmt.Sprintf("$%.2f was added to your account balance.", float64(amountCents)/100),
		map[string]interface{}{"amount_cents": amountCents, "checkout_session_id": sessionID})
}

func (s *NotificationService) NotifyPremiumGranted(userID uint) error {
	return s.Notify(userID, domain.NotifTypePremiumGranted, "Premium unlocked",
		"Your premium access is active. The full board and backtesting are unlocked.", nil)
}

// NotifyPropSettled fans out to every member watching the player.
func (s *NotificationService) NotifyPropSettled(watcherIDs []uint, prop *models.Prop, actual float64) {
	for _, id := range watcherIDs {
		_ = s.Notify(id, domain.NotifTypePropSettled, "Prop settled",
			fmt.Sprintf("%s %s %.1f settled at %.1f", prop.Player, prop.Market, prop.Line, actual),
			map[string]interface{}{"prop_id": prop.ID, "actual": actual})
	}
}
