// internal/infra/telegram/notifier.go
package telegram

import (
	"fmt"

	"outreach_automation/internal/domain/delivery"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// OpsNotifier pushes operational events (campaign completions, dead-lettered
// deliveries) to a Telegram chat. Send failures are logged and never propagate
// into the scheduling or delivery path.
type OpsNotifier struct {
	bot    *telebot.Bot
	chatID int64
	logger *logrus.Logger
}

func NewOpsNotifier(token string, chatID int64, logger *logrus.Logger) (*OpsNotifier, error) {
	bot, err := telebot.NewBot(telebot.Settings{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return &OpsNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (n *OpsNotifier) CampaignCompleted(campaignID, name string) {
	n.send(fmt.Sprintf("Campaign %q (%s) ran its full duration and is now COMPLETED.", name, campaignID))
}

func (n *OpsNotifier) DeliveryDeadLettered(job delivery.DispatchJob, cause error) {
	n.send(fmt.Sprintf("Delivery job %s was dead-lettered: %v", job.ID(), cause))
}

func (n *OpsNotifier) send(text string) {
	if _, err := n.bot.Send(&telebot.Chat{ID: n.chatID}, text); err != nil {
		n.logger.Errorf("telegram: failed to send ops notification: %v", err)
	}
}
