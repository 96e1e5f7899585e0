// Package telegram connects the complaint desk to a Telegram admin chat: it
// forwards complaint events to the chat and answers a few read-only commands.
package telegram

import (
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/localization"
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotService receives Telegram updates and owns the admin notifier client.
type BotService struct {
	BotAPI   *tgbotapi.BotAPI
	Hub      *eventhub.ManagerService
	Commands *CommandHandler
	Notifier *Client
}

// NewBotService authorizes the bot and prepares the admin chat notifier.
func NewBotService(token string, adminChatID int64, lang string, hub *eventhub.ManagerService, s CommandStorage, localizer *localization.Localizer) (*BotService, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authorize telegram bot: %w", err)
	}
	bot.Debug = false
	log.Printf("INFO: ✅ Authorized on account %s", bot.Self.UserName)

	return &BotService{
		BotAPI: bot,
		Hub:    hub,
		Commands: &CommandHandler{
			Storage:     s,
			Localizer:   localizer,
			Lang:        lang,
			AdminChatID: adminChatID,
		},
		Notifier: NewClient(bot, adminChatID, lang, localizer),
	}, nil
}

// Run registers the notifier with the hub and serves commands until ctx is
// cancelled.
func (s *BotService) Run(ctx context.Context) {
	if !s.Hub.Register(s.Notifier) {
		log.Println("WARNING: Event hub is not running, Telegram notifications disabled.")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}
			reply := s.Commands.Handle(ctx, update.Message)
			if reply == "" {
				continue
			}
			if _, err := s.BotAPI.Send(tgbotapi.NewMessage(update.Message.Chat.ID, reply)); err != nil {
				log.Printf("ERROR: Failed to reply to chat %d: %v", update.Message.Chat.ID, err)
			}
		}
	}
}
