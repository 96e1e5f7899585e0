package telegram

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the notifier needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client реалізує інтерфейс eventhub.Client для адмін-чату Telegram.
// Він отримує всі події і пересилає їх як текстові повідомлення.
type Client struct {
	ChatID    int64
	Lang      string
	BotAPI    Sender
	Localizer *localization.Localizer
	Send      chan models.ComplaintEvent

	done chan struct{}
}

func NewClient(bot Sender, chatID int64, lang string, localizer *localization.Localizer) *Client {
	return &Client{
		ChatID:    chatID,
		Lang:      lang,
		BotAPI:    bot,
		Localizer: localizer,
		Send:      make(chan models.ComplaintEvent, config.ClientBufferSize),
		done:      make(chan struct{}),
	}
}

func (c *Client) GetClientID() string                          { return fmt.Sprintf("telegram:%d", c.ChatID) }
func (c *Client) GetUserID() string                            { return c.GetClientID() }
func (c *Client) IsAdmin() bool                                { return true }
func (c *Client) GetSendChannel() chan<- models.ComplaintEvent { return c.Send }

// Run запускає 'write pump'.
func (c *Client) Run() {
	go c.writePump()
}

// Close закриває Send канал
func (c *Client) Close() {
	close(c.Send)
}

// Done is closed once every queued event has been delivered after Close.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) writePump() {
	defer close(c.done)

	for event := range c.Send {
		msg := tgbotapi.NewMessage(c.ChatID, FormatEvent(c.Localizer, c.Lang, event))
		if _, err := c.BotAPI.Send(msg); err != nil {
			log.Printf("ERROR: Failed to notify Telegram chat %d about complaint %d: %v", c.ChatID, event.ComplaintID, err)
		}
	}
	log.Printf("INFO: Telegram notifier for chat %d stopped.", c.ChatID)
}

// FormatEvent renders event as a one-line localized notification.
func FormatEvent(l *localization.Localizer, lang string, event models.ComplaintEvent) string {
	switch event.Action {
	case models.ActionCreated:
		return l.Format(lang, "event_created", event.ComplaintID)
	case models.ActionStatusChanged:
		var from, to string
		if event.OldStatus != nil {
			from = l.StatusLabel(lang, *event.OldStatus)
		}
		if event.NewStatus != nil {
			to = l.StatusLabel(lang, *event.NewStatus)
		}
		return l.Format(lang, "event_status_changed", event.ComplaintID, from, to)
	case models.ActionAdminResponse:
		return l.Format(lang, "event_admin_response", event.ComplaintID, event.Comment)
	case models.ActionFeedback:
		return l.Format(lang, "event_feedback", event.ComplaintID, event.Comment)
	default:
		return fmt.Sprintf("#%d: %s", event.ComplaintID, event.Action)
	}
}
