package telegram

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/localization"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandStorage defines the storage methods the bot commands read.
type CommandStorage interface {
	GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error)
	ListHistory(ctx context.Context, complaintID uint) ([]models.ComplaintHistory, error)
	CountComplaintsByStatus(ctx context.Context) (map[models.Status]int64, error)
}

// CommandHandler answers bot commands. Everything except /start and /help is
// restricted to the configured admin chat.
type CommandHandler struct {
	Storage     CommandStorage
	Localizer   *localization.Localizer
	Lang        string
	AdminChatID int64
}

// Handle returns the reply text for msg, or "" when msg is not a command.
func (h *CommandHandler) Handle(ctx context.Context, msg *tgbotapi.Message) string {
	if msg == nil || !msg.IsCommand() {
		return ""
	}
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		return h.Localizer.Format(h.Lang, "start_message", chatID)
	case "help":
		return h.Localizer.GetString(h.Lang, "help_message")
	case "stats", "complaint":
		if chatID != h.AdminChatID {
			return h.Localizer.GetString(h.Lang, "not_admin_chat")
		}
	default:
		return h.Localizer.GetString(h.Lang, "unknown_command")
	}

	if msg.Command() == "stats" {
		return h.stats(ctx)
	}
	return h.complaintStatus(ctx, msg.CommandArguments())
}

func (h *CommandHandler) stats(ctx context.Context) string {
	counts, err := h.Storage.CountComplaintsByStatus(ctx)
	if err != nil {
		log.Printf("ERROR: Failed to count complaints for /stats: %v", err)
		return h.Localizer.GetString(h.Lang, "error_generic")
	}
	summary := analysis.Summarize(counts)

	var b strings.Builder
	b.WriteString(h.Localizer.Format(h.Lang, "stats_message", summary.Total, summary.Open, summary.Finished))
	for _, status := range models.Statuses {
		b.WriteString("\n")
		b.WriteString(h.Localizer.StatusLabel(h.Lang, status))
		b.WriteString(": ")
		b.WriteString(strconv.FormatInt(summary.ByStatus[status], 10))
	}
	return b.String()
}

func (h *CommandHandler) complaintStatus(ctx context.Context, args string) string {
	id, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), "#")), 10, 64)
	if err != nil || id == 0 {
		return h.Localizer.GetString(h.Lang, "usage_complaint")
	}

	complaint, err := h.Storage.GetComplaintByID(ctx, uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return h.Localizer.Format(h.Lang, "complaint_not_found", id)
	}
	if err != nil {
		log.Printf("ERROR: Failed to load complaint %d for /complaint: %v", id, err)
		return h.Localizer.GetString(h.Lang, "error_generic")
	}

	history, err := h.Storage.ListHistory(ctx, complaint.ID)
	if err != nil {
		log.Printf("ERROR: Failed to load history of complaint %d: %v", id, err)
		return h.Localizer.GetString(h.Lang, "error_generic")
	}
	return h.Localizer.Format(h.Lang, "complaint_status", complaint.ID, h.Localizer.StatusLabel(h.Lang, complaint.Status), len(history))
}
