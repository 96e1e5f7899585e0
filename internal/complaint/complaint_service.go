// Package complaint provides the core logic for handling client complaints:
// submission, admin responses, status changes and feedback. Every mutation is
// paired with exactly one audit history row inside the same transaction.
package complaint

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"complaintdesk/backend/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"unicode/utf8"
)

const msgBlank = "This field may not be blank."

// Service handles the business logic for complaints.
type Service struct {
	Storage storage.Storage
}

// NewService creates a new complaint service.
func NewService(s storage.Storage) *Service {
	return &Service{Storage: s}
}

// ListFilter is the caller-supplied part of a complaint listing.
type ListFilter struct {
	Status   string
	Search   string
	Page     int
	PageSize int
}

// Page is one page of a complaint listing. Next and Previous are page numbers,
// nil at the ends.
type Page struct {
	Count    int64              `json:"count"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Next     *int               `json:"next"`
	Previous *int               `json:"previous"`
	Results  []models.Complaint `json:"results"`
}

func lookupErr(err error, resource string, id any) error {
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError(resource, id)
	}
	return fmt.Errorf("load %s %v: %w", resource, id, err)
}

func actorOf(user *models.User) *string {
	id := user.ID
	return &id
}

func (s *Service) appendHistory(ctx context.Context, tx storage.Storage, entry *models.ComplaintHistory) error {
	if err := tx.AppendHistory(ctx, entry); err != nil {
		return fmt.Errorf("append %s history: %w", entry.Action, err)
	}
	return nil
}

// publish fans the committed history row out to live subscribers. The audit
// row is already durable, so a failed publish is only logged.
func (s *Service) publish(ctx context.Context, entry *models.ComplaintHistory, ownerID string) {
	if err := s.Storage.PublishEvent(ctx, models.NewComplaintEvent(entry, ownerID)); err != nil {
		log.Printf("WARNING: Failed to publish %s event for complaint %d: %v", entry.Action, entry.ComplaintID, err)
	}
}

// Submit creates a complaint owned by user with status NEW and records CREATED.
func (s *Service) Submit(ctx context.Context, user *models.User, text string, categoryID *uint) (*models.Complaint, error) {
	if user == nil {
		return nil, NewAuthorizationError("submit complaint")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, NewValidationError("text", msgBlank)
	}
	if utf8.RuneCountInString(text) > config.MaxComplaintTextLength {
		return nil, NewValidationError("text", fmt.Sprintf("Ensure this field has no more than %d characters.", config.MaxComplaintTextLength))
	}

	complaint := &models.Complaint{
		Text:       text,
		Status:     models.StatusNew,
		UserID:     user.ID,
		CategoryID: categoryID,
	}
	var entry *models.ComplaintHistory

	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		if categoryID != nil {
			if _, err := tx.GetCategoryByID(ctx, *categoryID); err != nil {
				return lookupErr(err, "category", *categoryID)
			}
		}
		if err := tx.CreateComplaint(ctx, complaint); err != nil {
			return fmt.Errorf("create complaint: %w", err)
		}

		entry = &models.ComplaintHistory{
			ComplaintID: complaint.ID,
			UserID:      actorOf(user),
			Action:      models.ActionCreated,
			NewStatus:   models.StatusPtr(complaint.Status),
		}
		return s.appendHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("INFO: Complaint %d submitted by user %s", complaint.ID, user.ID)
	s.publish(ctx, entry, complaint.UserID)
	return complaint, nil
}

// Respond stores an admin reply and records ADMIN_RESPONSE. The complaint
// status is not touched.
func (s *Service) Respond(ctx context.Context, admin *models.User, complaintID uint, responseText string) (*models.AdminResponse, error) {
	if !admin.IsAdmin() {
		return nil, NewAuthorizationError("respond to complaint")
	}
	responseText = strings.TrimSpace(responseText)
	if responseText == "" {
		return nil, NewValidationError("response_text", msgBlank)
	}

	response := &models.AdminResponse{
		ComplaintID:  complaintID,
		AdminID:      admin.ID,
		ResponseText: responseText,
	}
	var entry *models.ComplaintHistory
	var ownerID string

	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		complaint, err := tx.GetComplaintByID(ctx, complaintID)
		if err != nil {
			return lookupErr(err, "complaint", complaintID)
		}
		ownerID = complaint.UserID

		if err := tx.CreateAdminResponse(ctx, response); err != nil {
			return fmt.Errorf("create admin response: %w", err)
		}

		entry = &models.ComplaintHistory{
			ComplaintID: complaintID,
			UserID:      actorOf(admin),
			Action:      models.ActionAdminResponse,
			Comment:     responseText,
		}
		return s.appendHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entry, ownerID)
	return response, nil
}

// UpdateStatus moves a complaint to newStatus. The old status is read under a
// row lock before the write, and STATUS_CHANGED is recorded only when the
// status actually changes; a no-op update leaves no trace.
func (s *Service) UpdateStatus(ctx context.Context, admin *models.User, complaintID uint, newStatus models.Status) (*models.Complaint, error) {
	if !admin.IsAdmin() {
		return nil, NewAuthorizationError("update complaint status")
	}
	if !newStatus.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("%q is not a valid choice.", string(newStatus)))
	}

	var result *models.Complaint
	var entry *models.ComplaintHistory

	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		complaint, err := tx.LockComplaint(ctx, complaintID)
		if err != nil {
			return lookupErr(err, "complaint", complaintID)
		}

		oldStatus := complaint.Status
		if oldStatus == newStatus {
			result = complaint
			return nil
		}

		if err := tx.UpdateComplaintStatus(ctx, complaintID, newStatus); err != nil {
			return fmt.Errorf("update complaint status: %w", err)
		}

		entry = &models.ComplaintHistory{
			ComplaintID: complaintID,
			UserID:      actorOf(admin),
			Action:      models.ActionStatusChanged,
			OldStatus:   models.StatusPtr(oldStatus),
			NewStatus:   models.StatusPtr(newStatus),
		}
		if err := s.appendHistory(ctx, tx, entry); err != nil {
			return err
		}

		result, err = tx.GetComplaintByID(ctx, complaintID)
		if err != nil {
			return lookupErr(err, "complaint", complaintID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		log.Printf("INFO: Complaint %d status %s -> %s by admin %s", complaintID, *entry.OldStatus, newStatus, admin.ID)
		s.publish(ctx, entry, result.UserID)
	}
	return result, nil
}

// GiveFeedback stores the owner's feedback and records FEEDBACK.
func (s *Service) GiveFeedback(ctx context.Context, user *models.User, complaintID uint, comment string, accepted bool) (*models.Feedback, error) {
	if user == nil {
		return nil, NewAuthorizationError("give feedback")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, NewValidationError("comment", msgBlank)
	}

	feedback := &models.Feedback{
		ComplaintID: complaintID,
		UserID:      user.ID,
		Comment:     comment,
		IsAccepted:  accepted,
	}
	var entry *models.ComplaintHistory

	err := s.Storage.Transaction(ctx, func(tx storage.Storage) error {
		complaint, err := tx.GetComplaintByID(ctx, complaintID)
		if err != nil {
			return lookupErr(err, "complaint", complaintID)
		}
		if !complaint.IsOwnedBy(user) {
			return NewAuthorizationError("give feedback")
		}

		if err := tx.CreateFeedback(ctx, feedback); err != nil {
			return fmt.Errorf("create feedback: %w", err)
		}

		entry = &models.ComplaintHistory{
			ComplaintID: complaintID,
			UserID:      actorOf(user),
			Action:      models.ActionFeedback,
			Comment:     comment,
		}
		return s.appendHistory(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, entry, user.ID)
	return feedback, nil
}

// canView reports whether user may read complaint: its owner or any admin.
func canView(user *models.User, complaint *models.Complaint) bool {
	return user.IsAdmin() || complaint.IsOwnedBy(user)
}

// ListHistory returns the complaint's audit trail in ascending time order.
func (s *Service) ListHistory(ctx context.Context, user *models.User, complaintID uint) ([]models.ComplaintHistory, error) {
	complaint, err := s.Storage.GetComplaintByID(ctx, complaintID)
	if err != nil {
		return nil, lookupErr(err, "complaint", complaintID)
	}
	if !canView(user, complaint) {
		return nil, NewAuthorizationError("view complaint history")
	}

	history, err := s.Storage.ListHistory(ctx, complaintID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if history == nil {
		history = []models.ComplaintHistory{}
	}
	return history, nil
}

// GetComplaint returns the complaint with its category, responses and feedback.
func (s *Service) GetComplaint(ctx context.Context, user *models.User, complaintID uint) (*models.Complaint, error) {
	complaint, err := s.Storage.GetComplaintDetail(ctx, complaintID)
	if err != nil {
		return nil, lookupErr(err, "complaint", complaintID)
	}
	if !canView(user, complaint) {
		return nil, NewAuthorizationError("view complaint")
	}
	return complaint, nil
}

// ListOwn lists the complaints submitted by user.
func (s *Service) ListOwn(ctx context.Context, user *models.User, filter ListFilter) (*Page, error) {
	if user == nil {
		return nil, NewAuthorizationError("list complaints")
	}
	return s.list(ctx, user.ID, filter)
}

// ListAll lists every complaint; admins only.
func (s *Service) ListAll(ctx context.Context, admin *models.User, filter ListFilter) (*Page, error) {
	if !admin.IsAdmin() {
		return nil, NewAuthorizationError("list all complaints")
	}
	return s.list(ctx, "", filter)
}

func (s *Service) list(ctx context.Context, ownerID string, filter ListFilter) (*Page, error) {
	status := models.Status(strings.ToUpper(strings.TrimSpace(filter.Status)))
	if status != "" && !status.Valid() {
		return nil, NewValidationError("status", fmt.Sprintf("%q is not a valid choice.", filter.Status))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = config.DefaultPageSize
	}
	if size > config.MaxPageSize {
		size = config.MaxPageSize
	}
	// (page-1)*size і page*size мають влазити в int
	if page > math.MaxInt/size {
		page = math.MaxInt / size
	}

	complaints, total, err := s.Storage.ListComplaints(ctx, storage.ComplaintFilter{
		UserID: ownerID,
		Status: status,
		Search: filter.Search,
		Offset: (page - 1) * size,
		Limit:  size,
	})
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	if complaints == nil {
		complaints = []models.Complaint{}
	}

	result := &Page{Count: total, Page: page, PageSize: size, Results: complaints}
	if int64(page*size) < total {
		next := page + 1
		result.Next = &next
	}
	if page > 1 {
		prev := page - 1
		result.Previous = &prev
	}
	return result, nil
}

// Stats summarizes complaint counts per status; admins only.
func (s *Service) Stats(ctx context.Context, admin *models.User) (analysis.Summary, error) {
	if !admin.IsAdmin() {
		return analysis.Summary{}, NewAuthorizationError("view stats")
	}
	counts, err := s.Storage.CountComplaintsByStatus(ctx)
	if err != nil {
		return analysis.Summary{}, fmt.Errorf("count complaints: %w", err)
	}
	return analysis.Summarize(counts), nil
}

// ListCategories returns every category ordered by title.
func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.Storage.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

// CreateCategory adds a category; admins only.
func (s *Service) CreateCategory(ctx context.Context, admin *models.User, title, description string) (*models.Category, error) {
	if !admin.IsAdmin() {
		return nil, NewAuthorizationError("create category")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, NewValidationError("title", msgBlank)
	}
	if utf8.RuneCountInString(title) > config.MaxCategoryTitleLength {
		return nil, NewValidationError("title", fmt.Sprintf("Ensure this field has no more than %d characters.", config.MaxCategoryTitleLength))
	}

	category := &models.Category{Title: title, Description: strings.TrimSpace(description)}
	if err := s.Storage.SaveCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("save category: %w", err)
	}
	return category, nil
}
