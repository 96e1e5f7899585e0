// Package storage persists users, categories, complaints and their audit
// history, and fans out complaint events to live subscribers.
package storage

import (
	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ComplaintFilter narrows ListComplaints. Zero values mean "no constraint".
type ComplaintFilter struct {
	UserID string
	Status models.Status
	Search string
	Offset int
	Limit  int
}

type Storage interface {
	// Transaction runs fn against a transactional view of the store. All writes
	// made through tx commit together when fn returns nil and are discarded
	// otherwise.
	Transaction(ctx context.Context, fn func(tx Storage) error) error

	SaveUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateUserRole(ctx context.Context, id string, role models.Role) error
	DeleteUser(ctx context.Context, id string) error

	SaveCategory(ctx context.Context, category *models.Category) error
	GetCategoryByID(ctx context.Context, id uint) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id uint) error

	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error)
	GetComplaintDetail(ctx context.Context, id uint) (*models.Complaint, error)
	// LockComplaint loads a complaint and holds a row lock on it until the
	// surrounding transaction ends.
	LockComplaint(ctx context.Context, id uint) (*models.Complaint, error)
	UpdateComplaintStatus(ctx context.Context, id uint, status models.Status) error
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error)
	CountComplaintsByStatus(ctx context.Context) (map[models.Status]int64, error)

	CreateAdminResponse(ctx context.Context, response *models.AdminResponse) error
	CreateFeedback(ctx context.Context, feedback *models.Feedback) error

	AppendHistory(ctx context.Context, entry *models.ComplaintHistory) error
	ListHistory(ctx context.Context, complaintID uint) ([]models.ComplaintHistory, error)

	PublishEvent(ctx context.Context, event models.ComplaintEvent) error
}

// EventSource delivers published complaint events until ctx is cancelled.
type EventSource interface {
	SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error)
}

// Service is the PostgreSQL (gorm) implementation of Storage. Events go through
// Redis Pub/Sub when a client is configured and through an in-process bus
// otherwise.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client

	bus *localBus
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		bus:   newLocalBus(),
	}
}

func (s *Service) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Service{DB: tx, Redis: s.Redis, bus: s.bus})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// SaveUser зберігає користувача в PostgreSQL
func (s *Service) SaveUser(ctx context.Context, user *models.User) error {
	return s.DB.WithContext(ctx).Save(user).Error
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Service) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	result := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser видаляє користувача. Каскад на скарги та SET NULL в історії
// забезпечують зовнішні ключі.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	result := s.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) SaveCategory(ctx context.Context, category *models.Category) error {
	return s.DB.WithContext(ctx).Save(category).Error
}

func (s *Service) GetCategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := s.DB.WithContext(ctx).Order("title asc, id asc").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *Service) DeleteCategory(ctx context.Context, id uint) error {
	result := s.DB.WithContext(ctx).Delete(&models.Category{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	if complaint.Status == "" {
		complaint.Status = models.StatusNew
	}

	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(complaint).Error; err != nil {
		log.Printf("ERROR: Failed to save complaint for user %s: %v", complaint.UserID, err)
		return err
	}
	return nil
}

func (s *Service) GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.DB.WithContext(ctx).First(&complaint, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &complaint, nil
}

func (s *Service) GetComplaintDetail(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.DB.WithContext(ctx).
		Preload("Category").
		Preload("Responses", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		Preload("Feedback", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc, id asc") }).
		First(&complaint, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &complaint, nil
}

func (s *Service) LockComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.DB.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&complaint, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &complaint, nil
}

func (s *Service) UpdateComplaintStatus(ctx context.Context, id uint, status models.Status) error {
	result := s.DB.WithContext(ctx).Model(&models.Complaint{ID: id}).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// escapeLike екранує спецсимволи LIKE у пошуковому запиті.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Service) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error) {
	q := s.DB.WithContext(ctx).Model(&models.Complaint{})
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		q = q.Where("LOWER(text) LIKE ?", "%"+escapeLike(strings.ToLower(term))+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var complaints []models.Complaint
	q = q.Order("created_at desc, id desc").Offset(max(filter.Offset, 0))
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&complaints).Error; err != nil {
		log.Printf("ERROR: Failed to list complaints: %v", err)
		return nil, 0, err
	}
	return complaints, total, nil
}

func (s *Service) CountComplaintsByStatus(ctx context.Context) (map[models.Status]int64, error) {
	var rows []struct {
		Status models.Status
		Count  int64
	}
	err := s.DB.WithContext(ctx).Model(&models.Complaint{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Status]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

func (s *Service) CreateAdminResponse(ctx context.Context, response *models.AdminResponse) error {
	return s.DB.WithContext(ctx).Omit(clause.Associations).Create(response).Error
}

func (s *Service) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	return s.DB.WithContext(ctx).Omit(clause.Associations).Create(feedback).Error
}

// AppendHistory додає запис до журналу. Методів оновлення чи видалення
// журналу немає навмисно.
func (s *Service) AppendHistory(ctx context.Context, entry *models.ComplaintHistory) error {
	if err := s.DB.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		log.Printf("ERROR: Failed to append %s history for complaint %d: %v", entry.Action, entry.ComplaintID, err)
		return err
	}
	return nil
}

// ListHistory повертає історію скарги, відсортовану за часом створення.
func (s *Service) ListHistory(ctx context.Context, complaintID uint) ([]models.ComplaintHistory, error) {
	history := []models.ComplaintHistory{}
	err := s.DB.WithContext(ctx).
		Preload("User").
		Where("complaint_id = ?", complaintID).
		Order("created_at asc, id asc").
		Find(&history).Error
	if err != nil {
		log.Printf("ERROR: Failed to get history for complaint %d: %v", complaintID, err)
		return nil, err
	}
	return history, nil
}

// PublishEvent публікує подію в Redis Pub/Sub або в локальну шину.
func (s *Service) PublishEvent(ctx context.Context, event models.ComplaintEvent) error {
	if s.Redis == nil {
		s.bus.publish(event)
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, config.EventChannel, payload).Err()
}

// SubscribeEvents слухає канал подій до скасування ctx.
func (s *Service) SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	if s.Redis == nil {
		return s.bus.subscribe(ctx), nil
	}

	pubsub := s.Redis.Subscribe(ctx, config.EventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", config.EventChannel, err)
	}

	out := make(chan models.ComplaintEvent, config.EventBufferSize)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var event models.ComplaintEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					log.Printf("WARNING: Error unmarshalling Redis event: %v", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
