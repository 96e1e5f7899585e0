package storage

import (
	"complaintdesk/backend/internal/models"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	_ Storage     = (*Memory)(nil)
	_ EventSource = (*Memory)(nil)
	_ Storage     = (*Service)(nil)
	_ EventSource = (*Service)(nil)
)

// Memory is an in-process Storage used for local runs (STORAGE_DRIVER=memory)
// and tests. Transactions work on a copy of the data and are serialized on a
// single mutex, so they are atomic and isolated from each other.
type Memory struct {
	mu    *sync.Mutex
	data  *memData
	bus   *localBus
	clock func() time.Time
	inTx  bool
}

type memData struct {
	users      map[string]models.User
	categories map[uint]models.Category
	complaints map[uint]models.Complaint
	responses  map[uint]models.AdminResponse
	feedback   map[uint]models.Feedback
	history    map[uint]models.ComplaintHistory
	seq        map[string]uint
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *Memory {
	return &Memory{
		mu: &sync.Mutex{},
		data: &memData{
			users:      make(map[string]models.User),
			categories: make(map[uint]models.Category),
			complaints: make(map[uint]models.Complaint),
			responses:  make(map[uint]models.AdminResponse),
			feedback:   make(map[uint]models.Feedback),
			history:    make(map[uint]models.ComplaintHistory),
			seq:        make(map[string]uint),
		},
		bus:   newLocalBus(),
		clock: time.Now,
	}
}

// SetClock replaces the time source used for CreatedAt/UpdatedAt.
func (m *Memory) SetClock(clock func() time.Time) {
	m.clock = clock
}

func (d *memData) clone() *memData {
	c := &memData{
		users:      make(map[string]models.User, len(d.users)),
		categories: make(map[uint]models.Category, len(d.categories)),
		complaints: make(map[uint]models.Complaint, len(d.complaints)),
		responses:  make(map[uint]models.AdminResponse, len(d.responses)),
		feedback:   make(map[uint]models.Feedback, len(d.feedback)),
		history:    make(map[uint]models.ComplaintHistory, len(d.history)),
		seq:        make(map[string]uint, len(d.seq)),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.categories {
		c.categories[k] = v
	}
	for k, v := range d.complaints {
		c.complaints[k] = v
	}
	for k, v := range d.responses {
		c.responses[k] = v
	}
	for k, v := range d.feedback {
		c.feedback[k] = v
	}
	for k, v := range d.history {
		c.history[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	return c
}

func (d *memData) next(table string) uint {
	d.seq[table]++
	return d.seq[table]
}

// lock returns the matching unlock. Inside a transaction the mutex is already
// held by Transaction.
func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) Transaction(ctx context.Context, fn func(tx Storage) error) error {
	if m.inTx {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &Memory{mu: m.mu, data: m.data.clone(), bus: m.bus, clock: m.clock, inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	m.data = tx.data
	return nil
}

func (m *Memory) SaveUser(ctx context.Context, user *models.User) error {
	defer m.lock()()

	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	for id, u := range m.data.users {
		if id != user.ID && u.Username == user.Username {
			return fmt.Errorf("duplicate username %q", user.Username)
		}
	}
	m.data.users[user.ID] = *user
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	defer m.lock()()

	u, ok := m.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer m.lock()()

	for _, u := range m.data.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	defer m.lock()()

	u, ok := m.data.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	m.data.users[id] = u
	return nil
}

// DeleteUser mirrors the foreign keys of the SQL schema: owned complaints and
// everything under them cascade, history rows written by the user keep
// existing with a NULL actor.
func (m *Memory) DeleteUser(ctx context.Context, id string) error {
	defer m.lock()()

	if _, ok := m.data.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.users, id)

	for cid, c := range m.data.complaints {
		if c.UserID == id {
			m.deleteComplaintLocked(cid)
		}
	}
	for rid, r := range m.data.responses {
		if r.AdminID == id {
			delete(m.data.responses, rid)
		}
	}
	for fid, f := range m.data.feedback {
		if f.UserID == id {
			delete(m.data.feedback, fid)
		}
	}
	for hid, h := range m.data.history {
		if h.UserID != nil && *h.UserID == id {
			h.UserID = nil
			m.data.history[hid] = h
		}
	}
	return nil
}

func (m *Memory) deleteComplaintLocked(id uint) {
	delete(m.data.complaints, id)
	for rid, r := range m.data.responses {
		if r.ComplaintID == id {
			delete(m.data.responses, rid)
		}
	}
	for fid, f := range m.data.feedback {
		if f.ComplaintID == id {
			delete(m.data.feedback, fid)
		}
	}
	for hid, h := range m.data.history {
		if h.ComplaintID == id {
			delete(m.data.history, hid)
		}
	}
}

func (m *Memory) SaveCategory(ctx context.Context, category *models.Category) error {
	defer m.lock()()

	if category.ID == 0 {
		category.ID = m.data.next("categories")
	}
	m.data.categories[category.ID] = *category
	return nil
}

func (m *Memory) GetCategoryByID(ctx context.Context, id uint) (*models.Category, error) {
	defer m.lock()()

	c, ok := m.data.categories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) ListCategories(ctx context.Context) ([]models.Category, error) {
	defer m.lock()()

	out := make([]models.Category, 0, len(m.data.categories))
	for _, c := range m.data.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteCategory(ctx context.Context, id uint) error {
	defer m.lock()()

	if _, ok := m.data.categories[id]; !ok {
		return ErrNotFound
	}
	delete(m.data.categories, id)
	for cid, c := range m.data.complaints {
		if c.CategoryID != nil && *c.CategoryID == id {
			c.CategoryID = nil
			m.data.complaints[cid] = c
		}
	}
	return nil
}

func (m *Memory) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	defer m.lock()()

	if _, ok := m.data.users[complaint.UserID]; !ok {
		return fmt.Errorf("complaint owner %s: %w", complaint.UserID, ErrNotFound)
	}
	if complaint.CategoryID != nil {
		if _, ok := m.data.categories[*complaint.CategoryID]; !ok {
			return fmt.Errorf("complaint category %d: %w", *complaint.CategoryID, ErrNotFound)
		}
	}
	if complaint.Status == "" {
		complaint.Status = models.StatusNew
	}

	now := m.clock()
	complaint.ID = m.data.next("complaints")
	complaint.CreatedAt = now
	complaint.UpdatedAt = now

	stored := *complaint
	stored.User, stored.Category, stored.Responses, stored.Feedback = nil, nil, nil, nil
	m.data.complaints[stored.ID] = stored
	return nil
}

func (m *Memory) GetComplaintByID(ctx context.Context, id uint) (*models.Complaint, error) {
	defer m.lock()()

	c, ok := m.data.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) GetComplaintDetail(ctx context.Context, id uint) (*models.Complaint, error) {
	defer m.lock()()

	c, ok := m.data.complaints[id]
	if !ok {
		return nil, ErrNotFound
	}
	if c.CategoryID != nil {
		if cat, ok := m.data.categories[*c.CategoryID]; ok {
			c.Category = &cat
		}
	}

	c.Responses = []models.AdminResponse{}
	for _, r := range m.data.responses {
		if r.ComplaintID == id {
			c.Responses = append(c.Responses, r)
		}
	}
	sort.Slice(c.Responses, func(i, j int) bool { return c.Responses[i].ID < c.Responses[j].ID })

	c.Feedback = []models.Feedback{}
	for _, f := range m.data.feedback {
		if f.ComplaintID == id {
			c.Feedback = append(c.Feedback, f)
		}
	}
	sort.Slice(c.Feedback, func(i, j int) bool { return c.Feedback[i].ID < c.Feedback[j].ID })
	return &c, nil
}

// LockComplaint is GetComplaintByID: transactions already run one at a time.
func (m *Memory) LockComplaint(ctx context.Context, id uint) (*models.Complaint, error) {
	return m.GetComplaintByID(ctx, id)
}

func (m *Memory) UpdateComplaintStatus(ctx context.Context, id uint, status models.Status) error {
	defer m.lock()()

	c, ok := m.data.complaints[id]
	if !ok {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = m.clock()
	m.data.complaints[id] = c
	return nil
}

func (m *Memory) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]models.Complaint, int64, error) {
	defer m.lock()()

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.Complaint, 0)
	for _, c := range m.data.complaints {
		if filter.UserID != "" && c.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(c.Text), term) {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := max(filter.Offset, 0)
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Limit < end-start {
		end = start + filter.Limit
	}
	return matched[start:end], total, nil
}

func (m *Memory) CountComplaintsByStatus(ctx context.Context) (map[models.Status]int64, error) {
	defer m.lock()()

	counts := make(map[models.Status]int64)
	for _, c := range m.data.complaints {
		counts[c.Status]++
	}
	return counts, nil
}

func (m *Memory) CreateAdminResponse(ctx context.Context, response *models.AdminResponse) error {
	defer m.lock()()

	if _, ok := m.data.complaints[response.ComplaintID]; !ok {
		return fmt.Errorf("response complaint %d: %w", response.ComplaintID, ErrNotFound)
	}
	response.ID = m.data.next("responses")
	response.CreatedAt = m.clock()

	stored := *response
	stored.Admin = nil
	m.data.responses[stored.ID] = stored
	return nil
}

func (m *Memory) CreateFeedback(ctx context.Context, feedback *models.Feedback) error {
	defer m.lock()()

	if _, ok := m.data.complaints[feedback.ComplaintID]; !ok {
		return fmt.Errorf("feedback complaint %d: %w", feedback.ComplaintID, ErrNotFound)
	}
	feedback.ID = m.data.next("feedback")
	feedback.CreatedAt = m.clock()

	stored := *feedback
	stored.User = nil
	m.data.feedback[stored.ID] = stored
	return nil
}

func (m *Memory) AppendHistory(ctx context.Context, entry *models.ComplaintHistory) error {
	defer m.lock()()

	if _, ok := m.data.complaints[entry.ComplaintID]; !ok {
		return fmt.Errorf("history complaint %d: %w", entry.ComplaintID, ErrNotFound)
	}
	entry.ID = m.data.next("history")
	entry.CreatedAt = m.clock()

	stored := *entry
	stored.Complaint, stored.User = nil, nil
	m.data.history[stored.ID] = stored
	return nil
}

func (m *Memory) ListHistory(ctx context.Context, complaintID uint) ([]models.ComplaintHistory, error) {
	defer m.lock()()

	out := []models.ComplaintHistory{}
	for _, h := range m.data.history {
		if h.ComplaintID != complaintID {
			continue
		}
		if h.UserID != nil {
			if u, ok := m.data.users[*h.UserID]; ok {
				h.User = &u
			}
		}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) PublishEvent(ctx context.Context, event models.ComplaintEvent) error {
	m.bus.publish(event)
	return nil
}

func (m *Memory) SubscribeEvents(ctx context.Context) (<-chan models.ComplaintEvent, error) {
	return m.bus.subscribe(ctx), nil
}
