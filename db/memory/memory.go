// Package memory реализует хранилище в памяти с той же семантикой условных обновлений,
// что и db.Storage. Используется в тестах и при STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tenderportal/db"
	"tenderportal/internal/lifecycle"
	"tenderportal/models"
)

type Storage struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      int64
	users    map[int64]models.User
	tenders  map[int64]models.Tender
	bids     map[int64]models.Bid
	events   []models.TenderEvent
	settings map[string]models.Setting
}

func New() *Storage {
	return &Storage{
		now:      time.Now,
		users:    make(map[int64]models.User),
		tenders:  make(map[int64]models.Tender),
		bids:     make(map[int64]models.Bid),
		settings: make(map[string]models.Setting),
	}
}

func (s *Storage) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Storage) Ping(ctx context.Context) error { return nil }

// User

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return db.ErrDuplicate
		}
	}
	now := s.now()
	u.ID = s.nextID()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = *u
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &u, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, db.ErrNotFound
}

func (s *Storage) GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *Storage) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func (s *Storage) UpdateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.users[u.ID]
	if !ok {
		return db.ErrNotFound
	}
	cur.FullName = u.FullName
	cur.Company = u.Company
	cur.IsActive = u.IsActive
	cur.UpdatedAt = s.now()
	s.users[u.ID] = cur
	*u = cur
	return nil
}

func (s *Storage) CountAdmins(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, u := range s.users {
		if u.Role == models.RoleAdmin {
			n++
		}
	}
	return n, nil
}

// Tender

func (s *Storage) bidCount(tenderID int64) int {
	n := 0
	for _, b := range s.bids {
		if b.TenderID == tenderID {
			n++
		}
	}
	return n
}

func (s *Storage) withCount(t models.Tender) models.Tender {
	t.BidCount = s.bidCount(t.ID)
	return t
}

func (s *Storage) CreateTender(ctx context.Context, t *models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	t.ID = s.nextID()
	t.Version = 1
	t.BidCount = 0
	t.CreatedAt, t.UpdatedAt = now, now
	s.tenders[t.ID] = *t
	return nil
}

func (s *Storage) GetTender(ctx context.Context, id int64) (*models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	t = s.withCount(t)
	return &t, nil
}

func (s *Storage) ListTenders(ctx context.Context, f db.TenderFilter) ([]models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	allowed := make(map[models.TenderStatus]bool, len(f.Statuses))
	for _, st := range f.Statuses {
		allowed[st] = true
	}
	out := []models.Tender{}
	for _, t := range s.tenders {
		if len(allowed) > 0 && !allowed[t.Status] {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		out = append(out, s.withCount(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, f.Limit, f.Offset), nil
}

func (s *Storage) UpdateDraftTender(ctx context.Context, t *models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tenders[t.ID]
	if !ok || cur.Version != t.Version || cur.Status != models.TenderDraft {
		return db.ErrConflict
	}
	cur.Title = t.Title
	cur.Description = t.Description
	cur.Category = t.Category
	cur.Budget = t.Budget
	cur.Deadline = t.Deadline
	cur.Version++
	cur.UpdatedAt = s.now()
	s.tenders[t.ID] = cur
	t.Version, t.UpdatedAt = cur.Version, cur.UpdatedAt
	return nil
}

func (s *Storage) TransitionTender(ctx context.Context, tr db.TenderTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.tenders[tr.TenderID]
	if !ok || cur.Status != tr.From || cur.Version != tr.Version {
		return db.ErrConflict
	}
	now := s.now()
	cur.Status = tr.To
	if tr.WinningBidID != nil {
		id := *tr.WinningBidID
		cur.WinningBidID = &id
	}
	cur.Version++
	cur.UpdatedAt = now
	s.tenders[cur.ID] = cur
	s.events = append(s.events, models.TenderEvent{
		ID:         s.nextID(),
		TenderID:   cur.ID,
		FromStatus: tr.From,
		ToStatus:   tr.To,
		ActorID:    tr.ActorID,
		CreatedAt:  now,
	})
	return nil
}

func (s *Storage) DeleteTender(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenders[id]; !ok {
		return db.ErrNotFound
	}
	if s.bidCount(id) > 0 {
		return db.ErrConflict
	}
	delete(s.tenders, id)
	kept := s.events[:0]
	for _, e := range s.events {
		if e.TenderID != id {
			kept = append(kept, e)
		}
	}
	s.events = kept
	return nil
}

func (s *Storage) ListExpiredTenders(ctx context.Context, before time.Time) ([]models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Tender{}
	for _, t := range s.tenders {
		if t.Status == models.TenderBidding && !t.Deadline.After(before) {
			out = append(out, s.withCount(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

func (s *Storage) ListTenderEvents(ctx context.Context, tenderID int64) ([]models.TenderEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.TenderEvent{}
	for _, e := range s.events {
		if e.TenderID == tenderID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Bid

func (s *Storage) CreateBid(ctx context.Context, b *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenders[b.TenderID]
	if !ok || !lifecycle.AcceptsBids(t.Status) {
		return db.ErrConflict
	}
	now := s.now()
	b.ID = s.nextID()
	b.Status = models.BidPending
	b.Version = 1
	b.CreatedAt, b.UpdatedAt = now, now
	s.bids[b.ID] = *b
	return nil
}

func (s *Storage) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &b, nil
}

func (s *Storage) ListBidsForTender(ctx context.Context, tenderID int64) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Bid{}
	for _, b := range s.bids {
		if b.TenderID == tenderID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount == out[j].Amount {
			return out[i].ID < out[j].ID
		}
		return out[i].Amount < out[j].Amount
	})
	return out, nil
}

func (s *Storage) ListBidsByBidder(ctx context.Context, bidderID int64, limit, offset int) ([]models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Bid{}
	for _, b := range s.bids {
		if b.BidderID == bidderID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (s *Storage) DecideBid(ctx context.Context, d db.BidDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bids[d.BidID]
	if !ok || b.Status != models.BidPending || b.Version != d.Version {
		return db.ErrConflict
	}
	if t, ok := s.tenders[b.TenderID]; !ok || !lifecycle.DecisionsOpen(t.Status) {
		return db.ErrConflict
	}
	decider, at := d.DeciderID, d.DecidedAt
	b.Status = d.Status
	b.DecidedBy = &decider
	b.DecidedAt = &at
	b.Version++
	b.UpdatedAt = s.now()
	s.bids[b.ID] = b
	return nil
}

// Settings

func (s *Storage) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[key]
	if !ok {
		return "", db.ErrNotFound
	}
	return setting.Value, nil
}

func (s *Storage) PutSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = models.Setting{Key: key, Value: value, UpdatedAt: s.now()}
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
