package service

import (
	"context"
	"time"

	"tenderportal/db"
	"tenderportal/models"
)

// Store: хранилище, которое нужно сервисам. Реализации: db.Storage (Postgres)
// и memory.Storage. Все изменяющие методы, условные (compare-and-set) и
// возвращают db.ErrConflict, если запись изменилась параллельно.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]models.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	CountAdmins(ctx context.Context) (int, error)

	CreateTender(ctx context.Context, t *models.Tender) error
	GetTender(ctx context.Context, id int64) (*models.Tender, error)
	ListTenders(ctx context.Context, f db.TenderFilter) ([]models.Tender, error)
	UpdateDraftTender(ctx context.Context, t *models.Tender) error
	TransitionTender(ctx context.Context, tr db.TenderTransition) error
	DeleteTender(ctx context.Context, id int64) error
	ListExpiredTenders(ctx context.Context, before time.Time) ([]models.Tender, error)
	ListTenderEvents(ctx context.Context, tenderID int64) ([]models.TenderEvent, error)

	CreateBid(ctx context.Context, b *models.Bid) error
	GetBid(ctx context.Context, id int64) (*models.Bid, error)
	ListBidsForTender(ctx context.Context, tenderID int64) ([]models.Bid, error)
	ListBidsByBidder(ctx context.Context, bidderID int64, limit, offset int) ([]models.Bid, error)
	DecideBid(ctx context.Context, d db.BidDecision) error

	GetSetting(ctx context.Context, key string) (string, error)
	PutSetting(ctx context.Context, key, value string) error
}

var (
	_ Store = (*db.Storage)(nil)
)

// FeatureGate это внешняя проверка лицензии: включена ли функциональность и почему нет.
type FeatureGate func(ctx context.Context) (enabled bool, reason string)

// OpenGate: шлюз без проверок.
func OpenGate(context.Context) (bool, string) { return true, "" }

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

type Page struct {
	Limit  int
	Offset int
}

// Normalize подставляет лимит по умолчанию и обрезает слишком большие значения.
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
