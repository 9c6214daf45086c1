package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleVendor Role = "vendor"
	// RoleSystem используется планировщиком, у пользователей не встречается
	RoleSystem Role = "system"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleVendor:
		return true
	default:
		return false
	}
}

type TenderStatus string

const (
	TenderDraft     TenderStatus = "draft"
	TenderBidding   TenderStatus = "bidding"
	TenderReview    TenderStatus = "review"
	TenderAwarded   TenderStatus = "awarded"
	TenderCancelled TenderStatus = "cancelled"
)

func ValidTenderStatus(s TenderStatus) bool {
	switch s {
	case TenderDraft, TenderBidding, TenderReview, TenderAwarded, TenderCancelled:
		return true
	default:
		return false
	}
}

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
)

func ValidBidStatus(s BidStatus) bool {
	switch s {
	case BidPending, BidAccepted, BidRejected:
		return true
	default:
		return false
	}
}

// Сущность Пользователя
type User struct {
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Company      *string   `db:"company" json:"company,omitempty"`
	Role         Role      `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// Сущность Тендера
type Tender struct {
	ID           int64        `db:"id" json:"id"`
	Title        string       `db:"title" json:"title"`
	Description  string       `db:"description" json:"description"`
	Category     string       `db:"category" json:"category"`
	Budget       float64      `db:"budget" json:"budget"`
	Status       TenderStatus `db:"status" json:"status"`
	Deadline     time.Time    `db:"deadline" json:"deadline"`
	CreatedBy    int64        `db:"created_by" json:"created_by"`
	WinningBidID *int64       `db:"winning_bid_id" json:"winning_bid_id,omitempty"`
	BidCount     int          `db:"bid_count" json:"bids_count"`
	Version      int          `db:"version" json:"version"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"-"`
}

// Сущность Предложения
type Bid struct {
	ID        int64      `db:"id" json:"id"`
	TenderID  int64      `db:"tender_id" json:"tender_id"`
	BidderID  int64      `db:"bidder_id" json:"bidder_id"`
	Amount    float64    `db:"amount" json:"amount"`
	Proposal  string     `db:"proposal" json:"proposal"`
	Status    BidStatus  `db:"status" json:"status"`
	DecidedBy *int64     `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	Version   int        `db:"version" json:"version"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"-"`
}

// Запись журнала переходов статуса тендера
type TenderEvent struct {
	ID         int64        `db:"id" json:"id"`
	TenderID   int64        `db:"tender_id" json:"tender_id"`
	FromStatus TenderStatus `db:"from_status" json:"from_status"`
	ToStatus   TenderStatus `db:"to_status" json:"to_status"`
	ActorID    *int64       `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}

// Настройка системы (таблица system_config). Значение может быть секретом,
// поэтому в JSON не попадает.
type Setting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"-"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
