package db

import (
	"errors"
	"time"

	"tenderportal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict: условное обновление не затронуло ни одной строки:
	// статус или версия изменились параллельно, либо у тендера есть предложения
	ErrConflict  = errors.New("record was modified concurrently")
	ErrDuplicate = errors.New("record already exists")
)

// Фильтр каталога тендеров
type TenderFilter struct {
	Statuses []models.TenderStatus
	Category string
	Limit    int
	Offset   int
}

// Условный переход статуса тендера (compare-and-set по статусу и версии)
type TenderTransition struct {
	TenderID     int64
	From         models.TenderStatus
	To           models.TenderStatus
	Version      int
	ActorID      *int64
	WinningBidID *int64
}

// Условное решение по предложению
type BidDecision struct {
	BidID     int64
	Status    models.BidStatus
	Version   int
	DeciderID int64
	DecidedAt time.Time
}

func statusStrings(statuses []models.TenderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
