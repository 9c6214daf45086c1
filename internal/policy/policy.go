// Package policy содержит правила доступа портала закупок.
//
// Каждое решение является чистой функцией от актора (роль, активность,
// идентификатор) и ресурса (владелец, статус, число предложений). Одна и та же
// таблица проверяется сервером перед изменением и клиентом при выборе
// доступных элементов управления.
//
// Владелец тендера задается полем CreatedBy. Предложением распоряжается
// владелец родительского тендера; поставщик видит только свои предложения.
package policy

import (
	"sort"

	"tenderportal/internal/lifecycle"
	"tenderportal/models"
)

// Actor: личность пользователя в том виде, в каком ее видят правила доступа.
type Actor struct {
	UserID int64
	Role   models.Role
	Active bool
}

// System: актор фоновых задач (закрытие просроченных тендеров).
var System = Actor{Role: models.RoleSystem, Active: true}

func ActorFromUser(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role, Active: u.IsActive}
}

func (a Actor) IsAdmin() bool  { return a.Active && a.Role == models.RoleAdmin }
func (a Actor) IsVendor() bool { return a.Active && a.Role == models.RoleVendor }
func (a Actor) IsSystem() bool { return a.Role == models.RoleSystem }

// Owns сообщает, является ли актор администратором, создавшим тендер.
func (a Actor) Owns(t *models.Tender) bool {
	return a.IsAdmin() && t.CreatedBy == a.UserID
}

type Action string

const (
	View      Action = "view"
	Edit      Action = "edit"
	Publish   Action = "publish"
	Delete    Action = "delete"
	Cancel    Action = "cancel"
	Close     Action = "close"
	Award     Action = "award"
	ViewBids  Action = "view_bids"
	SubmitBid Action = "submit_bid"
	Decide    Action = "decide"
)

// Set: неупорядоченное множество разрешенных действий.
type Set map[Action]struct{}

func newSet(actions ...Action) Set {
	s := make(Set, len(actions))
	s.add(actions...)
	return s
}

func (s Set) add(actions ...Action) {
	for _, a := range actions {
		s[a] = struct{}{}
	}
}

func (s Set) Has(a Action) bool {
	_, ok := s[a]
	return ok
}

// List возвращает действия по алфавиту, чтобы JSON был стабильным.
func (s Set) List() []Action {
	out := make([]Action, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CanCreateTender: тендеры создают только администраторы.
func CanCreateTender(a Actor) bool {
	return a.IsAdmin()
}

// CanManageUsers: пользователями управляют только администраторы.
func CanManageUsers(a Actor) bool {
	return a.IsAdmin()
}

// TenderActions вычисляет действия по таблице роль × статус для одного тендера.
func TenderActions(a Actor, t *models.Tender) Set {
	s := newSet()
	if !a.Active {
		return s
	}

	switch a.Role {
	case models.RoleSystem:
		if t.Status == models.TenderBidding {
			s.add(Close)
		}
	case models.RoleAdmin:
		s.add(View)
		if t.CreatedBy != a.UserID {
			return s
		}
		// удаление доступно, только пока нет предложений
		if t.BidCount == 0 {
			s.add(Delete)
		}
		switch t.Status {
		case models.TenderDraft:
			s.add(Edit, Publish, Cancel)
		case models.TenderBidding:
			s.add(Cancel, Close, ViewBids)
		case models.TenderReview:
			s.add(Award, Cancel, ViewBids)
		case models.TenderAwarded, models.TenderCancelled:
			s.add(ViewBids)
		}
	case models.RoleVendor:
		switch t.Status {
		case models.TenderBidding:
			s.add(View, SubmitBid)
		case models.TenderReview, models.TenderAwarded, models.TenderCancelled:
			s.add(View)
		}
	}
	return s
}

// BidActions вычисляет, что актор может сделать с предложением тендера t.
func BidActions(a Actor, t *models.Tender, b *models.Bid) Set {
	s := newSet()
	if !a.Active {
		return s
	}

	switch {
	case a.Owns(t):
		s.add(View)
		if b.Status == models.BidPending && lifecycle.DecisionsOpen(t.Status) {
			s.add(Decide)
		}
	case a.Role == models.RoleVendor && b.BidderID == a.UserID:
		s.add(View)
	}
	return s
}

type ResourceKind string

const (
	KindTender ResourceKind = "tender"
	KindBid    ResourceKind = "bid"
)

// Resource: записи, от которых зависит решение. Для предложения нужен
// еще и родительский тендер.
type Resource struct {
	Tender *models.Tender
	Bid    *models.Bid
}

// Allowed: общая форма проверки для любого вида ресурса.
func Allowed(a Actor, kind ResourceKind, r Resource) Set {
	switch kind {
	case KindTender:
		if r.Tender != nil {
			return TenderActions(a, r.Tender)
		}
	case KindBid:
		if r.Tender != nil && r.Bid != nil {
			return BidActions(a, r.Tender, r.Bid)
		}
	}
	return newSet()
}

// VisibleStatuses возвращает статусы тендеров, видимые актору в каталоге.
// Черновики видят только администраторы и только по запросу, отмененные
// тендеры поставщикам не показываются.
func VisibleStatuses(a Actor, includeDrafts bool) []models.TenderStatus {
	switch {
	case a.IsAdmin():
		if includeDrafts {
			return lifecycle.TenderStatuses()
		}
		return []models.TenderStatus{
			models.TenderBidding,
			models.TenderReview,
			models.TenderAwarded,
			models.TenderCancelled,
		}
	case a.IsVendor():
		return []models.TenderStatus{
			models.TenderBidding,
			models.TenderReview,
			models.TenderAwarded,
		}
	default:
		return nil
	}
}
