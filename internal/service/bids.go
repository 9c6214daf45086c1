package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tenderportal/db"
	"tenderportal/internal/apperr"
	"tenderportal/internal/lifecycle"
	"tenderportal/internal/logger"
	"tenderportal/internal/policy"
	"tenderportal/models"

	"github.com/sirupsen/logrus"
)

// BidView: предложение с контекстом тендера. Bidder заполняется только для
// владельца тендера.
type BidView struct {
	models.Bid
	Bidder         *models.User        `json:"bidder,omitempty"`
	TenderTitle    string              `json:"tender_title,omitempty"`
	TenderStatus   models.TenderStatus `json:"tender_status,omitempty"`
	AllowedActions []policy.Action     `json:"allowed_actions"`
}

func bidView(a policy.Actor, t *models.Tender, b *models.Bid) BidView {
	return BidView{
		Bid:            *b,
		TenderTitle:    t.Title,
		TenderStatus:   t.Status,
		AllowedActions: policy.BidActions(a, t, b).List(),
	}
}

type SubmitBidInput struct {
	TenderID int64   `json:"tender_id" validate:"required,gt=0"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Proposal string  `json:"proposal" validate:"required"`
}

type DecideBidInput struct {
	Status models.BidStatus `json:"status" validate:"required,oneof=accepted rejected"`
}

type BidService struct {
	store Store
	gate  FeatureGate
	now   func() time.Time
}

func NewBidService(store Store, gate FeatureGate) *BidService {
	if gate == nil {
		gate = OpenGate
	}
	return &BidService{store: store, gate: gate, now: time.Now}
}

func (s *BidService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit подает предложение от активного поставщика в тендер со статусом bidding.
func (s *BidService) Submit(ctx context.Context, actor policy.Actor, in SubmitBidInput) (*BidView, error) {
	if !actor.IsVendor() {
		return nil, apperr.Forbidden()
	}
	// флаг активности в токене мог устареть
	u, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil || !u.IsActive {
		return nil, apperr.Forbidden()
	}
	if err := checkGate(ctx, s.gate); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if blank(in.Proposal) {
		return nil, apperr.Validation("proposal", "is required")
	}

	t, err := s.store.GetTender(ctx, in.TenderID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("tender")
	}
	if err != nil {
		return nil, apperr.Internal("get tender", err)
	}
	if !lifecycle.AcceptsBids(t.Status) {
		return nil, apperr.InvalidTransition("tender is not accepting bids")
	}
	if !policy.TenderActions(actor, t).Has(policy.SubmitBid) {
		return nil, apperr.Forbidden()
	}
	if in.Amount > t.Budget {
		return nil, apperr.Validation("amount", fmt.Sprintf("must not exceed the tender budget %.2f", t.Budget))
	}

	b := &models.Bid{
		TenderID: t.ID,
		BidderID: actor.UserID,
		Amount:   in.Amount,
		Proposal: strings.TrimSpace(in.Proposal),
	}
	if err := s.store.CreateBid(ctx, b); err != nil {
		if errors.Is(err, db.ErrConflict) {
			// тендер успел уйти из bidding
			return nil, apperr.InvalidTransition("tender is not accepting bids")
		}
		return nil, apperr.Internal("create bid", err)
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"tender_id": t.ID,
		"bid_id":    b.ID,
		"bidder_id": actor.UserID,
	}).Info("bid submitted")

	v := bidView(actor, t, b)
	return &v, nil
}

// Decide принимает или отклоняет pending-предложение. Остальные предложения
// тендера и статус самого тендера не меняются.
func (s *BidService) Decide(ctx context.Context, actor policy.Actor, bidID int64, in DecideBidInput) (*BidView, error) {
	b, t, err := s.loadBid(ctx, actor, bidID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(t) {
		return nil, apperr.Forbidden()
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !lifecycle.CanTransitionBid(b.Status, in.Status) {
		return nil, apperr.InvalidTransition(fmt.Sprintf("bid is already %s", b.Status))
	}
	if !lifecycle.DecisionsOpen(t.Status) {
		return nil, apperr.InvalidTransition(fmt.Sprintf("tender is %s, bids can no longer be decided", t.Status))
	}
	if !policy.BidActions(actor, t, b).Has(policy.Decide) {
		return nil, apperr.Forbidden()
	}

	err = s.store.DecideBid(ctx, db.BidDecision{
		BidID:     b.ID,
		Status:    in.Status,
		Version:   b.Version,
		DeciderID: actor.UserID,
		DecidedAt: s.now(),
	})
	if errors.Is(err, db.ErrConflict) {
		return nil, apperr.Conflict("bid was decided concurrently, reload and retry", err)
	}
	if err != nil {
		return nil, apperr.Internal("decide bid", err)
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"tender_id": t.ID,
		"bid_id":    b.ID,
		"status":    in.Status,
	}).Info("bid decided")

	updated, err := s.store.GetBid(ctx, b.ID)
	if err != nil {
		return nil, apperr.Internal("reload bid", err)
	}
	v := bidView(actor, t, updated)
	return &v, nil
}

func (s *BidService) loadBid(ctx context.Context, actor policy.Actor, bidID int64) (*models.Bid, *models.Tender, error) {
	b, err := s.store.GetBid(ctx, bidID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, apperr.NotFound("bid")
	}
	if err != nil {
		return nil, nil, apperr.Internal("get bid", err)
	}
	t, err := s.store.GetTender(ctx, b.TenderID)
	if err != nil {
		return nil, nil, apperr.Internal("get tender", err)
	}
	if !policy.BidActions(actor, t, b).Has(policy.View) {
		if actor.IsAdmin() {
			return nil, nil, apperr.Forbidden()
		}
		return nil, nil, apperr.NotFound("bid")
	}
	return b, t, nil
}

// ListForTender: владелец видит все предложения с данными участника,
// поставщик: только свои.
func (s *BidService) ListForTender(ctx context.Context, actor policy.Actor, tenderID int64) ([]BidView, error) {
	t, err := s.store.GetTender(ctx, tenderID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("tender")
	}
	if err != nil {
		return nil, apperr.Internal("get tender", err)
	}

	switch {
	case actor.Owns(t):
	case actor.IsVendor():
		if !policy.TenderActions(actor, t).Has(policy.View) {
			return nil, apperr.NotFound("tender")
		}
	default:
		return nil, apperr.Forbidden()
	}

	bids, err := s.store.ListBidsForTender(ctx, tenderID)
	if err != nil {
		return nil, apperr.Internal("list bids", err)
	}

	out := make([]BidView, 0, len(bids))
	for i := range bids {
		if !policy.BidActions(actor, t, &bids[i]).Has(policy.View) {
			continue
		}
		out = append(out, bidView(actor, t, &bids[i]))
	}
	if !actor.Owns(t) || len(out) == 0 {
		return out, nil
	}

	ids := make([]int64, 0, len(out))
	for _, v := range out {
		ids = append(ids, v.BidderID)
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("load bidders", err)
	}
	byID := make(map[int64]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for i := range out {
		out[i].Bidder = byID[out[i].BidderID]
	}
	return out, nil
}

// ListMine: предложения текущего пользователя по всем тендерам.
func (s *BidService) ListMine(ctx context.Context, actor policy.Actor, p Page) ([]BidView, error) {
	if !actor.Active || actor.IsSystem() {
		return nil, apperr.Forbidden()
	}
	p = p.Normalize()
	bids, err := s.store.ListBidsByBidder(ctx, actor.UserID, p.Limit, p.Offset)
	if err != nil {
		return nil, apperr.Internal("list bids", err)
	}
	out := make([]BidView, 0, len(bids))
	tenders := map[int64]*models.Tender{}
	for i := range bids {
		t, ok := tenders[bids[i].TenderID]
		if !ok {
			t, err = s.store.GetTender(ctx, bids[i].TenderID)
			if err != nil {
				return nil, apperr.Internal("get tender", err)
			}
			tenders[t.ID] = t
		}
		out = append(out, bidView(actor, t, &bids[i]))
	}
	return out, nil
}
