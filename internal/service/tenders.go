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

// TenderView: тендер вместе с действиями, доступными текущему актору.
type TenderView struct {
	models.Tender
	AllowedActions []policy.Action `json:"allowed_actions"`
}

func tenderView(a policy.Actor, t *models.Tender) *TenderView {
	return &TenderView{Tender: *t, AllowedActions: policy.TenderActions(a, t).List()}
}

type CreateTenderInput struct {
	Title       string    `json:"title" validate:"required,max=255"`
	Description string    `json:"description" validate:"required"`
	Category    string    `json:"category" validate:"required,max=100"`
	Budget      float64   `json:"budget" validate:"gte=0"`
	Deadline    time.Time `json:"deadline" validate:"required"`
}

// UpdateTenderInput: частичное изменение. Status переводится в вызов
// соответствующей операции жизненного цикла.
type UpdateTenderInput struct {
	Title        *string              `json:"title" validate:"omitempty,max=255"`
	Description  *string              `json:"description"`
	Category     *string              `json:"category" validate:"omitempty,max=100"`
	Budget       *float64             `json:"budget" validate:"omitempty,gte=0"`
	Deadline     *time.Time           `json:"deadline"`
	Status       *models.TenderStatus `json:"status"`
	WinningBidID *int64               `json:"winning_bid_id"`
}

func (in UpdateTenderInput) editsFields() bool {
	return in.Title != nil || in.Description != nil || in.Category != nil ||
		in.Budget != nil || in.Deadline != nil
}

type ListTendersInput struct {
	Status        models.TenderStatus
	Category      string
	IncludeDrafts bool
	Page          Page
}

type TenderService struct {
	store Store
	gate  FeatureGate
	now   func() time.Time
}

func NewTenderService(store Store, gate FeatureGate) *TenderService {
	if gate == nil {
		gate = OpenGate
	}
	return &TenderService{store: store, gate: gate, now: time.Now}
}

// SetClock подменяет источник времени (тесты, планировщик).
func (s *TenderService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *TenderService) Create(ctx context.Context, actor policy.Actor, in CreateTenderInput) (*TenderView, error) {
	if !policy.CanCreateTender(actor) {
		return nil, apperr.Forbidden()
	}
	if err := checkGate(ctx, s.gate); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if err := validateTenderText(in.Title, in.Description, in.Category); err != nil {
		return nil, err
	}
	if !in.Deadline.After(s.now()) {
		return nil, apperr.Validation("deadline", "must be in the future")
	}

	t := &models.Tender{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Budget:      in.Budget,
		Status:      models.TenderDraft,
		Deadline:    in.Deadline,
		CreatedBy:   actor.UserID,
	}
	if err := s.store.CreateTender(ctx, t); err != nil {
		return nil, apperr.Internal("create tender", err)
	}
	logger.FromContext(ctx).WithField("tender_id", t.ID).Info("tender created")
	return tenderView(actor, t), nil
}

func validateTenderText(title, description, category string) error {
	fields := map[string]string{}
	if blank(title) {
		fields["title"] = "is required"
	}
	if blank(description) {
		fields["description"] = "is required"
	}
	if blank(category) {
		fields["category"] = "is required"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields(fields)
	}
	return nil
}

// load читает тендер и скрывает его от тех, кому он не виден.
func (s *TenderService) load(ctx context.Context, actor policy.Actor, id int64) (*models.Tender, policy.Set, error) {
	t, err := s.store.GetTender(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, apperr.NotFound("tender")
	}
	if err != nil {
		return nil, nil, apperr.Internal("get tender", err)
	}
	acts := policy.TenderActions(actor, t)
	if !acts.Has(policy.View) && !actor.IsSystem() {
		return nil, nil, apperr.NotFound("tender")
	}
	return t, acts, nil
}

func (s *TenderService) Get(ctx context.Context, actor policy.Actor, id int64) (*TenderView, error) {
	t, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return tenderView(actor, t), nil
}

func (s *TenderService) List(ctx context.Context, actor policy.Actor, in ListTendersInput) ([]TenderView, error) {
	statuses := policy.VisibleStatuses(actor, in.IncludeDrafts)
	if len(statuses) == 0 {
		return nil, apperr.Forbidden()
	}
	if in.Status != "" {
		if !models.ValidTenderStatus(in.Status) {
			return nil, apperr.Validation("status", "unknown tender status")
		}
		visible := false
		for _, st := range statuses {
			visible = visible || st == in.Status
		}
		if !visible {
			return []TenderView{}, nil
		}
		statuses = []models.TenderStatus{in.Status}
	}

	p := in.Page.Normalize()
	tenders, err := s.store.ListTenders(ctx, db.TenderFilter{
		Statuses: statuses,
		Category: in.Category,
		Limit:    p.Limit,
		Offset:   p.Offset,
	})
	if err != nil {
		return nil, apperr.Internal("list tenders", err)
	}
	out := make([]TenderView, 0, len(tenders))
	for i := range tenders {
		out = append(out, *tenderView(actor, &tenders[i]))
	}
	return out, nil
}

// Update правит черновик либо выполняет переход статуса из поля status.
// Правка полей и смена статуса в одном запросе не совмещаются: запрос
// либо применяется целиком, либо не меняет ничего.
func (s *TenderService) Update(ctx context.Context, actor policy.Actor, id int64, in UpdateTenderInput) (*TenderView, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.editsFields() && in.Status != nil {
		return nil, apperr.Validation("status", "cannot be combined with field changes")
	}
	if in.editsFields() {
		return s.edit(ctx, actor, id, in)
	}
	if in.Status == nil {
		return s.Get(ctx, actor, id)
	}

	switch *in.Status {
	case models.TenderBidding:
		return s.Publish(ctx, actor, id)
	case models.TenderReview:
		return s.CloseForReview(ctx, actor, id)
	case models.TenderCancelled:
		return s.Cancel(ctx, actor, id)
	case models.TenderAwarded:
		if in.WinningBidID == nil {
			return nil, apperr.Validation("winning_bid_id", "is required to award a tender")
		}
		return s.Award(ctx, actor, id, *in.WinningBidID)
	default:
		if !models.ValidTenderStatus(*in.Status) {
			return nil, apperr.Validation("status", "unknown tender status")
		}
		t, _, err := s.load(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidTransition(fmt.Sprintf("tender cannot move from %s to %s", t.Status, *in.Status))
	}
}

func (s *TenderService) edit(ctx context.Context, actor policy.Actor, id int64, in UpdateTenderInput) (*TenderView, error) {
	t, acts, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(t) {
		return nil, apperr.Forbidden()
	}
	if !acts.Has(policy.Edit) {
		return nil, apperr.InvalidTransition("only draft tenders can be edited")
	}

	if in.Title != nil {
		t.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Category != nil {
		t.Category = strings.TrimSpace(*in.Category)
	}
	if in.Budget != nil {
		t.Budget = *in.Budget
	}
	if in.Deadline != nil {
		if !in.Deadline.After(s.now()) {
			return nil, apperr.Validation("deadline", "must be in the future")
		}
		t.Deadline = *in.Deadline
	}
	if err := validateTenderText(t.Title, t.Description, t.Category); err != nil {
		return nil, err
	}

	if err := s.store.UpdateDraftTender(ctx, t); err != nil {
		return nil, s.storeErr("edit tender", err)
	}
	logger.FromContext(ctx).WithField("tender_id", t.ID).Info("tender edited")
	return s.Get(ctx, actor, id)
}

// Publish: draft -> bidding, только пока срок подачи не истек.
func (s *TenderService) Publish(ctx context.Context, actor policy.Actor, id int64) (*TenderView, error) {
	return s.transition(ctx, actor, id, policy.Publish, models.TenderBidding, func(t *models.Tender) error {
		if err := checkGate(ctx, s.gate); err != nil {
			return err
		}
		if !t.Deadline.After(s.now()) {
			return apperr.InvalidTransition("tender deadline has passed")
		}
		return nil
	}, nil)
}

// CloseForReview: bidding -> review. Владелец может закрыть прием досрочно,
// система: только после истечения срока.
func (s *TenderService) CloseForReview(ctx context.Context, actor policy.Actor, id int64) (*TenderView, error) {
	return s.transition(ctx, actor, id, policy.Close, models.TenderReview, func(t *models.Tender) error {
		if actor.IsSystem() && t.Deadline.After(s.now()) {
			return apperr.InvalidTransition("tender deadline has not passed yet")
		}
		return nil
	}, nil)
}

// Award: review -> awarded с принятым предложением этого же тендера.
func (s *TenderService) Award(ctx context.Context, actor policy.Actor, id, winningBidID int64) (*TenderView, error) {
	return s.transition(ctx, actor, id, policy.Award, models.TenderAwarded, func(t *models.Tender) error {
		bid, err := s.store.GetBid(ctx, winningBidID)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.NotFound("bid")
		}
		if err != nil {
			return apperr.Internal("get bid", err)
		}
		if bid.TenderID != t.ID {
			return apperr.Validation("winning_bid_id", "bid belongs to a different tender")
		}
		if bid.Status != models.BidAccepted {
			return apperr.Validation("winning_bid_id", "bid is not accepted")
		}
		return nil
	}, &winningBidID)
}

// Cancel: draft|bidding|review -> cancelled. Pending-предложения остаются
// без решения навсегда.
func (s *TenderService) Cancel(ctx context.Context, actor policy.Actor, id int64) (*TenderView, error) {
	return s.transition(ctx, actor, id, policy.Cancel, models.TenderCancelled, nil, nil)
}

func (s *TenderService) transition(
	ctx context.Context,
	actor policy.Actor,
	id int64,
	action policy.Action,
	to models.TenderStatus,
	check func(t *models.Tender) error,
	winningBidID *int64,
) (*TenderView, error) {
	t, acts, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(t) && !(actor.IsSystem() && action == policy.Close) {
		return nil, apperr.Forbidden()
	}
	if !lifecycle.CanTransitionTender(t.Status, to) {
		return nil, apperr.InvalidTransition(fmt.Sprintf("tender cannot move from %s to %s", t.Status, to))
	}
	if !acts.Has(action) {
		return nil, apperr.Forbidden()
	}
	if check != nil {
		if err := check(t); err != nil {
			return nil, err
		}
	}

	tr := db.TenderTransition{
		TenderID:     t.ID,
		From:         t.Status,
		To:           to,
		Version:      t.Version,
		WinningBidID: winningBidID,
	}
	if !actor.IsSystem() {
		actorID := actor.UserID
		tr.ActorID = &actorID
	}
	if err := s.store.TransitionTender(ctx, tr); err != nil {
		return nil, s.storeErr("transition tender", err)
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"tender_id": t.ID,
		"from":      t.Status,
		"to":        to,
		"actor_id":  actor.UserID,
	}).Info("tender status changed")

	updated, err := s.store.GetTender(ctx, t.ID)
	if err != nil {
		return nil, apperr.Internal("reload tender", err)
	}
	return tenderView(actor, updated), nil
}

// Delete удаляет тендер без предложений.
func (s *TenderService) Delete(ctx context.Context, actor policy.Actor, id int64) error {
	t, _, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.Owns(t) {
		return apperr.Forbidden()
	}
	if t.BidCount > 0 {
		return apperr.Conflict("tender has bids and cannot be deleted", nil)
	}
	if err := s.store.DeleteTender(ctx, id); err != nil {
		if errors.Is(err, db.ErrConflict) {
			return apperr.Conflict("tender has bids and cannot be deleted", err)
		}
		return s.storeErr("delete tender", err)
	}
	logger.FromContext(ctx).WithField("tender_id", id).Info("tender deleted")
	return nil
}

// History: журнал переходов статуса; виден только владельцу.
func (s *TenderService) History(ctx context.Context, actor policy.Actor, id int64) ([]models.TenderEvent, error) {
	t, _, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(t) {
		return nil, apperr.Forbidden()
	}
	events, err := s.store.ListTenderEvents(ctx, id)
	if err != nil {
		return nil, apperr.Internal("list tender events", err)
	}
	return events, nil
}

// CloseExpired переводит в review все тендеры, срок подачи которых истек.
// Возвращает число закрытых тендеров.
func (s *TenderService) CloseExpired(ctx context.Context) (int, error) {
	expired, err := s.store.ListExpiredTenders(ctx, s.now())
	if err != nil {
		return 0, apperr.Internal("list expired tenders", err)
	}
	closed := 0
	for _, t := range expired {
		_, err := s.CloseForReview(ctx, policy.System, t.ID)
		switch {
		case err == nil:
			closed++
		case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrInvalidTransition):
			// тендер успели изменить параллельно
			logger.FromContext(ctx).WithField("tender_id", t.ID).WithError(err).Debug("skip expired tender")
		default:
			return closed, err
		}
	}
	return closed, nil
}

func (s *TenderService) storeErr(op string, err error) error {
	switch {
	case errors.Is(err, db.ErrConflict):
		return apperr.Conflict("tender was modified concurrently, reload and retry", err)
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound("tender")
	default:
		return apperr.Internal(op, err)
	}
}

func checkGate(ctx context.Context, gate FeatureGate) error {
	if enabled, reason := gate(ctx); !enabled {
		return &apperr.Error{Kind: apperr.KindForbidden, Message: "license invalid: " + reason}
	}
	return nil
}
