package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"tenderportal/db/memory"
	"tenderportal/internal/apperr"
	"tenderportal/internal/policy"
	"tenderportal/internal/service"
	"tenderportal/models"

	"github.com/stretchr/testify/require"
)

var _ service.Store = (*memory.Storage)(nil)

type fixture struct {
	store   *memory.Storage
	tenders *service.TenderService
	bids    *service.BidService
	users   *service.UserService
	admin   policy.Actor
	admin2  policy.Actor
	vendor  policy.Actor
	vendor2 policy.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{
		store:   store,
		tenders: service.NewTenderService(store, nil),
		bids:    service.NewBidService(store, nil),
		users:   service.NewUserService(store),
	}
	f.admin = f.seedUser(t, "admin@example.com", models.RoleAdmin)
	f.admin2 = f.seedUser(t, "admin2@example.com", models.RoleAdmin)
	f.vendor = f.seedUser(t, "vendor@example.com", models.RoleVendor)
	f.vendor2 = f.seedUser(t, "vendor2@example.com", models.RoleVendor)
	return f
}

func (f *fixture) seedUser(t *testing.T, email string, role models.Role) policy.Actor {
	t.Helper()
	u := &models.User{Email: email, FullName: email, Role: role, IsActive: true}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return policy.ActorFromUser(u)
}

func (f *fixture) createTender(t *testing.T, budget float64) *service.TenderView {
	t.Helper()
	v, err := f.tenders.Create(context.Background(), f.admin, service.CreateTenderInput{
		Title:       "Office chairs",
		Description: "200 ergonomic chairs",
		Category:    "furniture",
		Budget:      budget,
		Deadline:    time.Now().Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) biddingTender(t *testing.T) *service.TenderView {
	t.Helper()
	v := f.createTender(t, 100000)
	v, err := f.tenders.Publish(context.Background(), f.admin, v.ID)
	require.NoError(t, err)
	return v
}

func (f *fixture) submit(t *testing.T, vendor policy.Actor, tenderID int64, amount float64) *service.BidView {
	t.Helper()
	b, err := f.bids.Submit(context.Background(), vendor, service.SubmitBidInput{
		TenderID: tenderID,
		Amount:   amount,
		Proposal: "we deliver in two weeks",
	})
	require.NoError(t, err)
	return b
}

func TestScenarioFullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tender := f.createTender(t, 100000)
	require.Equal(t, models.TenderDraft, tender.Status)
	require.Equal(t, 0, tender.BidCount)

	tender, err := f.tenders.Publish(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderBidding, tender.Status)

	bid := f.submit(t, f.vendor, tender.ID, 90000)
	require.Equal(t, models.BidPending, bid.Status)

	got, err := f.tenders.Get(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Equal(t, 1, got.BidCount)

	decided, err := f.bids.Decide(ctx, f.admin, bid.ID, service.DecideBidInput{Status: models.BidAccepted})
	require.NoError(t, err)
	require.Equal(t, models.BidAccepted, decided.Status)
	require.NotNil(t, decided.DecidedBy)
	require.Equal(t, f.admin.UserID, *decided.DecidedBy)

	tender, err = f.tenders.CloseForReview(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderReview, tender.Status)

	tender, err = f.tenders.Award(ctx, f.admin, tender.ID, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderAwarded, tender.Status)
	require.NotNil(t, tender.WinningBidID)
	require.Equal(t, bid.ID, *tender.WinningBidID)

	stored, err := f.store.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidAccepted, stored.Status)

	history, err := f.tenders.History(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, models.TenderDraft, history[0].FromStatus)
	require.Equal(t, models.TenderAwarded, history[2].ToStatus)
}

func TestSubmitToDraftIsInvalidTransition(t *testing.T) {
	f := newFixture(t)
	tender := f.createTender(t, 1000)

	_, err := f.bids.Submit(context.Background(), f.vendor, service.SubmitBidInput{
		TenderID: tender.ID,
		Amount:   10,
		Proposal: "offer",
	})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestConcurrentDecisionsExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)
	bid := f.submit(t, f.vendor, tender.ID, 500)

	outcomes := []models.BidStatus{models.BidAccepted, models.BidRejected}
	errs := make([]error, len(outcomes))
	var wg sync.WaitGroup
	for i, st := range outcomes {
		wg.Add(1)
		go func(i int, st models.BidStatus) {
			defer wg.Done()
			_, errs[i] = f.bids.Decide(ctx, f.admin, bid.ID, service.DecideBidInput{Status: st})
		}(i, st)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		kind := apperr.KindOf(err)
		require.Contains(t, []apperr.Kind{apperr.KindConflict, apperr.KindInvalidTransition}, kind)
	}
	require.Equal(t, 1, succeeded)

	stored, err := f.store.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	require.NotEqual(t, models.BidPending, stored.Status)
	require.Equal(t, 2, stored.Version)
}

func TestDeleteWithBidsConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)
	f.submit(t, f.vendor, tender.ID, 100)
	f.submit(t, f.vendor2, tender.ID, 200)

	err := f.tenders.Delete(ctx, f.admin, tender.ID)
	require.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.tenders.Get(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.BidCount)
	require.Equal(t, models.TenderBidding, got.Status)

	bids, err := f.bids.ListForTender(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Len(t, bids, 2)
}

func TestDeleteWithoutBids(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.createTender(t, 10)

	require.ErrorIs(t, f.tenders.Delete(ctx, f.admin2, tender.ID), apperr.ErrForbidden)
	require.NoError(t, f.tenders.Delete(ctx, f.admin, tender.ID))

	_, err := f.tenders.Get(ctx, f.admin, tender.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		in    service.CreateTenderInput
		field string
	}{
		{
			name:  "negative budget",
			in:    service.CreateTenderInput{Title: "t", Description: "d", Category: "c", Budget: -1, Deadline: time.Now().Add(time.Hour)},
			field: "budget",
		},
		{
			name:  "past deadline",
			in:    service.CreateTenderInput{Title: "t", Description: "d", Category: "c", Budget: 1, Deadline: time.Now().Add(-time.Hour)},
			field: "deadline",
		},
		{
			name:  "blank title",
			in:    service.CreateTenderInput{Title: "   ", Description: "d", Category: "c", Budget: 1, Deadline: time.Now().Add(time.Hour)},
			field: "title",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.tenders.Create(ctx, f.admin, tt.in)
			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, apperr.KindValidation, appErr.Kind)
			require.Contains(t, appErr.Fields, tt.field)
		})
	}

	_, err := f.tenders.Create(ctx, f.vendor, tests[0].in)
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestTransitionsRequireOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.createTender(t, 10)

	_, err := f.tenders.Publish(ctx, f.admin2, tender.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	// черновик поставщику не виден
	_, err = f.tenders.Publish(ctx, f.vendor, tender.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.tenders.CloseForReview(ctx, f.admin, tender.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestTerminalTendersRejectEveryTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)

	_, err := f.tenders.Cancel(ctx, f.admin, tender.ID)
	require.NoError(t, err)

	_, err = f.tenders.Publish(ctx, f.admin, tender.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.tenders.CloseForReview(ctx, f.admin, tender.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.tenders.Cancel(ctx, f.admin, tender.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	_, err = f.tenders.Award(ctx, f.admin, tender.ID, 1)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestCancelledTenderFreezesPendingBids(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)
	bid := f.submit(t, f.vendor, tender.ID, 100)

	_, err := f.tenders.Cancel(ctx, f.admin, tender.ID)
	require.NoError(t, err)

	_, err = f.bids.Decide(ctx, f.admin, bid.ID, service.DecideBidInput{Status: models.BidAccepted})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	stored, err := f.store.GetBid(ctx, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidPending, stored.Status)
}

func TestAwardRequiresAcceptedBidOfSameTender(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)
	other := f.biddingTender(t)
	pending := f.submit(t, f.vendor, tender.ID, 100)
	foreign := f.submit(t, f.vendor, other.ID, 100)
	_, err := f.bids.Decide(ctx, f.admin, foreign.ID, service.DecideBidInput{Status: models.BidAccepted})
	require.NoError(t, err)

	_, err = f.tenders.CloseForReview(ctx, f.admin, tender.ID)
	require.NoError(t, err)

	_, err = f.tenders.Award(ctx, f.admin, tender.ID, pending.ID)
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.tenders.Award(ctx, f.admin, tender.ID, foreign.ID)
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.tenders.Award(ctx, f.admin, tender.ID, 9999)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDecideRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)
	bid := f.submit(t, f.vendor, tender.ID, 100)
	sibling := f.submit(t, f.vendor2, tender.ID, 120)

	_, err := f.bids.Decide(ctx, f.admin2, bid.ID, service.DecideBidInput{Status: models.BidAccepted})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.bids.Decide(ctx, f.vendor, bid.ID, service.DecideBidInput{Status: models.BidAccepted})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.bids.Decide(ctx, f.admin, bid.ID, service.DecideBidInput{Status: models.BidPending})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.bids.Decide(ctx, f.admin, bid.ID, service.DecideBidInput{Status: models.BidAccepted})
	require.NoError(t, err)
	_, err = f.bids.Decide(ctx, f.admin, bid.ID, service.DecideBidInput{Status: models.BidRejected})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	// решение по одному предложению не трогает остальные
	stored, err := f.store.GetBid(ctx, sibling.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidPending, stored.Status)
}

func TestSubmitRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)

	_, err := f.bids.Submit(ctx, f.admin, service.SubmitBidInput{TenderID: tender.ID, Amount: 1, Proposal: "p"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.bids.Submit(ctx, f.vendor, service.SubmitBidInput{TenderID: tender.ID, Amount: -1, Proposal: "p"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.bids.Submit(ctx, f.vendor, service.SubmitBidInput{TenderID: tender.ID, Amount: 1, Proposal: "  "})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.bids.Submit(ctx, f.vendor, service.SubmitBidInput{TenderID: tender.ID, Amount: tender.Budget + 1, Proposal: "p"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	// несколько предложений от одного поставщика допустимы
	f.submit(t, f.vendor, tender.ID, 10)
	f.submit(t, f.vendor, tender.ID, 20)

	// деактивированный поставщик с устаревшим флагом в токене
	active := false
	_, err = f.users.Update(ctx, f.admin, f.vendor.UserID, service.UpdateUserInput{IsActive: &active})
	require.NoError(t, err)
	_, err = f.bids.Submit(ctx, f.vendor, service.SubmitBidInput{TenderID: tender.ID, Amount: 1, Proposal: "p"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestBidVisibility(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.biddingTender(t)
	f.submit(t, f.vendor, tender.ID, 100)
	f.submit(t, f.vendor2, tender.ID, 90)

	all, err := f.bids.ListForTender(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotNil(t, all[0].Bidder)
	require.Equal(t, f.vendor2.UserID, all[0].Bidder.ID)

	own, err := f.bids.ListForTender(ctx, f.vendor, tender.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	require.Nil(t, own[0].Bidder)
	require.Equal(t, f.vendor.UserID, own[0].BidderID)

	_, err = f.bids.ListForTender(ctx, f.admin2, tender.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	mine, err := f.bids.ListMine(ctx, f.vendor2, service.Page{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, tender.Title, mine[0].TenderTitle)
}

func TestListVisibleStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.createTender(t, 1)
	bidding := f.biddingTender(t)
	cancelled := f.biddingTender(t)
	_, err := f.tenders.Cancel(ctx, f.admin, cancelled.ID)
	require.NoError(t, err)

	all, err := f.tenders.List(ctx, f.admin, service.ListTendersInput{IncludeDrafts: true})
	require.NoError(t, err)
	require.Len(t, all, 3)

	noDrafts, err := f.tenders.List(ctx, f.admin, service.ListTendersInput{})
	require.NoError(t, err)
	require.Len(t, noDrafts, 2)

	vendorView, err := f.tenders.List(ctx, f.vendor, service.ListTendersInput{IncludeDrafts: true})
	require.NoError(t, err)
	require.Len(t, vendorView, 1)
	require.Equal(t, bidding.ID, vendorView[0].ID)
	require.Equal(t, []policy.Action{policy.SubmitBid, policy.View}, vendorView[0].AllowedActions)

	hidden, err := f.tenders.List(ctx, f.vendor, service.ListTendersInput{Status: models.TenderCancelled})
	require.NoError(t, err)
	require.Empty(t, hidden)

	_, err = f.tenders.List(ctx, f.admin, service.ListTendersInput{Status: "bogus"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateEditsDraftAndRoutesStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.createTender(t, 10)

	title := "Standing desks"
	v, err := f.tenders.Update(ctx, f.admin, tender.ID, service.UpdateTenderInput{Title: &title})
	require.NoError(t, err)
	require.Equal(t, title, v.Title)
	require.Equal(t, tender.Version+1, v.Version)

	bidding := models.TenderBidding
	v, err = f.tenders.Update(ctx, f.admin, tender.ID, service.UpdateTenderInput{Status: &bidding})
	require.NoError(t, err)
	require.Equal(t, models.TenderBidding, v.Status)

	_, err = f.tenders.Update(ctx, f.admin, tender.ID, service.UpdateTenderInput{Title: &title})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	awarded := models.TenderAwarded
	_, err = f.tenders.Update(ctx, f.admin, tender.ID, service.UpdateTenderInput{Status: &awarded})
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCloseExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now()
	expiring := f.publishDue(t, now.Add(time.Hour))
	fresh := f.publishDue(t, now.Add(48*time.Hour))

	f.tenders.SetClock(func() time.Time { return now.Add(2 * time.Hour) })

	closed, err := f.tenders.CloseExpired(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, closed)

	got, err := f.tenders.Get(ctx, f.admin, expiring.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderReview, got.Status)

	history, err := f.tenders.History(ctx, f.admin, expiring.ID)
	require.NoError(t, err)
	require.Nil(t, history[len(history)-1].ActorID)

	got, err = f.tenders.Get(ctx, f.admin, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderBidding, got.Status)

	// система не закрывает прием до истечения срока
	_, err = f.tenders.CloseForReview(ctx, policy.System, fresh.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func (f *fixture) publishDue(t *testing.T, deadline time.Time) *service.TenderView {
	t.Helper()
	v, err := f.tenders.Create(context.Background(), f.admin, service.CreateTenderInput{
		Title:       "Printer paper",
		Description: "A4, 500 boxes",
		Category:    "office",
		Budget:      5000,
		Deadline:    deadline,
	})
	require.NoError(t, err)
	v, err = f.tenders.Publish(context.Background(), f.admin, v.ID)
	require.NoError(t, err)
	return v
}

func TestLicenseGateBlocksGatedOperations(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	gate := func(context.Context) (bool, string) { return false, "expired" }
	tenders := service.NewTenderService(store, gate)

	u := &models.User{Email: "a@example.com", FullName: "A", Role: models.RoleAdmin, IsActive: true}
	require.NoError(t, store.CreateUser(ctx, u))

	_, err := tenders.Create(ctx, policy.ActorFromUser(u), service.CreateTenderInput{
		Title: "t", Description: "d", Category: "c", Budget: 1, Deadline: time.Now().Add(time.Hour),
	})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	require.Contains(t, err.Error(), "expired")
}

func TestUserAdministration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.users.List(ctx, f.vendor, service.Page{})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	users, err := f.users.List(ctx, f.admin, service.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, users, 2)

	inactive := false
	_, err = f.users.Update(ctx, f.admin, f.admin.UserID, service.UpdateUserInput{IsActive: &inactive})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.users.Update(ctx, f.admin, 9999, service.UpdateUserInput{IsActive: &inactive})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// tenderWithBid доводит тендер с одним предложением до нужного статуса.
func (f *fixture) tenderWithBid(t *testing.T, status models.TenderStatus) *service.TenderView {
	t.Helper()
	ctx := context.Background()
	tender := f.biddingTender(t)
	bid := f.submit(t, f.vendor, tender.ID, 100)
	if status == models.TenderBidding {
		return tender
	}
	if status == models.TenderCancelled {
		v, err := f.tenders.Cancel(ctx, f.admin, tender.ID)
		require.NoError(t, err)
		return v
	}
	_, err := f.bids.Decide(ctx, f.admin, bid.ID, service.DecideBidInput{Status: models.BidAccepted})
	require.NoError(t, err)
	v, err := f.tenders.CloseForReview(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	if status == models.TenderAwarded {
		v, err = f.tenders.Award(ctx, f.admin, tender.ID, bid.ID)
		require.NoError(t, err)
	}
	require.Equal(t, status, v.Status)
	return v
}

func TestSubmitOutsideBiddingIsInvalidTransition(t *testing.T) {
	for _, status := range []models.TenderStatus{
		models.TenderReview,
		models.TenderAwarded,
		models.TenderCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			tender := f.tenderWithBid(t, status)

			_, err := f.bids.Submit(context.Background(), f.vendor2, service.SubmitBidInput{
				TenderID: tender.ID,
				Amount:   50,
				Proposal: "late offer",
			})
			require.ErrorIs(t, err, apperr.ErrInvalidTransition)

			got, err := f.tenders.Get(context.Background(), f.admin, tender.ID)
			require.NoError(t, err)
			require.Equal(t, 1, got.BidCount)
		})
	}
}

func TestDeleteWithBidsConflictsInEveryStatus(t *testing.T) {
	for _, status := range []models.TenderStatus{
		models.TenderBidding,
		models.TenderReview,
		models.TenderAwarded,
		models.TenderCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			tender := f.tenderWithBid(t, status)

			err := f.tenders.Delete(ctx, f.admin, tender.ID)
			require.ErrorIs(t, err, apperr.ErrConflict)

			got, err := f.tenders.Get(ctx, f.admin, tender.ID)
			require.NoError(t, err)
			require.Equal(t, status, got.Status)
		})
	}
}

func TestPublishAfterDeadlineIsInvalidTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.createTender(t, 1000)

	f.tenders.SetClock(func() time.Time { return tender.Deadline.Add(time.Minute) })

	_, err := f.tenders.Publish(ctx, f.admin, tender.ID)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	got, err := f.tenders.Get(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Equal(t, models.TenderDraft, got.Status)
}

func TestUpdateRejectsFieldsWithStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tender := f.createTender(t, 1000)

	title := "changed"
	for _, status := range []models.TenderStatus{
		models.TenderBidding,
		models.TenderReview,
		models.TenderCancelled,
	} {
		st := status
		_, err := f.tenders.Update(ctx, f.admin, tender.ID, service.UpdateTenderInput{Title: &title, Status: &st})
		require.ErrorIs(t, err, apperr.ErrValidation, status)
	}

	got, err := f.tenders.Get(ctx, f.admin, tender.ID)
	require.NoError(t, err)
	require.Equal(t, tender.Title, got.Title)
	require.Equal(t, tender.Version, got.Version)
	require.Equal(t, models.TenderDraft, got.Status)
}
