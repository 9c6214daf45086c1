// Package lifecycle хранит таблицы допустимых переходов статусов тендера и предложения.
package lifecycle

import "tenderportal/models"

var tenderEdges = map[models.TenderStatus][]models.TenderStatus{
	models.TenderDraft:   {models.TenderBidding, models.TenderCancelled},
	models.TenderBidding: {models.TenderReview, models.TenderCancelled},
	models.TenderReview:  {models.TenderAwarded, models.TenderCancelled},
}

var bidEdges = map[models.BidStatus][]models.BidStatus{
	models.BidPending: {models.BidAccepted, models.BidRejected},
}

// CanTransitionTender сообщает, есть ли ребро from -> to в автомате тендера.
func CanTransitionTender(from, to models.TenderStatus) bool {
	for _, s := range tenderEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanTransitionBid сообщает, есть ли ребро from -> to в автомате предложения.
func CanTransitionBid(from, to models.BidStatus) bool {
	for _, s := range bidEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

func TenderTerminal(s models.TenderStatus) bool {
	return len(tenderEdges[s]) == 0
}

func BidTerminal(s models.BidStatus) bool {
	return len(bidEdges[s]) == 0
}

// AcceptsBids: предложения принимаются только в статусе bidding.
func AcceptsBids(s models.TenderStatus) bool {
	return s == models.TenderBidding
}

// DecisionsOpen: решения по pending-предложениям возможны, пока тендер в bidding или review.
func DecisionsOpen(s models.TenderStatus) bool {
	return s == models.TenderBidding || s == models.TenderReview
}

// TenderStatuses возвращает все статусы тендера в порядке жизненного цикла.
func TenderStatuses() []models.TenderStatus {
	return []models.TenderStatus{
		models.TenderDraft,
		models.TenderBidding,
		models.TenderReview,
		models.TenderAwarded,
		models.TenderCancelled,
	}
}
