package lifecycle

import (
	"workmarket/internal/domain"
	"workmarket/internal/models"
)

var gigTransitions = map[models.GigStatus][]models.GigStatus{
	models.GigOpen:       {models.GigInProgress, models.GigClosed},
	models.GigInProgress: {models.GigCompleted, models.GigClosed},
	models.GigCompleted:  {},
	models.GigClosed:     {},
}

// CanTransitionGig checks the gig table. In loose mode any known status is
// accepted as the target, including the current one.
func CanTransitionGig(from, to models.GigStatus, strict bool) bool {
	if !to.Valid() {
		return false
	}
	if !strict {
		return true
	}
	for _, next := range gigTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidateGigTransition(from, to models.GigStatus, strict bool) error {
	if CanTransitionGig(from, to, strict) {
		return nil
	}
	terr := &domain.TransitionError{Entity: models.EntityJobGig, From: string(from), To: string(to)}
	next := models.GigStatuses
	if strict {
		var known bool
		next, known = gigTransitions[from]
		terr.Terminal = known && len(next) == 0
	}
	for _, s := range next {
		terr.Allowed = append(terr.Allowed, string(s))
	}
	return terr
}

// ValidateGigAcceptance checks that a bid may be accepted on a gig in this
// status. Only Open gigs accept, whatever the transition mode.
func ValidateGigAcceptance(status models.GigStatus) error {
	return ValidateGigTransition(status, models.GigInProgress, true)
}

// BiddableStatuses lists the gig statuses that take new bids.
func BiddableStatuses(allowLate bool) []models.GigStatus {
	if allowLate {
		return []models.GigStatus{models.GigOpen, models.GigInProgress}
	}
	return []models.GigStatus{models.GigOpen}
}

// AcceptsBids reports whether new bids may be placed on a gig in this status.
func AcceptsBids(status models.GigStatus, allowLate bool) bool {
	for _, s := range BiddableStatuses(allowLate) {
		if s == status {
			return true
		}
	}
	return false
}
