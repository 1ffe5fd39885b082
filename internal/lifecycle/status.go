package lifecycle

import "github.com/hongminglow/flous-cash-be/internal/models"

// transitions lists the review moves an admin may make. Rejected and
// completed are terminal. Completion is only reachable through approval.
var transitions = map[models.ServiceStatus][]models.ServiceStatus{
	models.StatusPending:  {models.StatusApproved, models.StatusRejected},
	models.StatusApproved: {models.StatusCompleted, models.StatusRejected},
}

// CanTransition reports whether a service in from may move to to.
func CanTransition(from, to models.ServiceStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
