package quotes

// Status enumerates the quote lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusOpen      Status = "open"
	StatusClosed    Status = "closed"
	StatusReopened  Status = "reopened"
	StatusCancelled Status = "cancelled"
	StatusDeleted   Status = "deleted"
)

// transitions is the single source of truth for legal status changes.
// Cancelled and deleted are terminal.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusOpen},
	StatusOpen:     {StatusClosed, StatusCancelled, StatusDeleted},
	StatusClosed:   {StatusReopened, StatusCancelled, StatusDeleted},
	StatusReopened: {StatusClosed, StatusCancelled, StatusDeleted},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// AllowsItemChanges gates adding, replacing and removing items.
func (s Status) AllowsItemChanges() bool {
	return s == StatusOpen || s == StatusReopened
}

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusDeleted
}
