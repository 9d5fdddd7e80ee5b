package quotes

// Code classifies a notification so callers can map outcomes without
// inspecting message text. Every failure travels through the same
// (field, message) channel regardless of code.
type Code string

const (
	CodeValidation       Code = "validation"
	CodeNotFound         Code = "not_found"
	CodeReferenceInvalid Code = "reference_invalid"
	CodePersistence      Code = "persistence"
)

// Notification is one validation or failure condition.
type Notification struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    Code   `json:"code"`
}

// Result is an immutable, ordered accumulation of notifications.
// The zero value is valid. With and Merge return new values so results can
// be shared across goroutines without hidden mutation.
type Result struct {
	Notifications []Notification
}

func OK() Result { return Result{} }

func Fail(code Code, field, message string) Result {
	return OK().With(code, field, message)
}

func (r Result) Valid() bool { return len(r.Notifications) == 0 }

func (r Result) With(code Code, field, message string) Result {
	out := make([]Notification, 0, len(r.Notifications)+1)
	out = append(out, r.Notifications...)
	out = append(out, Notification{Field: field, Message: message, Code: code})
	return Result{Notifications: out}
}

func (r Result) Merge(other Result) Result {
	if other.Valid() {
		return r
	}
	out := make([]Notification, 0, len(r.Notifications)+len(other.Notifications))
	out = append(out, r.Notifications...)
	out = append(out, other.Notifications...)
	return Result{Notifications: out}
}

// HasCode reports whether any accumulated notification carries the code.
func (r Result) HasCode(code Code) bool {
	for _, n := range r.Notifications {
		if n.Code == code {
			return true
		}
	}
	return false
}
