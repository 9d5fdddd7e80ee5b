package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondOutcome maps a command outcome onto an HTTP status: the outcome body
// is always the full notification envelope, success or not.
func RespondOutcome(c *gin.Context, out services.Outcome, successStatus int) {
	if out.Success {
		c.JSON(successStatus, out)
		return
	}
	c.JSON(statusFor(out.Notifications), out)
}

func statusFor(notifications []types.Notification) int {
	status := http.StatusUnprocessableEntity
	for _, n := range notifications {
		switch n.Code {
		case types.CodeNotFound:
			return http.StatusNotFound
		case types.CodePersistence:
			status = http.StatusInternalServerError
		}
	}
	return status
}
