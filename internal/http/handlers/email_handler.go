// Email relay HTTP handler.
//
// POST /send-update renders a notification for one recipient and hands it
// to the mail provider. It does not look up or modify client records.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/client-tracker-backend/internal/domain"
	"github.com/tbourn/client-tracker-backend/internal/services"
)

// SendUpdate godoc
// @ID          sendUpdate
// @Summary     Send a notification email
// @Description Relays one HTML email through SendGrid. email, subject and message are required; client_name defaults to "Client".
// @Tags        Email
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Replay key for safe retries"  example(notify-jane-1)
// @Param       body             body    domain.EmailRequest  true  "Email payload"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid JSON or missing fields"
// @Failure     500  {object}  handlers.ErrorResponse "Provider rejected or unreachable"
// @Router      /send-update [post]
func (h *Handlers) SendUpdate(c *gin.Context) {
	var req domain.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err)
		return
	}

	res, err := h.relaySvc.SendUpdate(c.Request.Context(), req)
	switch {
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	case !res.Success:
		fail(c, http.StatusInternalServerError, ErrCodeRelayFailed, res.Error)
	default:
		message(c, "Email sent successfully")
	}
}
