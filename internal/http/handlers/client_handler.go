// Client HTTP handlers.
//
// This file exposes REST endpoints for client records:
//   - GET    /clients/       (list, weak ETag support)
//   - POST   /clients/       (create)
//   - PUT    /clients/{id}   (partial update)
//   - DELETE /clients/{id}   (delete)
//
// Handlers are transport-thin: they decode input, call application services,
// and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/client-tracker-backend/internal/domain"
	"github.com/tbourn/client-tracker-backend/internal/repo"
	"github.com/tbourn/client-tracker-backend/internal/services"
	"github.com/tbourn/client-tracker-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// ClientService defines the client store operations consumed by handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ClientService interface {
	// List returns every client ordered by id.
	List(ctx context.Context) ([]domain.Client, error)
	// Stats summarizes the store for list ETags.
	Stats(ctx context.Context) (repo.ClientsStats, error)
	// Create validates and persists a new client.
	Create(ctx context.Context, d domain.ClientDraft) (*domain.Client, error)
	// Update applies a partial update to an existing client.
	Update(ctx context.Context, id uint, p domain.ClientPatch) (*domain.Client, error)
	// Delete removes a client.
	Delete(ctx context.Context, id uint) error
}

// RelayService sends notification emails.
type RelayService interface {
	SendUpdate(ctx context.Context, req domain.EmailRequest) (domain.EmailResult, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for clients and email relay.
type Handlers struct {
	clientSvc ClientService
	relaySvc  RelayService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(clientSvc ClientService, relaySvc RelayService) *Handlers {
	return &Handlers{clientSvc: clientSvc, relaySvc: relaySvc}
}

//
// Helpers
//

// clientsETag derives a weak validator for the list from table stats.
// Count and max id move on create/delete; max updated_at moves on update.
func clientsETag(st repo.ClientsStats) string {
	var ts int64
	if st.MaxUpdatedAt != nil {
		ts = st.MaxUpdatedAt.UnixNano()
	}
	return fmt.Sprintf(`W/"clients:%d:%d:%d"`, st.Count, st.MaxID, ts)
}

// bindFailed maps a JSON decode error to 413 or 400.
func bindFailed(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodePayloadTooLarge, "request body too large")
		return
	}
	fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
}

// clientID parses the :id path parameter, writing a 400 when it is invalid.
func clientID(c *gin.Context) (uint, bool) {
	id, valid := utils.ParseID(c.Param("id"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "client id must be a positive integer")
	}
	return id, valid
}

//
// Handlers
//

// ListClients godoc
// @ID          listClients
// @Summary     List clients
// @Description Returns every client ordered by id. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Clients
// @Produce     json
//
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"  example(W/\"clients:2:2:1735830000000000000\")
//
// @Success     200  {array}   domain.Client
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /clients/ [get]
func (h *Handlers) ListClients(c *gin.Context) {
	ctx := c.Request.Context()

	// ETag pre-check (best effort).
	if st, err := h.clientSvc.Stats(ctx); err == nil {
		etag := clientsETag(st)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.clientSvc.List(ctx)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// CreateClient godoc
// @ID          createClient
// @Summary     Create a client
// @Description Stores a new client. name, email, phone, case_type and status are required; notes is optional.
// @Tags        Clients
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false  "Replay key for safe retries"  example(create-jane-1)
// @Param       body             body    domain.ClientDraft  true  "Client fields"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse "Invalid JSON or missing fields"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /clients/ [post]
func (h *Handlers) CreateClient(c *gin.Context) {
	var draft domain.ClientDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		bindFailed(c, err)
		return
	}

	if _, err := h.clientSvc.Create(c.Request.Context(), draft); err != nil {
		if errors.Is(err, services.ErrValidation) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	message(c, "Client added successfully")
}

// UpdateClient godoc
// @ID          updateClient
// @Summary     Update a client
// @Description Overwrites only the fields present in the body. notes may be null to clear it.
// @Tags        Clients
// @Accept      json
// @Produce     json
//
// @Param       id    path  int  true  "Client ID"  minimum(1) example(1)
// @Param       body  body  domain.ClientPatch  true  "Fields to change"
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad id or body"
// @Failure     404  {object}  handlers.ErrorResponse "Client not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /clients/{id} [put]
func (h *Handlers) UpdateClient(c *gin.Context) {
	id, valid := clientID(c)
	if !valid {
		return
	}

	// A missing body is an empty patch, so unknown ids still get a 404.
	var patch domain.ClientPatch
	if err := c.ShouldBindJSON(&patch); err != nil && !errors.Is(err, io.EOF) {
		bindFailed(c, err)
		return
	}

	_, err := h.clientSvc.Update(c.Request.Context(), id, patch)
	switch {
	case err == nil:
		message(c, "Client updated successfully")
	case errors.Is(err, services.ErrClientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Client not found")
	case errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeUpdateFailed, err.Error())
	}
}

// DeleteClient godoc
// @ID          deleteClient
// @Summary     Delete a client
// @Tags        Clients
// @Produce     json
//
// @Param       id  path  int  true  "Client ID"  minimum(1) example(1)
//
// @Success     200  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse "Bad id"
// @Failure     404  {object}  handlers.ErrorResponse "Client not found"
// @Failure     500  {object}  handlers.ErrorResponse "Internal error"
// @Router      /clients/{id} [delete]
func (h *Handlers) DeleteClient(c *gin.Context) {
	id, valid := clientID(c)
	if !valid {
		return
	}

	err := h.clientSvc.Delete(c.Request.Context(), id)
	switch {
	case err == nil:
		message(c, "Client deleted")
	case errors.Is(err, services.ErrClientNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Client not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
	}
}
