// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotent replay for POST endpoints. A client that
// sends an Idempotency-Key header gets the first successful response stored
// under (scope, key); a retry with the same key is answered from that record
// without running the handler again, so no second client row is inserted and
// no second email is sent. Persistence is injected through two narrow
// function types so this package stays free of GORM.
package middleware

import (
	"bytes"
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotentReplayed is set to "true" on responses served from storage.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

// IdempotencyOptions configures key validation.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. Defaults to ^[A-Za-z0-9._~\-:]+$.
	Pattern *regexp.Regexp
}

// StoredResponse is a previously captured response.
type StoredResponse struct {
	Status int
	Body   []byte
}

// IdempotencyLookup returns the stored response for (scope, key) if one is
// still valid at now. A nil response with a nil error means none exists.
type IdempotencyLookup func(ctx context.Context, scope, key string, now time.Time) (*StoredResponse, error)

// IdempotencySave persists a successful response for (scope, key).
type IdempotencySave func(ctx context.Context, scope, key string, resp StoredResponse) error

// Idempotency returns the replay middleware. Requests other than POST, POSTs
// without the header and unmatched routes pass through untouched. An invalid
// key is rejected with 400. Lookup or save failures are logged and never
// block the request.
func Idempotency(opts IdempotencyOptions, lookup IdempotencyLookup, save IdempotencySave) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if c.Request.Method != http.MethodPost || key == "" || c.FullPath() == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": RequestIDFrom(c),
				"code":       "bad_idempotency_key",
				"error":      "invalid Idempotency-Key",
			})
			return
		}

		ctx := c.Request.Context()
		scope := c.Request.Method + " " + c.FullPath()

		if lookup != nil {
			stored, err := lookup(ctx, scope, key, time.Now().UTC())
			if err != nil {
				LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency lookup failed")
			}
			if stored != nil {
				c.Header(HeaderIdempotentReplayed, "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if save == nil || status < 200 || status > 299 {
			return
		}
		if err := save(ctx, scope, key, StoredResponse{Status: status, Body: cw.buf.Bytes()}); err != nil {
			LoggerFrom(c).Warn().Err(err).Str("scope", scope).Msg("idempotency save failed")
		}
	}
}

// captureWriter tees the response body into buf.
type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
