// Package services – ClientService
//
// This file implements ClientService, which owns the lifecycle of client
// records: listing, creating, partially updating and deleting them. It checks
// required-field presence and coordinates repository calls; the repository
// itself performs no validation.
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/client-tracker-backend/internal/domain"
	"github.com/tbourn/client-tracker-backend/internal/repo"
)

// ClientRepo defines the repository contract required by ClientService.
type ClientRepo interface {
	// ListClients returns all clients ordered by id ascending.
	ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error)

	// CreateClient inserts c and assigns its id.
	CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error

	// GetClient fetches one client by id.
	GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error)

	// UpdateClientFields writes the given columns to c's row.
	UpdateClientFields(ctx context.Context, db *gorm.DB, c *domain.Client, fields map[string]any) error

	// DeleteClient removes a client by id.
	DeleteClient(ctx context.Context, db *gorm.DB, id uint) error

	// GetClientsStats summarizes the table for ETag generation.
	GetClientsStats(ctx context.Context, db *gorm.DB) (repo.ClientsStats, error)
}

// ClientService provides the client store operations.
type ClientService struct {
	DB   *gorm.DB
	Repo ClientRepo
}

// NewClientService constructs a ClientService.
func NewClientService(db *gorm.DB, r ClientRepo) *ClientService {
	return &ClientService{DB: db, Repo: r}
}

var clientFieldOrder = []string{"name", "email", "phone", "case_type", "status", "notes"}

// List returns every client in id order. The slice is never nil.
func (s *ClientService) List(ctx context.Context) ([]domain.Client, error) {
	ctx, span := otel.Tracer("services/ClientService").Start(ctx, "List")
	defer span.End()

	out, err := s.Repo.ListClients(ctx, s.DB)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if out == nil {
		out = []domain.Client{}
	}
	span.SetAttributes(attribute.Int("clients.count", len(out)))
	return out, nil
}

// Stats returns the table summary used for conditional list responses.
func (s *ClientService) Stats(ctx context.Context) (repo.ClientsStats, error) {
	return s.Repo.GetClientsStats(ctx, s.DB)
}

// Create persists a new client. Name, email, phone, case_type and status must
// all be present; empty strings are accepted. Notes is optional.
func (s *ClientService) Create(ctx context.Context, d domain.ClientDraft) (*domain.Client, error) {
	ctx, span := otel.Tracer("services/ClientService").Start(ctx, "Create")
	defer span.End()

	if err := missingFields(clientFieldOrder,
		d.Name != nil, d.Email != nil, d.Phone != nil, d.CaseType != nil, d.Status != nil,
	); err != nil {
		return nil, err
	}

	c := &domain.Client{
		Name:     *d.Name,
		Email:    *d.Email,
		Phone:    *d.Phone,
		CaseType: *d.CaseType,
		Status:   *d.Status,
		Notes:    d.Notes,
	}
	if err := s.Repo.CreateClient(ctx, s.DB, c); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("client.id", int64(c.ID)))
	return c, nil
}

// Update applies the fields present in p to the client with the given id and
// returns the stored result. Null is accepted only for notes. An empty patch
// leaves the record untouched but still fails with ErrClientNotFound when the
// id does not exist.
func (s *ClientService) Update(ctx context.Context, id uint, p domain.ClientPatch) (*domain.Client, error) {
	ctx, span := otel.Tracer("services/ClientService").Start(ctx, "Update",
		trace.WithAttributes(attribute.Int64("client.id", int64(id))),
	)
	defer span.End()

	fields, err := patchColumns(p)
	if err != nil {
		return nil, err
	}

	var out *domain.Client
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := s.Repo.GetClient(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			out = c
			return nil
		}
		if err := s.Repo.UpdateClientFields(ctx, tx, c, fields); err != nil {
			return err
		}
		out, err = s.Repo.GetClient(ctx, tx, id)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// Delete removes the client with the given id.
func (s *ClientService) Delete(ctx context.Context, id uint) error {
	ctx, span := otel.Tracer("services/ClientService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.Int64("client.id", int64(id))),
	)
	defer span.End()

	err := s.Repo.DeleteClient(ctx, s.DB, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrClientNotFound
	}
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// patchColumns maps the present fields of p to column values. A required
// column sent as null is reported as missing.
func patchColumns(p domain.ClientPatch) (map[string]any, error) {
	fields := map[string]any{}
	var nulls []string

	required := []struct {
		col string
		opt domain.Optional[*string]
	}{
		{"name", p.Name},
		{"email", p.Email},
		{"phone", p.Phone},
		{"case_type", p.CaseType},
		{"status", p.Status},
	}
	for _, f := range required {
		if !f.opt.Set {
			continue
		}
		if f.opt.Value == nil {
			nulls = append(nulls, f.col)
			continue
		}
		fields[f.col] = *f.opt.Value
	}
	if len(nulls) > 0 {
		return nil, &ValidationError{Missing: nulls}
	}

	if p.Notes.Set {
		if p.Notes.Value == nil {
			fields["notes"] = nil
		} else {
			fields["notes"] = *p.Notes.Value
		}
	}
	return fields, nil
}
