package services

import (
	"context"
	"errors"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/client-tracker-backend/internal/domain"
	"github.com/tbourn/client-tracker-backend/internal/repo"
)

// ----- Helpers -----

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:svc_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func strp(s string) *string { return &s }

// sqlRepo forwards to the real repository functions.
type sqlRepo struct{}

func (sqlRepo) ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	return repo.ListClients(ctx, db)
}
func (sqlRepo) CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	return repo.CreateClient(ctx, db, c)
}
func (sqlRepo) GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error) {
	return repo.GetClient(ctx, db, id)
}
func (sqlRepo) UpdateClientFields(ctx context.Context, db *gorm.DB, c *domain.Client, f map[string]any) error {
	return repo.UpdateClientFields(ctx, db, c, f)
}
func (sqlRepo) DeleteClient(ctx context.Context, db *gorm.DB, id uint) error {
	return repo.DeleteClient(ctx, db, id)
}
func (sqlRepo) GetClientsStats(ctx context.Context, db *gorm.DB) (repo.ClientsStats, error) {
	return repo.GetClientsStats(ctx, db)
}

// ----- Fake repo for failure paths -----

type fakeClientRepo struct {
	sqlRepo
	listOut   []domain.Client
	listErr   error
	createErr error
	getErr    error
	updateErr error
	deleteErr error
	updates   int
}

func (r *fakeClientRepo) ListClients(ctx context.Context, db *gorm.DB) ([]domain.Client, error) {
	return r.listOut, r.listErr
}
func (r *fakeClientRepo) CreateClient(ctx context.Context, db *gorm.DB, c *domain.Client) error {
	if r.createErr != nil {
		return r.createErr
	}
	c.ID = 1
	return nil
}
func (r *fakeClientRepo) GetClient(ctx context.Context, db *gorm.DB, id uint) (*domain.Client, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	return &domain.Client{ID: id, Name: "x"}, nil
}
func (r *fakeClientRepo) UpdateClientFields(ctx context.Context, db *gorm.DB, c *domain.Client, f map[string]any) error {
	r.updates++
	return r.updateErr
}
func (r *fakeClientRepo) DeleteClient(ctx context.Context, db *gorm.DB, id uint) error {
	return r.deleteErr
}

func fullDraft(name string) domain.ClientDraft {
	return domain.ClientDraft{
		Name:     strp(name),
		Email:    strp(name + "@x.com"),
		Phone:    strp("555-1111"),
		CaseType: strp("Divorce"),
		Status:   strp("active"),
	}
}

// ----- Tests -----

func TestClientService_CreateListRoundTrip(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	ctx := context.Background()

	list, err := svc.List(ctx)
	if err != nil || list == nil || len(list) != 0 {
		t.Fatalf("empty store should list [] (non-nil), got %#v err=%v", list, err)
	}

	d := fullDraft("jane")
	d.Notes = strp("prefers email")
	c, err := svc.Create(ctx, d)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.ID == 0 || c.Name != "jane" || c.Notes == nil || *c.Notes != "prefers email" {
		t.Fatalf("unexpected created client: %+v", c)
	}

	list, err = svc.List(ctx)
	if err != nil || len(list) != 1 || list[0].ID != c.ID {
		t.Fatalf("List after create: %+v err=%v", list, err)
	}
	if _, err := svc.Create(ctx, fullDraft("john")); err != nil {
		t.Fatalf("second Create: %v", err)
	}
	list, _ = svc.List(ctx)
	if len(list) != 2 || list[0].ID >= list[1].ID {
		t.Fatalf("expected id-ascending order, got %+v", list)
	}
}

func TestClientService_Create_MissingFields(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})

	_, err := svc.Create(context.Background(), domain.ClientDraft{Name: strp("only name")})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	want := []string{"email", "phone", "case_type", "status"}
	if len(ve.Missing) != len(want) {
		t.Fatalf("missing = %v; want %v", ve.Missing, want)
	}
	for i := range want {
		if ve.Missing[i] != want[i] {
			t.Fatalf("missing = %v; want %v", ve.Missing, want)
		}
	}
	if err.Error() != "Missing required fields: email, phone, case_type, status" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	list, _ := svc.List(context.Background())
	if len(list) != 0 {
		t.Fatalf("no record should be created on validation error")
	}
}

func TestClientService_Create_EmptyStringsAccepted(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	e := ""
	c, err := svc.Create(context.Background(), domain.ClientDraft{Name: &e, Email: &e, Phone: &e, CaseType: &e, Status: &e})
	if err != nil {
		t.Fatalf("empty strings should be accepted: %v", err)
	}
	if c.Notes != nil {
		t.Fatalf("absent notes should stay nil")
	}
}

func TestClientService_Update_PartialAndNullNotes(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	ctx := context.Background()

	d := fullDraft("jane")
	d.Notes = strp("n1")
	c, _ := svc.Create(ctx, d)

	got, err := svc.Update(ctx, c.ID, domain.ClientPatch{Status: domain.Some(strp("closed"))})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Status != "closed" || got.Name != "jane" || got.Notes == nil || *got.Notes != "n1" {
		t.Fatalf("only status should change: %+v", got)
	}

	got, err = svc.Update(ctx, c.ID, domain.ClientPatch{Notes: domain.Optional[*string]{Set: true}})
	if err != nil {
		t.Fatalf("Update null notes: %v", err)
	}
	if got.Notes != nil {
		t.Fatalf("notes should be cleared, got %q", *got.Notes)
	}
}

func TestClientService_Update_EmptyPatchIsNoop(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	ctx := context.Background()
	c, _ := svc.Create(ctx, fullDraft("jane"))

	got, err := svc.Update(ctx, c.ID, domain.ClientPatch{})
	if err != nil {
		t.Fatalf("empty patch: %v", err)
	}
	if got.ID != c.ID || got.Status != "active" {
		t.Fatalf("record changed: %+v", got)
	}

	fr := &fakeClientRepo{}
	svc2 := NewClientService(newTestDB(t), fr)
	if _, err := svc2.Update(ctx, 3, domain.ClientPatch{}); err != nil {
		t.Fatalf("fake empty patch: %v", err)
	}
	if fr.updates != 0 {
		t.Fatalf("empty patch must not issue an update")
	}
}

func TestClientService_Update_NullOnRequiredField(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	ctx := context.Background()
	c, _ := svc.Create(ctx, fullDraft("jane"))

	_, err := svc.Update(ctx, c.ID, domain.ClientPatch{Name: domain.Optional[*string]{Set: true}})
	if !errors.Is(err, ErrValidation) || err.Error() != "Missing required fields: name" {
		t.Fatalf("expected validation error for null name, got %v", err)
	}
}

func TestClientService_Update_NotFound(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	_, err := svc.Update(context.Background(), 999, domain.ClientPatch{Status: domain.Some(strp("x"))})
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound, got %v", err)
	}
	// Empty patch on a missing id is still not found.
	_, err = svc.Update(context.Background(), 999, domain.ClientPatch{})
	if !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("expected ErrClientNotFound for empty patch, got %v", err)
	}
}

func TestClientService_Update_RepoErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	svc := NewClientService(newTestDB(t), &fakeClientRepo{updateErr: boom})
	_, err := svc.Update(context.Background(), 1, domain.ClientPatch{Status: domain.Some(strp("x"))})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestClientService_Delete(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	ctx := context.Background()
	c, _ := svc.Create(ctx, fullDraft("jane"))

	if err := svc.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := svc.Delete(ctx, c.ID); !errors.Is(err, ErrClientNotFound) {
		t.Fatalf("second Delete: want ErrClientNotFound, got %v", err)
	}

	// Ids are not reused after deletion.
	c2, _ := svc.Create(ctx, fullDraft("john"))
	if c2.ID <= c.ID {
		t.Fatalf("id %d reused (deleted %d)", c2.ID, c.ID)
	}
}

func TestClientService_RepoErrors(t *testing.T) {
	boom := errors.New("boom")
	ctx := context.Background()

	svc := NewClientService(newTestDB(t), &fakeClientRepo{listErr: boom})
	if _, err := svc.List(ctx); !errors.Is(err, boom) {
		t.Fatalf("List: want boom, got %v", err)
	}

	svc = NewClientService(newTestDB(t), &fakeClientRepo{createErr: boom})
	if _, err := svc.Create(ctx, fullDraft("x")); !errors.Is(err, boom) {
		t.Fatalf("Create: want boom, got %v", err)
	}

	svc = NewClientService(newTestDB(t), &fakeClientRepo{deleteErr: boom})
	if err := svc.Delete(ctx, 1); !errors.Is(err, boom) {
		t.Fatalf("Delete: want boom, got %v", err)
	}

	svc = NewClientService(newTestDB(t), &fakeClientRepo{})
	list, err := svc.List(ctx)
	if err != nil || list == nil {
		t.Fatalf("nil repo result should become empty slice: %#v %v", list, err)
	}
}

func TestClientService_Stats(t *testing.T) {
	svc := NewClientService(newTestDB(t), sqlRepo{})
	ctx := context.Background()
	_, _ = svc.Create(ctx, fullDraft("a"))
	_, _ = svc.Create(ctx, fullDraft("b"))

	st, err := svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Count != 2 || st.MaxID != 2 || st.MaxUpdatedAt == nil {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestValidationError_Message(t *testing.T) {
	if (&ValidationError{}).Error() != "Missing required fields" {
		t.Fatalf("bare message unexpected")
	}
	if missingFields([]string{"a", "b"}, true, true) != nil {
		t.Fatalf("all present should yield nil")
	}
}
