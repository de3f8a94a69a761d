// Package domain defines the persistence model for client records and the
// request/response shapes shared by the store, the email relay and the HTTP
// layer. Client is mapped with GORM and forms the core data layer of the
// tracker.
package domain

import "time"

// Client is a legal-practice client tracked by the service.
//
// Fields:
//   - ID: system-assigned integer primary key. AUTOINCREMENT keeps ids from
//     being reused after deletion.
//   - Name, Email, Phone, CaseType, Status: required columns. Lengths follow
//     the column sizes; no format validation is applied.
//   - Notes: optional free text, serialized as null when unset.
//   - CreatedAt / UpdatedAt: managed by GORM and used only for list ETags.
type Client struct {
	ID        uint      `json:"id"        gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name"      gorm:"type:varchar(100);not null"`
	Email     string    `json:"email"     gorm:"type:varchar(120);not null"`
	Phone     string    `json:"phone"     gorm:"type:varchar(20);not null"`
	CaseType  string    `json:"case_type" gorm:"type:varchar(200);not null"`
	Status    string    `json:"status"    gorm:"type:varchar(50);not null"`
	Notes     *string   `json:"notes"     gorm:"type:text"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Client.
func (Client) TableName() string { return "clients" }

// ClientDraft is the input for creating a client. A nil field means the key
// was absent from the request; an empty string is a present value.
type ClientDraft struct {
	Name     *string `json:"name"      example:"Jane Doe"`
	Email    *string `json:"email"     example:"jane@x.com"`
	Phone    *string `json:"phone"     example:"555-1111"`
	CaseType *string `json:"case_type" example:"Divorce"`
	Status   *string `json:"status"    example:"active"`
	Notes    *string `json:"notes,omitempty" example:"Prefers email contact"`
}

// ClientPatch is a partial update. Only fields whose Set flag is true are
// written; an explicit JSON null arrives as Set with a nil Value.
type ClientPatch struct {
	Name     Optional[*string] `json:"name"      swaggertype:"string"`
	Email    Optional[*string] `json:"email"     swaggertype:"string"`
	Phone    Optional[*string] `json:"phone"     swaggertype:"string"`
	CaseType Optional[*string] `json:"case_type" swaggertype:"string"`
	Status   Optional[*string] `json:"status"    swaggertype:"string" example:"closed"`
	Notes    Optional[*string] `json:"notes"     swaggertype:"string"`
}

// Empty reports whether the patch carries no fields at all.
func (p ClientPatch) Empty() bool {
	return !p.Name.Set && !p.Email.Set && !p.Phone.Set &&
		!p.CaseType.Set && !p.Status.Set && !p.Notes.Set
}
