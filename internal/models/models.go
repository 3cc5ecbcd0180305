package models

import (
	"encoding/json"
	"time"

	"github.com/justsurfingit/hr-requisitions/internal/forms"
	"github.com/justsurfingit/hr-requisitions/internal/permissions"
)

type Role struct {
	ID          string               `gorm:"primaryKey;size:36" json:"id"`
	Name        permissions.RoleName `gorm:"uniqueIndex;size:32;not null" json:"name"`
	Permissions permissions.Set      `gorm:"type:jsonb;serializer:json" json:"permissions"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type Company struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name     string `gorm:"uniqueIndex;not null" json:"company_name"`
	IsActive bool   `gorm:"not null" json:"is_active"`
}

// Profile is a user's identity projection. Credentials live with the
// identity provider, not here.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	RoleID   string `gorm:"size:36;not null" json:"role_id"`
	Role     *Role  `json:"role,omitempty"`
	IsActive bool   `gorm:"not null" json:"is_active"`

	Companies []CompanyAssociation `json:"companies,omitempty"`
}

type CompanyAssociation struct {
	ID            string `gorm:"primaryKey;size:36" json:"id"`
	ProfileID     string `gorm:"size:36;not null;uniqueIndex:ux_company_assoc" json:"profile_id"`
	CompanyID     string `gorm:"size:36;not null;uniqueIndex:ux_company_assoc" json:"company_id"`
	RoleInCompany string `gorm:"size:64" json:"role_in_company"`
	IsActive      bool   `gorm:"not null" json:"is_active"`
}

// FormTemplate rows are never deleted: old versions stay for snapshot history.
// At most one row per company has IsActive set; a partial unique index
// enforces it (see database.Migrate).
type FormTemplate struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	CompanyID string          `gorm:"size:36;not null;index" json:"company_id"`
	Version   int             `gorm:"not null" json:"version"`
	IsActive  bool            `gorm:"not null;default:false" json:"is_active"`
	Sections  []forms.Section `gorm:"type:jsonb;serializer:json" json:"sections"`
	CreatedBy string          `gorm:"size:36" json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
}

// TemplateSnapshot is the frozen copy of the template a requisition answered.
type TemplateSnapshot struct {
	TemplateID string          `json:"template_id"`
	CompanyID  string          `json:"company_id"`
	Version    int             `json:"version"`
	Sections   []forms.Section `json:"sections"`
	CapturedAt time.Time       `json:"captured_at"`
}

// Snapshot deep-copies t. A nil template yields a nil snapshot.
func (t *FormTemplate) Snapshot(at time.Time) *TemplateSnapshot {
	if t == nil {
		return nil
	}
	return &TemplateSnapshot{
		TemplateID: t.ID,
		CompanyID:  t.CompanyID,
		Version:    t.Version,
		Sections:   forms.CloneSections(t.Sections),
		CapturedAt: at.UTC(),
	}
}

// SameTemplate reports whether the snapshot was taken from t. Two absent
// templates are considered the same.
func (s *TemplateSnapshot) SameTemplate(t *FormTemplate) bool {
	if s == nil || t == nil {
		return s == nil && t == nil
	}
	return s.TemplateID == t.ID
}

type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
	StatusFilled    Status = "filled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusFilled:
		return true
	default:
		return false
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusInReview, StatusApproved, StatusRejected, StatusCancelled, StatusFilled:
		return true
	default:
		return false
	}
}

type ReasonForOpening struct {
	NewPosition   bool `json:"new_position"`
	Replacement   bool `json:"replacement"`
	Temporary     bool `json:"temporary"`
	Growth        bool `json:"growth"`
	Restructuring bool `json:"restructuring"`
}

type ComputerSkill struct {
	Name  string `json:"name" validate:"required"`
	Level string `json:"level" validate:"oneof=none basic intermediate advanced"`
}

// FixedFields are the business fields every requisition carries regardless
// of the company template.
type FixedFields struct {
	Position          string           `json:"position" validate:"required"`
	Department        string           `json:"department" validate:"required"`
	VacancyCount      int              `json:"vacancy_count" validate:"gte=1"`
	ReasonForOpening  ReasonForOpening `json:"reason_for_opening"`
	RequiredFunctions []string         `json:"required_functions"`
	RequiredEducation string           `json:"required_education"`
	ComputerSkills    []ComputerSkill  `json:"computer_skills" validate:"dive"`
}

type Requisition struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CompanyID        string            `gorm:"size:36;not null;index" json:"company_id"`
	Status           Status            `gorm:"size:16;not null;index;default:'draft'" json:"status"`
	FixedFields      FixedFields       `gorm:"type:jsonb;serializer:json" json:"fixed_fields"`
	TemplateSnapshot *TemplateSnapshot `gorm:"type:jsonb;serializer:json" json:"template_snapshot"`
	CreatedBy        string            `gorm:"size:36;not null;index" json:"created_by"`
	Version          int               `gorm:"not null;default:1" json:"version"`
	StatusChangedAt  time.Time         `json:"status_changed_at"`
	SubmittedAt      *time.Time        `json:"submitted_at,omitempty"`
	ReopenedFrom     *string           `gorm:"size:36" json:"reopened_from,omitempty"`

	CustomResponses []CustomResponse `gorm:"foreignKey:RequisitionID" json:"custom_responses"`
}

// Responses folds the per-section rows back into a single map.
func (r *Requisition) Responses() forms.Responses {
	out := make(forms.Responses, len(r.CustomResponses))
	for _, cr := range r.CustomResponses {
		out[cr.SectionID] = cr.Responses
	}
	return out
}

type CustomResponse struct {
	ID            string                     `gorm:"primaryKey;size:36" json:"-"`
	RequisitionID string                     `gorm:"size:36;not null;uniqueIndex:ux_custom_response" json:"-"`
	SectionID     string                     `gorm:"size:64;not null;uniqueIndex:ux_custom_response" json:"section_id"`
	Responses     map[string]json.RawMessage `gorm:"type:jsonb;serializer:json" json:"responses"`
}

// RequisitionEvent records every successful status change.
type RequisitionEvent struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	RequisitionID string    `gorm:"size:36;not null;index" json:"requisition_id"`
	FromStatus    Status    `gorm:"size:16" json:"from_status"`
	ToStatus      Status    `gorm:"size:16;not null" json:"to_status"`
	ActorID       string    `gorm:"size:36" json:"actor_id"`
	Note          string    `gorm:"type:text" json:"note,omitempty"`
}
