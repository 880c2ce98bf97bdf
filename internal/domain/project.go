package domain

import (
	"strings"
	"time"
)

// Project is owned by exactly one user, fixed at creation.
type Project struct {
	ID          string    `db:"id" bson:"_id" json:"id"`
	Name        string    `db:"name" bson:"name" json:"name" validate:"required"`
	Description string    `db:"description" bson:"description" json:"description"`
	UserID      string    `db:"user_id" bson:"user_id" json:"user" validate:"required"`
	CreatedAt   time.Time `db:"created_at" bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" bson:"updated_at" json:"updatedAt"`
}

// OwnedBy reports whether userID may read or mutate the project.
func (p *Project) OwnedBy(userID string) bool {
	return p.UserID == userID
}

func (p *Project) Validate() error {
	return validateStruct(p)
}

// ProjectPatch carries the fields of a partial update; nil means unchanged.
type ProjectPatch struct {
	Name        *string
	Description *string
}

// Apply overwrites the provided fields on p.
func (pp ProjectPatch) Apply(p *Project) error {
	if pp.Name != nil {
		if strings.TrimSpace(*pp.Name) == "" {
			return &ValidationError{Field: "name", Message: "Project name is required"}
		}
		p.Name = *pp.Name
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	return nil
}
