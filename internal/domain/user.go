package domain

import "time"

type User struct {
	ID           string    `db:"id" bson:"_id" json:"id"`
	Name         string    `db:"name" bson:"name" json:"name" validate:"required"`
	Email        string    `db:"email" bson:"email" json:"email" validate:"required,email"`
	PasswordHash string    `db:"password_hash" bson:"password_hash" json:"-" validate:"required"`
	CreatedAt    time.Time `db:"created_at" bson:"created_at" json:"createdAt"`
}

// Validate checks the record before it is written to a store.
func (u *User) Validate() error {
	return validateStruct(u)
}
