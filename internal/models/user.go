package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Location struct {
	Type        string    `bson:"type" json:"type" binding:"required,eq=Point"`
	Coordinates []float64 `bson:"coordinates" json:"coordinates" binding:"required,len=2,coordinates"`
}

// User - обліковий запис; створюється зовнішнім сервісом ідентифікації, тут лише читається.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email" json:"email"`
	Role       UserRole           `bson:"role" json:"role"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
	IsActive   bool               `bson:"is_active" json:"is_active"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// CanBeAssigned - чи можна призначити користувачу звернення.
func (u *User) CanBeAssigned() bool {
	return u.IsActive && u.Role.IsHigherOrEqual(RoleEmployee)
}
