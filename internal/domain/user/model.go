package user

import (
	"context"
	"time"
)

type User struct {
	ID         int64      `json:"id"`
	Username   string     `json:"username"`
	Credential Credential `json:"-"`
	CreatedAt  time.Time  `json:"-"`
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateCredential(ctx context.Context, id int64, c Credential) error
}
