package entity

import "time"

// User represents a row in the `users` table.
type User struct {
	ID        int64     `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	Password  string    `db:"password" json:"-"`
	Remark    *string   `db:"remark" json:"remark"`
	IsAdmin   bool      `db:"is_admin" json:"is_admin"`
	Height    *float64  `db:"height" json:"height"`
	Weight    *float64  `db:"weight" json:"weight"`
	Age       *int64    `db:"age" json:"age"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewUser carries the fields accepted on creation. ID and CreatedAt are
// assigned by the store.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Remark       *string
	IsAdmin      bool
	Height       *float64
	Weight       *float64
	Age          *int64
}
