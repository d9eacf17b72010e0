package models

import "time"

// User is the identity record behind an email claim. Email is the natural
// key; ID and CreatedAt are assigned once when the record is first created.
type User struct {
	ID        string    `gorm:"size:36;primaryKey" json:"id"`
	Email     string    `gorm:"not null;size:320;uniqueIndex:idx_users_email" json:"email"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}
