// Package models defines the core data structures for users, tasks and
// authenticated identities.
package models

// User represents an application user with credentials.
type User struct {
	// ID is the unique identifier for the user.
	ID int `json:"id"`
	// Username is the login name chosen by the user.
	Username string `json:"username"`
	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string `json:"password"`
}

// Task is a single tracked item. CompletionDate and File are nil when unset.
type Task struct {
	// ID is unique and stable for the task's lifetime.
	ID int `json:"id"`
	// Title is the display name of the task.
	Title string `json:"title"`
	// StatusID is a position in the status label list.
	StatusID int `json:"statusId"`
	// CompletionDate is the planned completion date as sent by the client.
	CompletionDate *string `json:"completionDate"`
	// File is the original name of the attachment, if one is stored.
	File *string `json:"file"`
}

// HasAttachment reports whether the task owns a stored attachment.
func (t Task) HasAttachment() bool {
	return t.File != nil
}

// Identity is the verified subject of a session token.
type Identity struct {
	Username string
	UserID   int
}
