package domain

import (
	"context"
	"time"
)

// MessageFilter narrows admin message listings. Nil fields mean "no filter".
type MessageFilter struct {
	Emotion *string
	Crisis  *bool
	Skip    int
	Limit   int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, skip, limit int) ([]*User, error)
	Count(ctx context.Context) (int64, error)
}

// MessageRepository defines persistence operations for chat messages.
type MessageRepository interface {
	Create(ctx context.Context, m *ChatMessage) error
	GetByID(ctx context.Context, id string) (*ChatMessage, error)
	// ListForUser returns the user's most recent messages, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]*ChatMessage, error)
	// ListForUserAsc returns up to limit of the user's oldest messages in
	// chronological order.
	ListForUserAsc(ctx context.Context, userID string, limit int) ([]*ChatMessage, error)
	UpdateMetadata(ctx context.Context, id string, md *MessageMetadata) error
	// ListFiltered applies the admin filter, newest first.
	ListFiltered(ctx context.Context, f MessageFilter) ([]*ChatMessage, error)
	// ListFlaggedOrCrisis returns crisis or moderator-flagged messages, newest first.
	ListFlaggedOrCrisis(ctx context.Context) ([]*ChatMessage, error)
	// ListWithMetadataSince returns messages carrying metadata created on or
	// after since, up to limit (0 means no limit).
	ListWithMetadataSince(ctx context.Context, since time.Time, limit int) ([]*ChatMessage, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	CountWithMetadata(ctx context.Context) (int64, error)
	CountForUser(ctx context.Context, userID string) (int64, error)
	LastForUser(ctx context.Context, userID string) (*ChatMessage, error)
}
