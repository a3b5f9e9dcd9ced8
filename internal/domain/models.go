package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Auth providers recorded on User.Provider.
const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// Message roles.
const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// User represents an application user, either a local (possibly anonymous)
// account or one created through Google sign-in.
type User struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username          *string            `bson:"username,omitempty" json:"username,omitempty"`
	Email             *string            `bson:"email,omitempty" json:"email,omitempty"`
	IsAnonymous       bool               `bson:"is_anonymous" json:"is_anonymous"`
	HashedPassword    *string            `bson:"hashed_password,omitempty" json:"-"`
	GoogleID          *string            `bson:"google_id,omitempty" json:"-"`
	Provider          string             `bson:"provider" json:"provider"`
	ProfilePictureURL *string            `bson:"profile_picture_url,omitempty" json:"profile_picture_url,omitempty"`
	IsModerator       bool               `bson:"is_moderator" json:"-"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

// EmotionAnalysis is the label/score/intensity triple attached to a message.
// Source distinguishes real model output ("gemini") from static fallbacks.
type EmotionAnalysis struct {
	Label     string  `bson:"label" json:"label"`
	Score     float64 `bson:"score" json:"score"`
	Intensity string  `bson:"intensity,omitempty" json:"intensity,omitempty"`
	Source    string  `bson:"source" json:"source"`
}

// FlagInfo records a moderator flagging a message for review.
type FlagInfo struct {
	Reason string    `bson:"reason" json:"reason"`
	By     string    `bson:"by" json:"by"`
	At     time.Time `bson:"at" json:"at"`
}

// MessageMetadata is the union of known metadata variants on a chat message.
// Extra keeps unknown fields written by other tooling readable and intact.
type MessageMetadata struct {
	Crisis      bool             `bson:"crisis,omitempty" json:"crisis,omitempty"`
	Analysis    *EmotionAnalysis `bson:"analysis,omitempty" json:"analysis,omitempty"`
	Suggestions []string         `bson:"suggestions,omitempty" json:"suggestions,omitempty"`
	Flagged     *FlagInfo        `bson:"flagged,omitempty" json:"flagged,omitempty"`
	Extra       bson.M           `bson:"extra,omitempty" json:"extra,omitempty"`
}

// ChatMessage is a single chat turn. Content is always ciphertext at rest;
// decryption happens only when building responses.
type ChatMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"user_id" json:"user_id"`
	Role      string             `bson:"role" json:"role"`
	Content   string             `bson:"content" json:"-"`
	Metadata  *MessageMetadata   `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// IsCrisis reports whether the message was stored as a crisis turn.
func (m *ChatMessage) IsCrisis() bool {
	return m.Metadata != nil && m.Metadata.Crisis
}

// IsFlagged reports whether a moderator flagged the message.
func (m *ChatMessage) IsFlagged() bool {
	return m.Metadata != nil && m.Metadata.Flagged != nil
}

// EmotionLabel returns the analyzed emotion label, or "" when none is attached.
func (m *ChatMessage) EmotionLabel() string {
	if m.Metadata == nil || m.Metadata.Analysis == nil {
		return ""
	}
	return m.Metadata.Analysis.Label
}

// ConversationState tracks where a user is in a multi-turn dialogue.
// The collection exists and is indexed, but no code path writes it yet.
type ConversationState struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	LastIntent *string            `bson:"last_intent,omitempty" json:"last_intent,omitempty"`
	StepStage  *string            `bson:"step_stage,omitempty" json:"step_stage,omitempty"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}
