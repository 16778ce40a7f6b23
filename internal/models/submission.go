package models

import (
	"time"

	"gorm.io/datatypes"
)

type Answer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// Submission is one participant's answers to a poll. ExpireAt always equals
// the parent poll's ExpireAt.
type Submission struct {
	ID               uint                        `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time                   `json:"createdAt"`
	PollID           uint                        `gorm:"index;not null" json:"pollId"`
	Answers          datatypes.JSONSlice[Answer] `gorm:"not null" json:"answers"`
	ParticipantName  string                      `gorm:"size:255" json:"participantName,omitempty"`
	ParticipantEmail string                      `gorm:"size:255" json:"participantEmail,omitempty"`
	ParticipantPhone string                      `gorm:"size:50" json:"participantPhone,omitempty"`
	ConsentAgreed    bool                        `gorm:"not null" json:"consentAgreed"`
	SubmittedAt      time.Time                   `gorm:"not null" json:"submittedAt"`
	ExpireAt         time.Time                   `gorm:"index;not null" json:"expireAt"`
}
