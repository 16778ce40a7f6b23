package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	QuestionText     = "text"
	QuestionButton   = "button"
	QuestionDropdown = "dropdown"
)

// QuestionTypes lists every valid question type.
var QuestionTypes = []string{QuestionText, QuestionButton, QuestionDropdown}

// Question is one entry of a poll's ordered question list.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Type     string   `json:"type"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
}

// HasOption reports whether answer is one of the question's options.
func (q Question) HasOption(answer string) bool {
	for _, o := range q.Options {
		if o == answer {
			return true
		}
	}
	return false
}

// Poll is a time-bounded question set. ExpireAt is the only deletion
// trigger; submissions copy it at creation.
type Poll struct {
	ID             uint                          `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time                     `json:"createdAt"`
	UpdatedAt      time.Time                     `json:"updatedAt"`
	UserID         uint                          `gorm:"index;not null" json:"userId"`
	Title          string                        `gorm:"size:255;not null" json:"title"`
	Description    string                        `gorm:"type:text" json:"description"`
	Questions      datatypes.JSONSlice[Question] `gorm:"not null" json:"questions"`
	ConsentEnabled bool                          `gorm:"not null" json:"consentEnabled"`
	ConsentText    string                        `gorm:"type:text" json:"consentText,omitempty"`
	ExpireAt       time.Time                     `gorm:"index;not null" json:"expireAt"`
}

func (p *Poll) GetUserID() uint { return p.UserID }

// Expired reports whether expireAt <= now.
func (p *Poll) Expired(now time.Time) bool { return !now.Before(p.ExpireAt) }

// Question looks a question up by id.
func (p *Poll) Question(id string) (Question, bool) {
	for _, q := range p.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}
