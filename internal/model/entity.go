package model

import (
	"time"
)

// User account able to host or watch live board sessions
type User struct {
	ID         int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email      string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Nickname   string  `gorm:"type:varchar(100);not null" json:"nickname"`
	Password   string  `gorm:"type:varchar(255);not null" json:"-"`
	ProfileImg *string `gorm:"type:text" json:"profile_img,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	QuestionSets []QuestionSet `gorm:"foreignKey:OwnerID" json:"question_sets,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// QuestionSet is a named, optionally password-gated ordered collection of
// questions. The code is the human-entered identifier used at session setup.
type QuestionSet struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Code     string `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Name     string `gorm:"type:varchar(200);not null" json:"name"`
	Password string `gorm:"type:varchar(255)" json:"-"`
	OwnerID  int64  `gorm:"not null" json:"owner_id"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Owner     User       `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Questions []Question `gorm:"foreignKey:SetID" json:"questions,omitempty"`
}

func (QuestionSet) TableName() string {
	return "question_sets"
}

// Question is a bilingual prompt/options/answer/solution record. The sync
// protocol treats it as opaque content; only its position inside the set
// (= slide index) is synchronized.
type Question struct {
	ID       int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	SetID    int64 `gorm:"not null;index:idx_set_position" json:"set_id"`
	Position int   `gorm:"not null;index:idx_set_position" json:"position"`

	Prompt        string  `gorm:"type:text;not null" json:"prompt"`
	PromptAlt     *string `gorm:"type:text" json:"prompt_alt,omitempty"`
	Options       string  `gorm:"type:jsonb;not null;default:'[]'" json:"options"`
	OptionsAlt    *string `gorm:"type:jsonb" json:"options_alt,omitempty"`
	Answer        string  `gorm:"type:varchar(255);not null" json:"answer"`
	Solution      *string `gorm:"type:text" json:"solution,omitempty"`
	SolutionAlt   *string `gorm:"type:text" json:"solution_alt,omitempty"`
	ImageURL      *string `gorm:"type:text" json:"image_url,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Set QuestionSet `gorm:"foreignKey:SetID" json:"set,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// BoardSession records a live session for listing and auditing. The drawable
// state itself is ephemeral and never stored here. One row per hosting run:
// re-hosting a session id after the previous host left inserts a fresh row,
// so the column is indexed but not unique.
type BoardSession struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string     `gorm:"type:varchar(64);index;not null" json:"session_id"`
	HostID    int64      `gorm:"not null" json:"host_id"`
	SetCode   *string    `gorm:"type:varchar(64)" json:"set_code,omitempty"`
	StartedAt time.Time  `gorm:"autoCreateTime" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// Relations
	Host User `gorm:"foreignKey:HostID" json:"host,omitempty"`
}

func (BoardSession) TableName() string {
	return "board_sessions"
}
