package model

import "time"

// Exchange is one answered question kept in the local transcript.
type Exchange struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Identity    string    `gorm:"size:128;not null;index:idx_exchange_owner_course" json:"identity"`
	CourseID    string    `gorm:"size:128;not null;index:idx_exchange_owner_course" json:"course_id"`
	Question    string    `gorm:"type:text;not null" json:"question"`
	Answer      string    `gorm:"type:mediumtext;not null" json:"answer"`
	SourceCount int       `gorm:"not null" json:"source_count"`
	CreatedAt   time.Time `json:"created_at"`
}
