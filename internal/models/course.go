package models

import "time"

// CourseTopic is one ordered module of a project's onboarding course.
type CourseTopic struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	ProjectID  uint           `gorm:"index:idx_topic_project_order;not null" json:"project_id"`
	Title      string         `gorm:"size:300;not null" json:"title"`
	OrderIndex int            `gorm:"index:idx_topic_project_order" json:"order_index"`
	CreatedAt  time.Time      `json:"created_at"`
	Summary    *CourseSummary `gorm:"-" json:"summary,omitempty"`
	Quiz       *CourseQuiz    `gorm:"-" json:"quiz,omitempty"`
}

func (CourseTopic) TableName() string { return "course_topics" }

type CourseSummary struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	TopicID uint   `gorm:"index;not null" json:"topic_id"`
	Content string `gorm:"type:text" json:"content"`
}

func (CourseSummary) TableName() string { return "course_summaries" }

type CourseQuiz struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	TopicID   uint           `gorm:"index;not null" json:"topic_id"`
	Title     string         `gorm:"size:300" json:"title"`
	Questions []QuizQuestion `gorm:"type:text;serializer:json" json:"questions"`
}

func (CourseQuiz) TableName() string { return "course_quizzes" }

// QuizQuestion is a single multiple-choice question. CorrectAnswer indexes Options.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
}
