package entity

import "time"

// Class represents a class owned by a teacher.
type Class struct {
	ID        string    `json:"id" yaml:"id"`
	TeacherID string    `json:"teacher_id" yaml:"teacher_id"`
	Name      string    `json:"name" yaml:"name"`
	Subject   string    `json:"subject,omitempty" yaml:"subject,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Activity is a writing activity posted to a class, graded against a rubric.
type Activity struct {
	ID          string     `json:"id" yaml:"id"`
	ClassID     string     `json:"class_id" yaml:"class_id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Rubric      string     `json:"rubric,omitempty" yaml:"rubric,omitempty"`
	DueAt       *time.Time `json:"due_at,omitempty" yaml:"due_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"-"`
}

// Student is one roster entry of a class.
type Student struct {
	ID      string `json:"id" yaml:"id"`
	ClassID string `json:"class_id" yaml:"class_id"`
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email,omitempty" yaml:"email,omitempty"`
}
