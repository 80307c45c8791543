// Package catalog holds the learning catalog domain records and their
// persistence boundary.
package catalog

import "time"

// ModuleType is the closed set of categories a module belongs to.
type ModuleType string

const (
	ModuleJava         ModuleType = "JAVA"
	ModuleSpring       ModuleType = "SPRING"
	ModuleDatabase     ModuleType = "DATABASE"
	ModuleSystemDesign ModuleType = "SYSTEM_DESIGN"
	ModuleDSA          ModuleType = "DSA"
)

// ModuleTypes lists every valid module category.
var ModuleTypes = []ModuleType{ModuleJava, ModuleSpring, ModuleDatabase, ModuleSystemDesign, ModuleDSA}

// Valid reports whether t is one of the known categories.
func (t ModuleType) Valid() bool {
	for _, known := range ModuleTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Difficulty is the difficulty tier of a topic or question.
type Difficulty string

const (
	Beginner     Difficulty = "BEGINNER"
	Intermediate Difficulty = "INTERMEDIATE"
	Advanced     Difficulty = "ADVANCED"
)

// QuestionType tags how a question is presented.
type QuestionType string

const (
	QuestionPractice  QuestionType = "PRACTICE"
	QuestionQuiz      QuestionType = "QUIZ"
	QuestionInterview QuestionType = "INTERVIEW"
)

// Module is a top-level content category, e.g. a language track.
type Module struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Category    ModuleType `json:"category"`
	OrderIndex  int        `json:"order_index"`
}

// Topic is one lesson document belonging to a module.
// (ModuleID, Title) is its natural key.
type Topic struct {
	ID               int64      `json:"id"`
	ModuleID         int64      `json:"module_id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Difficulty       Difficulty `json:"difficulty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
	Content          string     `json:"content"`
	OrderIndex       int        `json:"order_index"`
	Published        bool       `json:"published"`
}

// Question is a practice item parsed out of a topic body.
// (TopicID, Title) is its natural key.
type Question struct {
	ID          int64        `json:"id"`
	TopicID     int64        `json:"topic_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Solution    string       `json:"solution,omitempty"`
	Type        QuestionType `json:"type"`
	Difficulty  Difficulty   `json:"difficulty"`
	OrderIndex  int          `json:"order_index"` // 1-based position within the topic
}

// User is a portal account. Only the seed bootstrap writes users.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
