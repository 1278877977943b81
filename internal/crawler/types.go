// Package crawler defines core types shared across subsystems.
package crawler

import "time"

// TaskStatus represents the lifecycle state of a crawl task.
type TaskStatus string

// Task status values held in the registry.
const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusStopped   TaskStatus = "stopped"
)

// IsTerminal reports whether the status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusStopped:
		return true
	default:
		return false
	}
}

// AnonymousAuthor is the sentinel used when a listing item carries no
// resolvable author element.
const AnonymousAuthor = "anonymous"

// QuestionRecord is one harvested listing item. Every numeric field is
// extraction-safe: absence of the expected markup yields the zero default,
// never a failure of the whole record.
type QuestionRecord struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"user"`
	Reputation  int       `json:"reputation"`
	AskedTime   string    `json:"asked_time"`
	PreciseTime string    `json:"precise_time"`
	Likes       int       `json:"likes"`
	Answers     int       `json:"answers"`
	Views       int       `json:"views"`
	Tags        []string  `json:"tags"`
	QuestionURL string    `json:"question_link"`
	AuthorURL   string    `json:"user_link"`
	CrawledAt   time.Time `json:"crawled_at"`
	SourcePage  int       `json:"source_page"`
}

// TaskParameters captures the per-task knobs requested by the client.
type TaskParameters struct {
	MaxPages int           `json:"max_pages"`
	Timeout  time.Duration `json:"-"`
}

// TaskSnapshot is a read-only copy of a task's state handed to API callers.
type TaskSnapshot struct {
	ID          string          `json:"task_id"`
	Status      TaskStatus      `json:"status"`
	Progress    int             `json:"progress"`
	CurrentPage int             `json:"current_page"`
	TotalPages  int             `json:"total_pages"`
	Message     string          `json:"message"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *ResultDocument `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// ResultDocument is the self-contained payload produced per completed
// crawl: the dataset plus the analytics derived from it. It is both the
// task result and the archived artifact named by task id.
type ResultDocument struct {
	TotalQuestions int              `json:"total_questions"`
	BasicStats     BasicStats       `json:"basic_stats"`
	TopQuestions   []QuestionRecord `json:"top_questions"`
	TopUsers       []UserStats      `json:"top_users"`
	TopTags        []TagCount       `json:"top_tags"`
	Questions      []QuestionRecord `json:"questions"`
	CompletedAt    time.Time        `json:"completed_at"`
}

// BasicStats aggregates counters over a dataset.
type BasicStats struct {
	TotalQuestions  int     `json:"total_questions"`
	TotalViews      int     `json:"total_views"`
	TotalLikes      int     `json:"total_likes"`
	TotalAnswers    int     `json:"total_answers"`
	TotalReputation int     `json:"total_reputation"`
	TotalUsers      int     `json:"total_users"`
	AvgViews        float64 `json:"avg_views"`
	AvgLikes        float64 `json:"avg_likes"`
	AvgAnswers      float64 `json:"avg_answers"`
	MaxViews        int     `json:"max_views"`
	MinViews        int     `json:"min_views"`
}

// UserStats is one row of the per-author aggregation.
type UserStats struct {
	Rank          int    `json:"rank,omitempty"`
	User          string `json:"user"`
	QuestionCount int    `json:"question_count"`
	TotalViews    int    `json:"total_views"`
	TotalLikes    int    `json:"total_likes"`
	TotalAnswers  int    `json:"total_answers"`
	Reputation    int    `json:"reputation"`
}

// TagCount is one tag with its occurrence count.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CrawlRequest wraps a task ready to run on the worker pool.
type CrawlRequest struct {
	TaskID    string
	Params    TaskParameters
	Submitted int64
}

// CompletionEvent is published once a task settles.
type CompletionEvent struct {
	TaskID  string     `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Records int        `json:"records"`
	Error   string     `json:"error,omitempty"`
	At      time.Time  `json:"at"`
}
