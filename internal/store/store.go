package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ErrNotFound is returned when a record with the requested id does not exist.
var ErrNotFound = errors.New("record not found")

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// Record is one stored interview result.
type Record struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Score             int       `json:"score"`
	Confidence        float64   `json:"confidence"`
	InterviewQuestion string    `json:"interview_question"`
	JobTitle          string    `json:"job_title"`
	JobRequirements   string    `json:"job_requirements"`
	Feedback          string    `json:"feedback"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Patch lists the fields to change on update. Nil fields are left as they are.
type Patch struct {
	Name              *string  `json:"name,omitempty"`
	Score             *int     `json:"score,omitempty"`
	Confidence        *float64 `json:"confidence,omitempty"`
	InterviewQuestion *string  `json:"interview_question,omitempty"`
	JobTitle          *string  `json:"job_title,omitempty"`
	JobRequirements   *string  `json:"job_requirements,omitempty"`
	Feedback          *string  `json:"feedback,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Score == nil && p.Confidence == nil && p.InterviewQuestion == nil &&
		p.JobTitle == nil && p.JobRequirements == nil && p.Feedback == nil
}

// Apply copies the set fields onto r.
func (p Patch) Apply(r *Record) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Score != nil {
		r.Score = *p.Score
	}
	if p.Confidence != nil {
		r.Confidence = *p.Confidence
	}
	if p.InterviewQuestion != nil {
		r.InterviewQuestion = *p.InterviewQuestion
	}
	if p.JobTitle != nil {
		r.JobTitle = *p.JobTitle
	}
	if p.JobRequirements != nil {
		r.JobRequirements = *p.JobRequirements
	}
	if p.Feedback != nil {
		r.Feedback = *p.Feedback
	}
}

// Store persists interview results.
type Store interface {
	// Create assigns an id and timestamps and returns the id.
	Create(ctx context.Context, r Record) (string, error)
	Get(ctx context.Context, id string) (*Record, error)
	// List returns all records, oldest first.
	List(ctx context.Context) ([]Record, error)
	Update(ctx context.Context, id string, p Patch) (*Record, error)
	Close() error
}

// Config selects and configures a backend.
type Config struct {
	Backend string      `mapstructure:"backend"`
	Path    string      `mapstructure:"path"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// Open returns the configured store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendSQLite:
		return OpenSQLite(ctx, cfg.Path)
	case BackendRedis:
		return OpenRedis(ctx, cfg.Redis)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Backend)
	}
}

// prepare fills the id and timestamps of a new record.
func prepare(r Record) (Record, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("generate record id: %w", err)
	}

	ts := now()
	r.ID = id.String()
	r.CreatedAt = ts
	r.UpdatedAt = ts

	return r, nil
}
