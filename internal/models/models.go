// file: internal/models/models.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// PointsPerLevel is the number of points needed to climb one level.
const PointsPerLevel = 1000

// User is the part of a user record the rewards engine reads and mutates.
// Points and Level change only through the ledger.
type User struct {
	ID              int64      `json:"id" db:"id"`
	Username        string     `json:"username" db:"username"`
	Points          int64      `json:"points" db:"points"`
	Level           int        `json:"level" db:"level"`
	Badges          []string   `json:"badges" db:"badges"`
	ConsecutiveDays int        `json:"consecutive_days" db:"consecutive_days"`
	LastVisitDate   *time.Time `json:"last_visit_date,omitempty" db:"last_visit_date"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// HasBadge reports whether the badge name is already on the user's list.
func (u *User) HasBadge(name string) bool {
	for _, b := range u.Badges {
		if b == name {
			return true
		}
	}
	return false
}

// LevelForPoints maps a point total to a level, starting at 1.
func LevelForPoints(points int64) int {
	if points < 0 {
		return 1
	}
	return int(points/PointsPerLevel) + 1
}

// PostCategory is the category tag attached to a post.
type PostCategory string

const (
	CategoryBloom    PostCategory = "bloom"
	CategoryLandmark PostCategory = "landmark"
	CategoryFood     PostCategory = "food"
	CategoryScenic   PostCategory = "scenic"
	CategoryGeneral  PostCategory = "general"
)

// Post is a user's travel post as far as the rewards engine stores it.
type Post struct {
	ID            int64        `json:"id" db:"id"`
	UserID        int64        `json:"user_id" db:"user_id"`
	Location      string       `json:"location" db:"location"`
	Category      PostCategory `json:"category" db:"category"`
	ImageURL      string       `json:"image_url" db:"image_url"`
	Likes         int          `json:"likes" db:"likes"`
	CommentsCount int          `json:"comments_count" db:"comments_count"`
	IsPublic      bool         `json:"is_public" db:"is_public"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// Summary projects the post for statistics.
func (p *Post) Summary() *PostSummary {
	return &PostSummary{
		ID:            p.ID,
		Location:      p.Location,
		Category:      p.Category,
		Likes:         p.Likes,
		CommentsCount: p.CommentsCount,
		CreatedAt:     p.CreatedAt,
	}
}

// PostSummary is the projection of a visible post that statistics are computed from.
type PostSummary struct {
	ID            int64        `json:"id" db:"id"`
	Location      string       `json:"location" db:"location"`
	Category      PostCategory `json:"category" db:"category"`
	Likes         int          `json:"likes" db:"likes"`
	CommentsCount int          `json:"comments_count" db:"comments_count"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// Region returns the leading token of the location ("Seoul Jongno" → "Seoul").
func (p *PostSummary) Region() string {
	fields := strings.Fields(p.Location)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// RelatedPost is the lightweight post projection joined onto history rows.
type RelatedPost struct {
	ID       int64  `json:"id"`
	Location string `json:"location"`
	ImageURL string `json:"image_url,omitempty"`
}

// ===============================
// JSON COLUMNS
// ===============================

// Metadata is an open key/value bag stored as jsonb.
type Metadata map[string]interface{}

// Value implements driver.Valuer
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = Metadata{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: cannot scan %T", value)
	}
	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	*m = out
	return nil
}

// Clone returns a shallow copy so callers cannot mutate stored rows.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ===============================
// PAGINATION
// ===============================

// PaginationParams represents limit/offset pagination
type PaginationParams struct {
	Limit  int `json:"limit" validate:"min=1,max=100"`
	Offset int `json:"offset" validate:"min=0"`
}

// DefaultPagination mirrors the history endpoint defaults.
func DefaultPagination() PaginationParams {
	return PaginationParams{Limit: 20, Offset: 0}
}
