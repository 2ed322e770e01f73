package paedu

import (
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CommentParent identifies the record a comment hangs off.
type CommentParent string

const (
	CommentOnPost     CommentParent = "post"
	CommentOnActivity CommentParent = "activity"
)

// Tag is the registry of tag texts, unique per text.
type Tag struct {
	bun.BaseModel `bun:"table:tags,alias:tag"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Text          string     `bun:"text,notnull,unique" json:"text"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Post is a wall post
type Post struct {
	bun.BaseModel `bun:"table:posts,alias:pst"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Body          string     `bun:"body" json:"body,omitempty"`
	BodyHTML      string     `bun:"body_html" json:"body_html,omitempty"`
	AuthorID      uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"author_id,omitempty"`
	Author        *User      `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	Tags          []string   `bun:"tags" json:"tags,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Comment hangs off a post or an activity.
type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cmt"`
	ID            uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Body          string        `bun:"body" json:"body,omitempty"`
	BodyHTML      string        `bun:"body_html" json:"body_html,omitempty"`
	CommenterID   uuid.UUID     `bun:"commenter_id,notnull,type:uuid" json:"commenter_id,omitempty"`
	ParentID      uuid.UUID     `bun:"parent_id,notnull,type:uuid" json:"parent_id,omitempty"`
	ParentKind    CommentParent `bun:"parent_kind,notnull" json:"parent_kind,omitempty"`
	CreatedAt     *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	DeletedAt     *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Diary is a personal study journal entry, visible to its author only.
type Diary struct {
	bun.BaseModel   `bun:"table:diaries,alias:dry"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title           string     `bun:"title" json:"title,omitempty"`
	Description     string     `bun:"description" json:"description,omitempty"`
	DescriptionHTML string     `bun:"description_html" json:"description_html,omitempty"`
	AuthorID        uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"author_id,omitempty"`
	Tags            []string   `bun:"tags" json:"tags,omitempty"`
	StudyActivities []string   `bun:"study_activities" json:"study_activities,omitempty"`
	StudyMinutes    int        `bun:"study_minutes" json:"study_minutes,omitempty"`
	OtherActivities []string   `bun:"other_activities" json:"other_activities,omitempty"`
	OtherMinutes    int        `bun:"other_minutes" json:"other_minutes,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt       *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Activity is a school event users can mark interest in.
type Activity struct {
	bun.BaseModel   `bun:"table:activities,alias:act"`
	ID              uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title           string     `bun:"title" json:"title,omitempty"`
	Description     string     `bun:"description" json:"description,omitempty"`
	DescriptionHTML string     `bun:"description_html" json:"description_html,omitempty"`
	AuthorID        uuid.UUID  `bun:"author_id,notnull,type:uuid" json:"author_id,omitempty"`
	StartsAt        *time.Time `bun:"starts_at" json:"starts_at,omitempty"`
	Tags            []string   `bun:"tags" json:"tags,omitempty"`
	Interested      []string   `bun:"interested" json:"interested,omitempty"`
	Going           []string   `bun:"going" json:"going,omitempty"`
	CreatedAt       *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt       *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Suggestion is a canned response for the suggestion box.
type Suggestion struct {
	bun.BaseModel `bun:"table:suggestions,alias:sgn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Query         string     `bun:"query,notnull" json:"query"`
	Responses     []string   `bun:"responses" json:"responses,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// RenderBody produces the stored HTML rendition of user supplied text:
// escaped and wrapped in paragraphs split on blank lines.
func RenderBody(body string) string {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return ""
	}

	paragraphs := strings.Split(strings.ReplaceAll(trimmed, "\r\n", "\n"), "\n\n")
	var b strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

// SplitTags normalizes a comma separated tag list: trimmed, lowercased,
// empty entries dropped, duplicates removed in order.
func SplitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]bool, len(parts))
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		text := strings.ToLower(strings.TrimSpace(part))
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		tags = append(tags, text)
	}
	return tags
}

// AppendUnique adds value to list when absent, reporting whether it changed.
func AppendUnique(list []string, value string) ([]string, bool) {
	for _, v := range list {
		if v == value {
			return list, false
		}
	}
	return append(list, value), true
}
