package models

import (
	"time"
)

// Paper origins.
const (
	OriginSearchImport = "search-import"
	OriginUpload       = "upload"
)

// User represents an authenticated account of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"fullName"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	Role         string    `db:"role" json:"role"`
	Institution  string    `db:"institution" json:"institution"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Workspace is a named container scoping a set of papers and a chat transcript.
// Names are labels, not keys.
type Workspace struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedBy string    `db:"created_by" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Paper is a bibliographic record owned by exactly one workspace.
type Paper struct {
	ID            string    `db:"id" json:"id"`
	WorkspaceID   string    `db:"workspace_id" json:"workspaceId"`
	Title         string    `db:"title" json:"title"`
	Authors       string    `db:"authors" json:"authors"`
	Abstract      string    `db:"abstract" json:"abstract"`
	PublishedDate string    `db:"published_date" json:"date"`
	SourceURL     *string   `db:"source_url" json:"url"`
	Origin        string    `db:"origin" json:"origin"`
	FileRef       *string   `db:"file_ref" json:"-"`
	ContentHash   *string   `db:"content_hash" json:"-"`
	ContentType   string    `db:"content_type" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
}

// CandidatePaper is a transient search result awaiting an import decision.
type CandidatePaper struct {
	Title         string `json:"title"`
	Authors       string `json:"authors"`
	Abstract      string `json:"abstract"`
	PublishedDate string `json:"date"`
	SourceURL     string `json:"url"`
}

// PaperChunk is one embedded text chunk extracted from an uploaded paper.
type PaperChunk struct {
	ID          string    `db:"id" json:"id"`
	PaperID     string    `db:"paper_id" json:"paperId"`
	WorkspaceID string    `db:"workspace_id" json:"workspaceId"`
	Text        string    `db:"text" json:"text"`
	Embedding   []float32 `db:"embedding" json:"-"`
	Position    int       `db:"position" json:"position"`
	TokenCount  int       `db:"token_count" json:"tokenCount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// ChatMessage is one question/answer exchange. Sequence is strictly
// increasing per workspace and defines display order.
type ChatMessage struct {
	ID          string    `db:"id" json:"id"`
	WorkspaceID string    `db:"workspace_id" json:"workspaceId"`
	Sequence    int64     `db:"sequence" json:"sequence"`
	Question    string    `db:"question" json:"message"`
	Answer      string    `db:"answer" json:"response"`
	AskedAt     time.Time `db:"asked_at" json:"askedAt"`
}

// WorkspaceStats aggregates per-workspace counts for the dashboard.
type WorkspaceStats struct {
	WorkspaceID string `json:"workspaceId"`
	Papers      int    `json:"papers"`
	Chats       int    `json:"chats"`
}
