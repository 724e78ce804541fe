package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/researchhub/internal/config"
	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, username, password_hash, full_name, email, phone, role, institution, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (username) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, q,
		user.ID, user.Username, user.PasswordHash, user.FullName, user.Email, user.Phone, user.Role, user.Institution, user.CreatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Conflict("CreateUser", "username %q is taken", user.Username)
	}
	return nil
}

const userColumns = `id, username, password_hash, full_name, email, phone, role, institution, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Email, &u.Phone, &u.Role, &u.Institution, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *DatabaseClient) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(c.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(c.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// Workspaces

func (c *DatabaseClient) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	if ws == nil {
		return errors.New("nil workspace")
	}
	const q = `INSERT INTO workspaces (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`
	_, err := c.db.ExecContext(ctx, q, ws.ID, ws.Name, ws.CreatedBy, ws.CreatedAt)
	return err
}

func (c *DatabaseClient) GetWorkspace(ctx context.Context, id string) (*models.Workspace, error) {
	const q = `SELECT id, name, created_by, created_at FROM workspaces WHERE id = $1`
	var ws models.Workspace
	err := c.db.QueryRowContext(ctx, q, id).Scan(&ws.ID, &ws.Name, &ws.CreatedBy, &ws.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (c *DatabaseClient) ListWorkspacesByOwner(ctx context.Context, ownerID string) ([]models.Workspace, error) {
	const q = `
		SELECT id, name, created_by, created_at
		FROM workspaces
		WHERE created_by = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := c.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Workspace{}
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.CreatedBy, &ws.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, rows.Err()
}

// Papers

const paperColumns = `id, workspace_id, title, authors, abstract, published_date, source_url, origin, file_ref, content_hash, content_type, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPaper(r rowScanner) (*models.Paper, error) {
	var (
		p                          models.Paper
		sourceURL, fileRef, digest sql.NullString
	)
	err := r.Scan(&p.ID, &p.WorkspaceID, &p.Title, &p.Authors, &p.Abstract, &p.PublishedDate,
		&sourceURL, &p.Origin, &fileRef, &digest, &p.ContentType, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.SourceURL = nullable(sourceURL)
	p.FileRef = nullable(fileRef)
	p.ContentHash = nullable(digest)
	return &p, nil
}

func nullable(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// CreatePaperIfAbsent relies on the partial unique indexes over
// (workspace_id, source_url) and (workspace_id, content_hash).
func (c *DatabaseClient) CreatePaperIfAbsent(ctx context.Context, p *models.Paper) (*models.Paper, bool, error) {
	if p == nil {
		return nil, false, errors.New("nil paper")
	}
	const q = `
		INSERT INTO papers (` + paperColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, q,
		p.ID, p.WorkspaceID, p.Title, p.Authors, p.Abstract, p.PublishedDate,
		p.SourceURL, p.Origin, p.FileRef, p.ContentHash, p.ContentType, p.CreatedAt)
	if err != nil {
		return nil, false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return p, true, nil
	}

	var existing *models.Paper
	switch {
	case p.SourceURL != nil:
		existing, err = c.FindPaperBySourceURL(ctx, p.WorkspaceID, *p.SourceURL)
	case p.ContentHash != nil:
		existing, err = c.FindPaperByContentHash(ctx, p.WorkspaceID, *p.ContentHash)
	default:
		return nil, false, fmt.Errorf("paper %s was not inserted", p.ID)
	}
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("paper %s conflicted but no existing row was found", p.ID)
	}
	return existing, false, nil
}

func (c *DatabaseClient) queryOnePaper(ctx context.Context, q string, args ...any) (*models.Paper, error) {
	p, err := scanPaper(c.db.QueryRowContext(ctx, q, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (c *DatabaseClient) GetPaperByID(ctx context.Context, id string) (*models.Paper, error) {
	return c.queryOnePaper(ctx, `SELECT `+paperColumns+` FROM papers WHERE id = $1`, id)
}

func (c *DatabaseClient) FindPaperBySourceURL(ctx context.Context, workspaceID, sourceURL string) (*models.Paper, error) {
	return c.queryOnePaper(ctx, `SELECT `+paperColumns+` FROM papers WHERE workspace_id = $1 AND source_url = $2`, workspaceID, sourceURL)
}

func (c *DatabaseClient) FindPaperByContentHash(ctx context.Context, workspaceID, digest string) (*models.Paper, error) {
	return c.queryOnePaper(ctx, `SELECT `+paperColumns+` FROM papers WHERE workspace_id = $1 AND content_hash = $2`, workspaceID, digest)
}

func (c *DatabaseClient) ListPapersByWorkspace(ctx context.Context, workspaceID string) ([]models.Paper, error) {
	return c.queryPapers(ctx, `SELECT `+paperColumns+` FROM papers WHERE workspace_id = $1 ORDER BY created_at ASC, id ASC`, workspaceID)
}

// ListPapersByWorkspaceLimit returns the first limit papers of a workspace in
// insertion order.
func (c *DatabaseClient) ListPapersByWorkspaceLimit(ctx context.Context, workspaceID string, limit int) ([]models.Paper, error) {
	return c.queryPapers(ctx, `SELECT `+paperColumns+` FROM papers WHERE workspace_id = $1 ORDER BY created_at ASC, id ASC LIMIT $2`, workspaceID, limit)
}

func (c *DatabaseClient) queryPapers(ctx context.Context, q string, args ...any) ([]models.Paper, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Paper{}
	for rows.Next() {
		p, err := scanPaper(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountPapersByWorkspace(ctx context.Context, workspaceID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM papers WHERE workspace_id = $1`, workspaceID).Scan(&n)
	return n, err
}

// Paper chunks

// InsertPaperChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertPaperChunks(ctx context.Context, chunks []models.PaperChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO paper_chunks
			(id, paper_id, workspace_id, position, text, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.PaperID, ch.WorkspaceID, ch.Position, ch.Text, pgvector.NewVector(ch.Embedding), ch.TokenCount, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchWorkspaceChunks finds the top-k chunks of a workspace closest to queryVec.
func (c *DatabaseClient) SearchWorkspaceChunks(ctx context.Context, workspaceID string, queryVec []float32, limit int) ([]models.PaperChunk, error) {
	const q = `
		SELECT id, paper_id, workspace_id, position, text, embedding, token_count, created_at
		FROM paper_chunks
		WHERE workspace_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, workspaceID, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PaperChunk
	for rows.Next() {
		var (
			ch  models.PaperChunk
			emb pgvector.Vector
		)
		if err := rows.Scan(&ch.ID, &ch.PaperID, &ch.WorkspaceID, &ch.Position, &ch.Text, &emb, &ch.TokenCount, &ch.CreatedAt); err != nil {
			return nil, err
		}
		ch.Embedding = emb.Slice()
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Chat messages

// AppendChatMessage locks the workspace row so concurrent sends for the same
// workspace are assigned distinct, increasing sequence numbers.
func (c *DatabaseClient) AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	if msg == nil {
		return errors.New("nil chat message")
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var locked string
	err = tx.QueryRowContext(ctx, `SELECT id FROM workspaces WHERE id = $1 FOR UPDATE`, msg.WorkspaceID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound("AppendChatMessage", "workspace %s not found", msg.WorkspaceID)
	}
	if err != nil {
		return err
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM chat_messages WHERE workspace_id = $1`, msg.WorkspaceID,
	).Scan(&next); err != nil {
		return err
	}

	const q = `
		INSERT INTO chat_messages (id, workspace_id, sequence, question, answer, asked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, q, msg.ID, msg.WorkspaceID, next, msg.Question, msg.Answer, msg.AskedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	msg.Sequence = next
	return nil
}

func (c *DatabaseClient) ListChatMessages(ctx context.Context, workspaceID string) ([]models.ChatMessage, error) {
	const q = `
		SELECT id, workspace_id, sequence, question, answer, asked_at
		FROM chat_messages
		WHERE workspace_id = $1
		ORDER BY sequence ASC
	`
	rows, err := c.db.QueryContext(ctx, q, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.Sequence, &m.Question, &m.Answer, &m.AskedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) CountChatMessages(ctx context.Context, workspaceID string) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT count(*) FROM chat_messages WHERE workspace_id = $1`, workspaceID).Scan(&n)
	return n, err
}

func (c *DatabaseClient) DeleteChatMessages(ctx context.Context, workspaceID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE workspace_id = $1`, workspaceID)
	return err
}
