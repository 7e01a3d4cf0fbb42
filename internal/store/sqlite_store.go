// Package store persists captured network transactions: metadata in SQLite,
// bodies in a content-addressed blob store.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/idna"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/simaofelgueirasJM/flipper/internal/logging"
	"github.com/simaofelgueirasJM/flipper/internal/model"
	"github.com/simaofelgueirasJM/flipper/internal/reporter"
)

//go:embed schema.sql
var schemaFS embed.FS

var (
	ErrNotFound   = errors.New("store: not found")
	ErrNilLogger  = errors.New("store: nil logger provided")
	ErrNoStorage  = errors.New("store: storage path is empty")
	ErrNoResponse = errors.New("store: transaction has no response")
)

// DefaultListLimit is used when ListOptions.Limit is not positive.
const DefaultListLimit = 100

// ListOptions filters List.
type ListOptions struct {
	Limit  int
	Host   string
	Method string
}

// SQLiteStore stores transactions and doubles as a reporter.Reporter.
type SQLiteStore struct {
	db     *sql.DB
	blobs  *BlobStore
	logger logging.Logger
	config *Config

	// blobMu is held shared while a body is written and its row inserted,
	// and exclusively by Clear, so Clear never removes a blob a new row
	// points at.
	blobMu sync.RWMutex

	afterClearCommit func() // test hook
}

var _ reporter.Reporter = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the store under config.StoragePath.
func NewSQLiteStore(logger logging.Logger, config *Config) (*SQLiteStore, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}
	if config == nil || strings.TrimSpace(config.StoragePath) == "" {
		return nil, ErrNoStorage
	}
	if err := os.MkdirAll(config.StoragePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(config.StoragePath, "captures.db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Pragmas are per connection; a single connection keeps them in force
	// and serializes writers.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	blobs, err := NewBlobStore(filepath.Join(config.StoragePath, "blobs"))
	if err != nil {
		db.Close()
		return nil, err
	}

	logger = logger.With(logging.Field{Key: "component", Value: "store"})
	logger.Info("capture store opened", logging.Field{Key: "path", Value: config.StoragePath})

	return &SQLiteStore{db: db, blobs: blobs, logger: logger, config: config}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// ReportRequest saves req, logging instead of returning failures.
func (s *SQLiteStore) ReportRequest(req model.RequestInfo) {
	if err := s.SaveRequest(context.Background(), req); err != nil {
		s.logger.Error("saving request", logging.Field{Key: "id", Value: req.RequestID}, logging.Err(err))
	}
}

// ReportResponse saves resp, logging instead of returning failures.
func (s *SQLiteStore) ReportResponse(resp model.ResponseInfo) {
	if err := s.SaveResponse(context.Background(), resp); err != nil {
		s.logger.Error("saving response", logging.Field{Key: "id", Value: resp.RequestID}, logging.Err(err))
	}
}

// SaveRequest inserts or replaces a captured request.
func (s *SQLiteStore) SaveRequest(ctx context.Context, req model.RequestInfo) error {
	if req.RequestID == "" {
		return errors.New("store: request id is empty")
	}
	headersJSON, err := s.encodeHeaders(req.Headers)
	if err != nil {
		return err
	}

	s.blobMu.RLock()
	defer s.blobMu.RUnlock()
	blobID, size, err := s.putBody(req.Body)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO requests (id, timestamp_ns, method, url, host, headers_json, body_blob, body_size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.RequestID, req.Timestamp.UnixNano(), req.Method, req.URL, hostOf(req.URL),
		headersJSON, blobID, size)
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// SaveResponse inserts or replaces a captured response.
func (s *SQLiteStore) SaveResponse(ctx context.Context, resp model.ResponseInfo) error {
	if resp.RequestID == "" {
		return errors.New("store: response request id is empty")
	}
	headersJSON, err := s.encodeHeaders(resp.Headers)
	if err != nil {
		return err
	}

	s.blobMu.RLock()
	defer s.blobMu.RUnlock()
	blobID, size, err := s.putBody(resp.Body)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO responses (request_id, timestamp_ns, status_code, headers_json, body_blob, body_size, body_error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		resp.RequestID, resp.Timestamp.UnixNano(), resp.StatusCode, headersJSON, blobID, size,
		nullableString(resp.BodyError))
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

const selectTransactions = `
	SELECT r.id, r.timestamp_ns, r.method, r.url, r.headers_json, r.body_blob,
	       p.request_id, p.timestamp_ns, p.status_code, p.headers_json, p.body_blob, p.body_error
	FROM requests r
	LEFT JOIN responses p ON p.request_id = r.id`

// Get returns the transaction for id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, selectTransactions+` WHERE r.id = ?`, id)
	tx, err := s.scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// List returns the newest transactions first.
func (s *SQLiteStore) List(ctx context.Context, opts ListOptions) ([]*model.Transaction, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var (
		where []string
		args  []any
	)
	if opts.Host != "" {
		where = append(where, "r.host = ?")
		args = append(args, normalizeHost(opts.Host))
	}
	if opts.Method != "" {
		where = append(where, "r.method = ?")
		args = append(args, strings.ToUpper(opts.Method))
	}

	query := selectTransactions
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.timestamp_ns DESC, r.rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		tx, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Clear deletes every transaction and the blobs they referenced.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.blobMu.Lock()
	defer s.blobMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	blobIDs, err := referencedBlobs(ctx, tx)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM responses`); err != nil {
		return fmt.Errorf("clear responses: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM requests`); err != nil {
		return fmt.Errorf("clear requests: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	if s.afterClearCommit != nil {
		s.afterClearCommit()
	}

	for _, id := range blobIDs {
		if err := s.blobs.Delete(id); err != nil {
			s.logger.Warn("deleting blob", logging.Field{Key: "blob", Value: id}, logging.Err(err))
		}
	}
	s.logger.Info("capture store cleared", logging.Field{Key: "blobs", Value: len(blobIDs)})
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func referencedBlobs(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT body_blob FROM requests WHERE body_blob IS NOT NULL
		UNION
		SELECT body_blob FROM responses WHERE body_blob IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("query blobs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan blob id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanTransaction(row scanner) (*model.Transaction, error) {
	var (
		reqID, method, rawURL, reqHeaders string
		reqTS                             int64
		reqBlob                           sql.NullString

		respID, respHeaders, respBlob, respErr sql.NullString
		respTS, status                         sql.NullInt64
	)
	if err := row.Scan(&reqID, &reqTS, &method, &rawURL, &reqHeaders, &reqBlob,
		&respID, &respTS, &status, &respHeaders, &respBlob, &respErr); err != nil {
		return nil, err
	}

	tx := &model.Transaction{
		Request: model.RequestInfo{
			RequestID: reqID,
			Timestamp: time.Unix(0, reqTS).UTC(),
			Method:    method,
			URL:       rawURL,
			Headers:   decodeHeaders(reqHeaders),
		},
	}
	body, err := s.getBody(reqBlob)
	if err != nil {
		s.logger.Warn("request body unavailable", logging.Field{Key: "id", Value: reqID}, logging.Err(err))
	}
	tx.Request.Body = body

	if !respID.Valid {
		return tx, nil
	}
	resp := &model.ResponseInfo{
		RequestID:  respID.String,
		Timestamp:  time.Unix(0, respTS.Int64).UTC(),
		StatusCode: int(status.Int64),
		Headers:    decodeHeaders(respHeaders.String),
		BodyError:  respErr.String,
	}
	if resp.Body, err = s.getBody(respBlob); err != nil && resp.BodyError == "" {
		resp.BodyError = err.Error()
	}
	tx.Response = resp
	return tx, nil
}

func (s *SQLiteStore) encodeHeaders(headers []model.Header) (string, error) {
	if s.config.redact() {
		headers = RedactHeaders(headers)
	}
	if headers == nil {
		headers = []model.Header{}
	}
	b, err := json.Marshal(headers)
	if err != nil {
		return "", fmt.Errorf("encode headers: %w", err)
	}
	return string(b), nil
}

func decodeHeaders(raw string) []model.Header {
	headers := []model.Header{}
	if raw == "" {
		return headers
	}
	if err := json.Unmarshal([]byte(raw), &headers); err != nil {
		return []model.Header{}
	}
	return headers
}

// putBody stores body and returns its blob id; nil bodies store nothing.
func (s *SQLiteStore) putBody(body []byte) (sql.NullString, int, error) {
	if body == nil {
		return sql.NullString{}, 0, nil
	}
	if limit := s.config.MaxBodyBytes; limit > 0 && len(body) > limit {
		body = body[:limit]
	}
	id, err := s.blobs.Put(body)
	if err != nil {
		return sql.NullString{}, 0, fmt.Errorf("store body: %w", err)
	}
	return sql.NullString{String: id, Valid: true}, len(body), nil
}

func (s *SQLiteStore) getBody(blobID sql.NullString) ([]byte, error) {
	if !blobID.Valid {
		return nil, nil
	}
	body, err := s.blobs.Get(blobID.String)
	if err != nil {
		return nil, fmt.Errorf("load body: %w", err)
	}
	return body, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// hostOf extracts the normalized host name from a captured URL.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return normalizeHost(u.Hostname())
}

// normalizeHost lower-cases host and converts internationalized names to
// their ASCII form so filters match however the name was typed.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if ascii, err := idna.Lookup.ToASCII(host); err == nil {
		return ascii
	}
	return host
}
