package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id                      TEXT PRIMARY KEY,
	title                   TEXT NOT NULL DEFAULT '',
	description             TEXT NOT NULL DEFAULT '',
	agency                  TEXT NOT NULL DEFAULT '',
	contract_type           TEXT NOT NULL DEFAULT '',
	naics                   TEXT NOT NULL DEFAULT '',
	naics_description       TEXT NOT NULL DEFAULT '',
	naics_source            TEXT NOT NULL DEFAULT '',
	estimated_value_text    TEXT NOT NULL DEFAULT '',
	estimated_value_single  REAL,
	estimated_value_min     REAL,
	estimated_value_max     REAL,
	ai_enhanced_title       TEXT NOT NULL DEFAULT '',
	set_aside               TEXT NOT NULL DEFAULT '',
	set_aside_standard_code TEXT NOT NULL DEFAULT '',
	set_aside_standard_label TEXT NOT NULL DEFAULT '',
	extra                   TEXT,
	processed_at            DATETIME,
	model_version           TEXT NOT NULL DEFAULT '',
	enhancement_status      TEXT NOT NULL DEFAULT 'idle',
	enhancement_started_at  DATETIME,
	enhancement_user_id     TEXT NOT NULL DEFAULT '',
	loaded_at               DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at              DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS llm_audit_log (
	id            TEXT PRIMARY KEY,
	prospect_id   TEXT NOT NULL REFERENCES prospects(id),
	kind          TEXT NOT NULL,
	model         TEXT NOT NULL DEFAULT '',
	prompt        TEXT NOT NULL DEFAULT '',
	raw_response  TEXT NOT NULL DEFAULT '',
	parsed_result TEXT NOT NULL DEFAULT '',
	success       INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT '',
	latency_ms    INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_summaries (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	message     TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(enhancement_status);
CREATE INDEX IF NOT EXISTS idx_prospects_loaded_at ON prospects(loaded_at);
CREATE INDEX IF NOT EXISTS idx_audit_prospect ON llm_audit_log(prospect_id, kind);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const prospectColumns = `id, title, description, agency, contract_type,
	naics, naics_description, naics_source,
	estimated_value_text, estimated_value_single, estimated_value_min, estimated_value_max,
	ai_enhanced_title, set_aside, set_aside_standard_code, set_aside_standard_label,
	extra, processed_at, model_version,
	enhancement_status, enhancement_started_at, enhancement_user_id,
	loaded_at, updated_at`

func (s *SQLiteStore) CreateProspect(ctx context.Context, p *model.Prospect) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.LoadedAt.IsZero() {
		p.LoadedAt = now
	}
	p.UpdatedAt = now
	if p.EnhancementStatus == "" {
		p.EnhancementStatus = model.EnhancementIdle
	}

	extraJSON, err := marshalExtra(p.Extra)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO prospects (`+prospectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.Agency, p.ContractType,
		p.NAICS, p.NAICSDescription, string(p.NAICSSource),
		p.EstimatedValueText, p.EstimatedValueSingle, p.EstimatedValueMin, p.EstimatedValueMax,
		p.AIEnhancedTitle, p.SetAside, p.SetAsideStandardCode, p.SetAsideStandardLabel,
		extraJSON, p.ProcessedAt, p.ModelVersion,
		string(p.EnhancementStatus), p.EnhancementStarted, p.EnhancementUserID,
		p.LoadedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "sqlite: insert prospect")
}

func (s *SQLiteStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE id = ?`, id)
	p, err := scanProspect(row)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get prospect %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) UpdateProspect(ctx context.Context, p *model.Prospect) error {
	p.UpdatedAt = time.Now().UTC()

	extraJSON, err := marshalExtra(p.Extra)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET
			title = ?, description = ?, agency = ?, contract_type = ?,
			naics = ?, naics_description = ?, naics_source = ?,
			estimated_value_text = ?, estimated_value_single = ?, estimated_value_min = ?, estimated_value_max = ?,
			ai_enhanced_title = ?, set_aside = ?, set_aside_standard_code = ?, set_aside_standard_label = ?,
			extra = ?, processed_at = ?, model_version = ?,
			enhancement_status = ?, enhancement_started_at = ?, enhancement_user_id = ?,
			updated_at = ?
		 WHERE id = ?`,
		p.Title, p.Description, p.Agency, p.ContractType,
		p.NAICS, p.NAICSDescription, string(p.NAICSSource),
		p.EstimatedValueText, p.EstimatedValueSingle, p.EstimatedValueMin, p.EstimatedValueMax,
		p.AIEnhancedTitle, p.SetAside, p.SetAsideStandardCode, p.SetAsideStandardLabel,
		extraJSON, p.ProcessedAt, p.ModelVersion,
		string(p.EnhancementStatus), p.EnhancementStarted, p.EnhancementUserID,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update prospect %s", p.ID)
	}
	return checkRowsAffected(res, "prospect", p.ID)
}

func (s *SQLiteStore) ListEligible(ctx context.Context, filter EligibilityFilter) ([]model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE ` + eligibilityPredicate(filter.Kind, filter.SkipExisting)
	var args []any

	if len(filter.IDs) > 0 {
		query += ` AND id IN (` + placeholders(len(filter.IDs)) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	query += ` ORDER BY loaded_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list eligible")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan eligible prospect")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list eligible iterate")
}

func (s *SQLiteStore) CountEligible(ctx context.Context, filter EligibilityFilter) (int, error) {
	query := `SELECT COUNT(*) FROM prospects WHERE ` + eligibilityPredicate(filter.Kind, filter.SkipExisting)
	var args []any
	if len(filter.IDs) > 0 {
		query += ` AND id IN (` + placeholders(len(filter.IDs)) + `)`
		for _, id := range filter.IDs {
			args = append(args, id)
		}
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "sqlite: count eligible")
	}
	return n, nil
}

func (s *SQLiteStore) MarkInProgress(ctx context.Context, id, userID string) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET enhancement_status = ?, enhancement_started_at = ?, enhancement_user_id = ?, updated_at = ?
		 WHERE id = ?`,
		string(model.EnhancementInProgress), now, userID, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: mark in progress %s", id)
	}
	return checkRowsAffected(res, "prospect", id)
}

func (s *SQLiteStore) ClearInProgress(ctx context.Context, id string, status model.EnhancementStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE prospects SET enhancement_status = ?, enhancement_started_at = NULL, enhancement_user_id = '', updated_at = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: clear in progress %s", id)
	}
	return checkRowsAffected(res, "prospect", id)
}

func (s *SQLiteStore) ResetStaleInProgress(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `UPDATE prospects SET enhancement_status = 'idle', enhancement_started_at = NULL, enhancement_user_id = '', updated_at = ?
	 WHERE enhancement_status = 'in_progress'`
	args := []any{time.Now().UTC()}

	if olderThan > 0 {
		query += ` AND (enhancement_started_at IS NULL OR enhancement_started_at < ?)`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: reset stale in progress")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) InsertAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_audit_log (id, prospect_id, kind, model, prompt, raw_response, parsed_result, success, error, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ProspectID, string(e.Kind), e.Model, e.Prompt, e.RawResponse, e.ParsedResult,
		boolToInt(e.Success), e.Error, e.LatencyMS, e.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert audit entry")
}

func (s *SQLiteStore) ListAuditEntries(ctx context.Context, prospectID string, kind model.EnhancementKind, limit int) ([]model.AuditEntry, error) {
	query := `SELECT id, prospect_id, kind, model, prompt, raw_response, parsed_result, success, error, latency_ms, created_at
	 FROM llm_audit_log WHERE prospect_id = ?`
	args := []any{prospectID}

	if kind != "" && kind != model.KindAll {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC`
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit entries")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var success int
		if err := rows.Scan(&e.ID, &e.ProspectID, &e.Kind, &e.Model, &e.Prompt, &e.RawResponse,
			&e.ParsedResult, &success, &e.Error, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit entry")
		}
		e.Success = success != 0
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list audit entries iterate")
}

func (s *SQLiteStore) InsertRunSummary(ctx context.Context, sum *model.RunSummary) error {
	if sum.ID == "" {
		sum.ID = uuid.New().String()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_summaries (id, kind, status, processed, duration_ms, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.ID, string(sum.Kind), string(sum.Status), sum.Processed, sum.DurationMS, sum.Message, sum.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert run summary")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func marshalExtra(extra map[string]any) (any, error) {
	if extra == nil {
		return nil, nil
	}
	data, err := json.Marshal(extra)
	if err != nil {
		return nil, eris.Wrap(err, "marshal extra")
	}
	return string(data), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanProspect(row scannable) (*model.Prospect, error) {
	var p model.Prospect
	var naicsSource, status string
	var single, min, max sql.NullFloat64
	var extraJSON sql.NullString
	var processedAt, startedAt sql.NullTime

	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Agency, &p.ContractType,
		&p.NAICS, &p.NAICSDescription, &naicsSource,
		&p.EstimatedValueText, &single, &min, &max,
		&p.AIEnhancedTitle, &p.SetAside, &p.SetAsideStandardCode, &p.SetAsideStandardLabel,
		&extraJSON, &processedAt, &p.ModelVersion,
		&status, &startedAt, &p.EnhancementUserID,
		&p.LoadedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.New("prospect not found")
	}
	if err != nil {
		return nil, err
	}

	p.NAICSSource = model.NAICSSource(naicsSource)
	p.EnhancementStatus = model.EnhancementStatus(status)
	if single.Valid {
		p.EstimatedValueSingle = &single.Float64
	}
	if min.Valid {
		p.EstimatedValueMin = &min.Float64
	}
	if max.Valid {
		p.EstimatedValueMax = &max.Float64
	}
	if extraJSON.Valid && extraJSON.String != "" {
		p.Extra = model.NormalizeExtra(extraJSON.String)
	}
	if processedAt.Valid {
		t := processedAt.Time
		p.ProcessedAt = &t
	}
	if startedAt.Valid {
		t := startedAt.Time
		p.EnhancementStarted = &t
	}
	return &p, nil
}
