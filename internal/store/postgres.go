package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/db"
	"github.com/1kuna/JPS-Prospect-Aggregate-sub003/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS prospects (
	id                      TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	title                   TEXT NOT NULL DEFAULT '',
	description             TEXT NOT NULL DEFAULT '',
	agency                  TEXT NOT NULL DEFAULT '',
	contract_type           TEXT NOT NULL DEFAULT '',
	naics                   TEXT NOT NULL DEFAULT '',
	naics_description       TEXT NOT NULL DEFAULT '',
	naics_source            TEXT NOT NULL DEFAULT '',
	estimated_value_text    TEXT NOT NULL DEFAULT '',
	estimated_value_single  DOUBLE PRECISION,
	estimated_value_min     DOUBLE PRECISION,
	estimated_value_max     DOUBLE PRECISION,
	ai_enhanced_title       TEXT NOT NULL DEFAULT '',
	set_aside               TEXT NOT NULL DEFAULT '',
	set_aside_standard_code TEXT NOT NULL DEFAULT '',
	set_aside_standard_label TEXT NOT NULL DEFAULT '',
	extra                   JSONB,
	processed_at            TIMESTAMPTZ,
	model_version           TEXT NOT NULL DEFAULT '',
	enhancement_status      TEXT NOT NULL DEFAULT 'idle',
	enhancement_started_at  TIMESTAMPTZ,
	enhancement_user_id     TEXT NOT NULL DEFAULT '',
	loaded_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at              TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS llm_audit_log (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	prospect_id   TEXT NOT NULL REFERENCES prospects(id),
	kind          TEXT NOT NULL,
	model         TEXT NOT NULL DEFAULT '',
	prompt        TEXT NOT NULL DEFAULT '',
	raw_response  TEXT NOT NULL DEFAULT '',
	parsed_result TEXT NOT NULL DEFAULT '',
	success       BOOLEAN NOT NULL DEFAULT FALSE,
	error         TEXT NOT NULL DEFAULT '',
	latency_ms    BIGINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_summaries (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	kind        TEXT NOT NULL,
	status      TEXT NOT NULL,
	processed   INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	message     TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_prospects_status ON prospects(enhancement_status);
CREATE INDEX IF NOT EXISTS idx_prospects_loaded_at ON prospects(loaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_audit_prospect ON llm_audit_log(prospect_id, kind);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProspect(ctx context.Context, p *model.Prospect) error {
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

	_, err = s.pool.Exec(ctx,
		`INSERT INTO prospects (`+prospectColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`,
		p.ID, p.Title, p.Description, p.Agency, p.ContractType,
		p.NAICS, p.NAICSDescription, string(p.NAICSSource),
		p.EstimatedValueText, p.EstimatedValueSingle, p.EstimatedValueMin, p.EstimatedValueMax,
		p.AIEnhancedTitle, p.SetAside, p.SetAsideStandardCode, p.SetAsideStandardLabel,
		extraJSON, p.ProcessedAt, p.ModelVersion,
		string(p.EnhancementStatus), p.EnhancementStarted, p.EnhancementUserID,
		p.LoadedAt, p.UpdatedAt,
	)
	return eris.Wrap(err, "postgres: insert prospect")
}

func (s *PostgresStore) GetProspect(ctx context.Context, id string) (*model.Prospect, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+prospectColumns+` FROM prospects WHERE id = $1`, id)
	p, err := scanProspectPG(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get prospect %s", id)
	}
	return p, nil
}

func (s *PostgresStore) UpdateProspect(ctx context.Context, p *model.Prospect) error {
	p.UpdatedAt = time.Now().UTC()

	extraJSON, err := marshalExtra(p.Extra)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET
			title = $1, description = $2, agency = $3, contract_type = $4,
			naics = $5, naics_description = $6, naics_source = $7,
			estimated_value_text = $8, estimated_value_single = $9, estimated_value_min = $10, estimated_value_max = $11,
			ai_enhanced_title = $12, set_aside = $13, set_aside_standard_code = $14, set_aside_standard_label = $15,
			extra = $16, processed_at = $17, model_version = $18,
			enhancement_status = $19, enhancement_started_at = $20, enhancement_user_id = $21,
			updated_at = $22
		 WHERE id = $23`,
		p.Title, p.Description, p.Agency, p.ContractType,
		p.NAICS, p.NAICSDescription, string(p.NAICSSource),
		p.EstimatedValueText, p.EstimatedValueSingle, p.EstimatedValueMin, p.EstimatedValueMax,
		p.AIEnhancedTitle, p.SetAside, p.SetAsideStandardCode, p.SetAsideStandardLabel,
		extraJSON, p.ProcessedAt, p.ModelVersion,
		string(p.EnhancementStatus), p.EnhancementStarted, p.EnhancementUserID,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update prospect %s", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("prospect not found: %s", p.ID)
	}
	return nil
}

func (s *PostgresStore) ListEligible(ctx context.Context, filter EligibilityFilter) ([]model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE ` + eligibilityPredicate(filter.Kind, filter.SkipExisting)
	var args []any
	argn := 0

	if len(filter.IDs) > 0 {
		argn++
		query += fmt.Sprintf(` AND id = ANY($%d)`, argn)
		args = append(args, filter.IDs)
	}

	query += ` ORDER BY loaded_at DESC`
	if filter.Limit > 0 {
		argn++
		query += fmt.Sprintf(` LIMIT $%d`, argn)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list eligible")
	}
	defer rows.Close()

	var out []model.Prospect
	for rows.Next() {
		p, err := scanProspectPG(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan eligible prospect")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list eligible iterate")
}

func (s *PostgresStore) CountEligible(ctx context.Context, filter EligibilityFilter) (int, error) {
	query := `SELECT COUNT(*) FROM prospects WHERE ` + eligibilityPredicate(filter.Kind, filter.SkipExisting)
	var args []any
	if len(filter.IDs) > 0 {
		query += ` AND id = ANY($1)`
		args = append(args, filter.IDs)
	}

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "postgres: count eligible")
	}
	return n, nil
}

func (s *PostgresStore) MarkInProgress(ctx context.Context, id, userID string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET enhancement_status = $1, enhancement_started_at = $2, enhancement_user_id = $3, updated_at = $4
		 WHERE id = $5`,
		string(model.EnhancementInProgress), now, userID, now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: mark in progress %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("prospect not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ClearInProgress(ctx context.Context, id string, status model.EnhancementStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE prospects SET enhancement_status = $1, enhancement_started_at = NULL, enhancement_user_id = '', updated_at = $2
		 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: clear in progress %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("prospect not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ResetStaleInProgress(ctx context.Context, olderThan time.Duration) (int, error) {
	query := `UPDATE prospects SET enhancement_status = 'idle', enhancement_started_at = NULL, enhancement_user_id = '', updated_at = $1
	 WHERE enhancement_status = 'in_progress'`
	args := []any{time.Now().UTC()}

	if olderThan > 0 {
		query += ` AND (enhancement_started_at IS NULL OR enhancement_started_at < $2)`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: reset stale in progress")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) InsertAuditEntry(ctx context.Context, e *model.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO llm_audit_log (id, prospect_id, kind, model, prompt, raw_response, parsed_result, success, error, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.ProspectID, string(e.Kind), e.Model, e.Prompt, e.RawResponse, e.ParsedResult,
		e.Success, e.Error, e.LatencyMS, e.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert audit entry")
}

func (s *PostgresStore) ListAuditEntries(ctx context.Context, prospectID string, kind model.EnhancementKind, limit int) ([]model.AuditEntry, error) {
	query := `SELECT id, prospect_id, kind, model, prompt, raw_response, parsed_result, success, error, latency_ms, created_at
	 FROM llm_audit_log WHERE prospect_id = $1`
	args := []any{prospectID}
	argn := 1

	if kind != "" && kind != model.KindAll {
		argn++
		query += fmt.Sprintf(` AND kind = $%d`, argn)
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC`
	if limit <= 0 {
		limit = 100
	}
	argn++
	query += fmt.Sprintf(` LIMIT $%d`, argn)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list audit entries")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.ProspectID, &e.Kind, &e.Model, &e.Prompt, &e.RawResponse,
			&e.ParsedResult, &e.Success, &e.Error, &e.LatencyMS, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit entry")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list audit entries iterate")
}

func (s *PostgresStore) InsertRunSummary(ctx context.Context, sum *model.RunSummary) error {
	if sum.ID == "" {
		sum.ID = uuid.New().String()
	}
	if sum.CreatedAt.IsZero() {
		sum.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_summaries (id, kind, status, processed, duration_ms, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sum.ID, string(sum.Kind), string(sum.Status), sum.Processed, sum.DurationMS, sum.Message, sum.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert run summary")
}

func scanProspectPG(row pgx.Row) (*model.Prospect, error) {
	var p model.Prospect
	var naicsSource, status string
	var extraJSON []byte
	var single, min, max *float64
	var processedAt, startedAt *time.Time

	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Agency, &p.ContractType,
		&p.NAICS, &p.NAICSDescription, &naicsSource,
		&p.EstimatedValueText, &single, &min, &max,
		&p.AIEnhancedTitle, &p.SetAside, &p.SetAsideStandardCode, &p.SetAsideStandardLabel,
		&extraJSON, &processedAt, &p.ModelVersion,
		&status, &startedAt, &p.EnhancementUserID,
		&p.LoadedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("prospect not found")
	}
	if err != nil {
		return nil, err
	}

	p.NAICSSource = model.NAICSSource(naicsSource)
	p.EnhancementStatus = model.EnhancementStatus(status)
	p.EstimatedValueSingle = single
	p.EstimatedValueMin = min
	p.EstimatedValueMax = max
	p.ProcessedAt = processedAt
	p.EnhancementStarted = startedAt
	if len(extraJSON) > 0 {
		var extra map[string]any
		if jsonErr := json.Unmarshal(extraJSON, &extra); jsonErr == nil {
			p.Extra = extra
		}
	}
	return &p, nil
}
