package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ContentRefresher/internal/domain"
	"ContentRefresher/internal/ports"
)

const (
	contentTable = "topic_content"
	logTable     = "content_refresh_log"
)

// Repository persists content rows and refresh logs through database/sql.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ContentStore = (*Repository)(nil)

// NewRepository wires a sql.DB opened for the given dialect.
func NewRepository(db *sql.DB, dialect Dialect) *Repository {
	return &Repository{
		db:      db,
		dialect: dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(dialect.Placeholder),
		now:     time.Now,
	}
}

// Open connects to the store and verifies it is reachable.
func Open(ctx context.Context, dialect Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStorage, dialect.Driver, err)
	}
	if dialect.Driver == SQLite.Driver {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", domain.ErrStorage, dialect.Driver, err)
	}
	return db, nil
}

// Migrate creates the tables and indexes when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range r.dialect.schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migrate: %v", domain.ErrStorage, err)
		}
	}
	return nil
}

// ListActiveURLs returns the URLs already stored and active for a scope.
func (r *Repository) ListActiveURLs(ctx context.Context, topic, ageRange string) (map[string]struct{}, error) {
	query, args, err := r.builder.
		Select("url").
		From(contentTable).
		Where(sq.Eq{"topic": topic, "age_range": ageRange, "is_active": r.dialect.boolTrue}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query active urls: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("%w: scan url: %v", domain.ErrStorage, err)
		}
		result[u] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows iteration: %v", domain.ErrStorage, err)
	}

	return result, nil
}

// InsertMany stores items in one statement and returns how many rows were
// written. Rows duplicating an active (topic, age_range, url) are skipped.
func (r *Repository) InsertMany(ctx context.Context, items []domain.ContentItem) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}

	createdAt := dbTime(r.now())
	insert := r.builder.
		Insert(contentTable).
		Columns(
			"topic", "age_range", "url", "title", "content_summary", "source_domain",
			"publication_date", "image_url", "reading_time", "tags", "author",
			"quality_score", "refresh_cycle", "is_active", "created_at",
		)

	for _, item := range items {
		tags, err := r.dialect.tags(item.Tags)
		if err != nil {
			return 0, err
		}
		ageRange := item.AgeRange
		if ageRange == "" {
			ageRange = domain.AllAges
		}
		insert = insert.Values(
			item.Topic, ageRange, item.URL, item.Title, item.ContentSummary, item.SourceDomain,
			nullableTime(item.PublicationDate), item.ImageURL, item.ReadingTime, tags, item.Author,
			item.QualityScore, item.RefreshCycle, r.dialect.boolTrue, createdAt,
		)
	}

	query, args, err := insert.Suffix(r.dialect.conflictClause()).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: insert content: %v", domain.ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %v", domain.ErrStorage, err)
	}
	return affected, nil
}

// RetireWhere marks matching active rows inactive and returns the count.
func (r *Repository) RetireWhere(ctx context.Context, filter domain.ContentFilter) (int64, error) {
	query, args, err := r.builder.
		Update(contentTable).
		Set("is_active", r.dialect.boolFalse).
		Where(sq.Eq{"is_active": r.dialect.boolTrue}).
		Where(r.filterClause(filter)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build retire: %w", err)
	}
	return r.exec(ctx, "retire content", query, args)
}

// DeleteWhere physically removes matching inactive rows and returns the count.
func (r *Repository) DeleteWhere(ctx context.Context, filter domain.ContentFilter) (int64, error) {
	query, args, err := r.builder.
		Delete(contentTable).
		Where(sq.Eq{"is_active": r.dialect.boolFalse}).
		Where(r.filterClause(filter)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete: %w", err)
	}
	return r.exec(ctx, "delete content", query, args)
}

// AppendRefreshLog writes one audit row.
func (r *Repository) AppendRefreshLog(ctx context.Context, entry domain.RefreshLogEntry) error {
	refreshDate := entry.RefreshDate
	if refreshDate.IsZero() {
		refreshDate = r.now()
	}
	ageRange := entry.AgeRange
	if ageRange == "" {
		ageRange = domain.AllAges
	}

	query, args, err := r.builder.
		Insert(logTable).
		Columns("topic", "age_range", "articles_added", "articles_removed", "status", "error_message", "refresh_cycle", "refresh_date").
		Values(entry.Topic, ageRange, entry.ArticlesAdded, entry.ArticlesRemoved, string(entry.Status), entry.ErrorMessage, entry.RefreshCycle, dbTime(refreshDate)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build log insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: append refresh log: %v", domain.ErrStorage, err)
	}
	return nil
}

// NextRefreshCycle returns the cycle number for a new run: the highest cycle
// recorded so far plus one.
func (r *Repository) NextRefreshCycle(ctx context.Context) (int, error) {
	query, args, err := r.builder.
		Select("COALESCE(MAX(refresh_cycle), 0)").
		From(logTable).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cycle query: %w", err)
	}

	var current int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&current); err != nil {
		return 0, fmt.Errorf("%w: current refresh cycle: %v", domain.ErrStorage, err)
	}
	return current + 1, nil
}

// CountActive returns the number of active content rows.
func (r *Repository) CountActive(ctx context.Context) (int64, error) {
	query, args, err := r.builder.
		Select("COUNT(*)").
		From(contentTable).
		Where(sq.Eq{"is_active": r.dialect.boolTrue}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count active: %v", domain.ErrStorage, err)
	}
	return count, nil
}

func (r *Repository) filterClause(filter domain.ContentFilter) sq.And {
	clause := sq.And{}
	if filter.Topic != "" {
		clause = append(clause, sq.Eq{"topic": filter.Topic})
	}
	if filter.AgeRange != "" {
		clause = append(clause, sq.Eq{"age_range": filter.AgeRange})
	}
	if !filter.OlderThan.IsZero() {
		clause = append(clause, sq.Lt{"created_at": dbTime(filter.OlderThan)})
	}
	return clause
}

func (r *Repository) exec(ctx context.Context, op, query string, args []any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrStorage, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %s rows affected: %v", domain.ErrStorage, op, err)
	}
	return n, nil
}

// dbTime normalises timestamps so both backends compare them consistently.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return dbTime(t)
}
