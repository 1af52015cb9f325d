package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/amishk599/jobsift/internal/model"
)

const postingColumns = `job_id, source, title, location, department, published_at, url, description,
	fetched_at, title_filtered, in_usa, fit_score, visa_sponsor, reason`

// dialect captures the differences between the SQL backends.
type dialect struct {
	bindType   int
	insertStmt string
	timeValue  func(time.Time) any
}

// sqlStore implements model.PostingStore on top of sqlx. Queries are written
// with '?' placeholders and rebound for the backend.
type sqlStore struct {
	db      *sqlx.DB
	dialect dialect
}

// postingRow is the scan target for a postings row.
type postingRow struct {
	JobID         string         `db:"job_id"`
	Source        string         `db:"source"`
	Title         string         `db:"title"`
	Location      string         `db:"location"`
	Department    string         `db:"department"`
	PublishedAt   dbTime         `db:"published_at"`
	URL           string         `db:"url"`
	Description   string         `db:"description"`
	FetchedAt     dbTime         `db:"fetched_at"`
	TitleFiltered sql.NullBool   `db:"title_filtered"`
	InUSA         sql.NullBool   `db:"in_usa"`
	FitScore      sql.NullInt64  `db:"fit_score"`
	VisaSponsor   sql.NullBool   `db:"visa_sponsor"`
	Reason        sql.NullString `db:"reason"`
}

func (r postingRow) toPosting() model.Posting {
	p := model.Posting{
		JobID:       r.JobID,
		Source:      r.Source,
		Title:       r.Title,
		Location:    r.Location,
		Department:  r.Department,
		PublishedAt: r.PublishedAt.Time,
		URL:         r.URL,
		Description: r.Description,
		FetchedAt:   r.FetchedAt.Time,
		Reason:      r.Reason.String,
	}
	if r.TitleFiltered.Valid {
		p.TitleFiltered = model.Bool(r.TitleFiltered.Bool)
	}
	if r.InUSA.Valid {
		p.InUSA = model.Bool(r.InUSA.Bool)
	}
	if r.FitScore.Valid {
		p.FitScore = model.Int(int(r.FitScore.Int64))
	}
	if r.VisaSponsor.Valid {
		p.VisaSponsor = model.Bool(r.VisaSponsor.Bool)
	}
	return p
}

// dbTime scans both unix-second integers (SQLite) and native timestamps (Postgres).
type dbTime struct {
	time.Time
}

func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case int64:
		t.Time = time.Unix(v, 0).UTC()
	case time.Time:
		t.Time = v.UTC()
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	default:
		return fmt.Errorf("scan time from %T", src)
	}
	return nil
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

func (s *sqlStore) rebind(query string) string {
	return sqlx.Rebind(s.dialect.bindType, query)
}

// Select returns the rows matching p, newest first.
func (s *sqlStore) Select(ctx context.Context, p model.Predicate) ([]model.Posting, error) {
	where, args := whereClause(p, s.dialect.timeValue)
	query := "SELECT " + postingColumns + " FROM postings" + where +
		" ORDER BY published_at DESC, source, job_id"
	if p.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", p.Limit)
	}

	var rows []postingRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("selecting postings: %w", err)
	}

	postings := make([]model.Posting, 0, len(rows))
	for _, r := range rows {
		postings = append(postings, r.toPosting())
	}
	return postings, nil
}

// KnownIDs returns the set of job ids stored for source.
func (s *sqlStore) KnownIDs(ctx context.Context, source string) (map[string]struct{}, error) {
	var ids []string
	query := s.rebind("SELECT job_id FROM postings WHERE source = ?")
	if err := s.db.SelectContext(ctx, &ids, query, source); err != nil {
		return nil, fmt.Errorf("loading known ids for %s: %w", source, err)
	}
	known := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		known[id] = struct{}{}
	}
	return known, nil
}

// InsertNew inserts postings whose key is absent, in one transaction.
func (s *sqlStore) InsertNew(ctx context.Context, postings []model.Posting) (int, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	query := s.rebind(s.dialect.insertStmt)
	now := time.Now().UTC()
	inserted := 0
	for _, p := range postings {
		res, err := tx.ExecContext(ctx, query,
			p.JobID, p.Source, p.Title, p.Location, p.Department,
			s.dialect.timeValue(p.PublishedAt), p.URL, p.Description, s.dialect.timeValue(now),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting posting %s/%s: %w", p.Source, p.JobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("inserting posting %s/%s: %w", p.Source, p.JobID, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}
	return inserted, nil
}

// Update applies updates in one transaction. Each statement is guarded by
// "<column> IS NULL" for every verdict column it writes.
func (s *sqlStore) Update(ctx context.Context, updates []model.Update) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	changed := 0
	for _, u := range updates {
		query, args := updateStatement(u)
		if query == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, s.rebind(query), args...)
		if err != nil {
			return 0, fmt.Errorf("updating posting %s/%s: %w", u.Key.Source, u.Key.JobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("updating posting %s/%s: %w", u.Key.Source, u.Key.JobID, err)
		}
		changed += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit update: %w", err)
	}
	return changed, nil
}

// Close closes the underlying database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func whereClause(p model.Predicate, timeValue func(time.Time) any) (string, []any) {
	var conds []string
	var args []any

	for _, c := range p.Pending {
		conds = append(conds, string(c)+" IS NULL")
	}
	for _, c := range p.Equals {
		conds = append(conds, string(c.Column)+" = ?")
		args = append(args, c.Value)
	}
	if !p.PublishedSince.IsZero() {
		conds = append(conds, "published_at >= ?")
		args = append(args, timeValue(p.PublishedSince))
	}
	if p.MinScore != nil {
		conds = append(conds, "fit_score >= ?")
		args = append(args, *p.MinScore)
	}
	if len(p.Sources) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(p.Sources)), ", ")
		conds = append(conds, "source IN ("+marks+")")
		for _, src := range p.Sources {
			args = append(args, src)
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func updateStatement(u model.Update) (string, []any) {
	var sets, guards []string
	var args []any

	setBool := func(col model.Column, v *bool) {
		if v == nil {
			return
		}
		sets = append(sets, string(col)+" = ?")
		guards = append(guards, string(col)+" IS NULL")
		args = append(args, *v)
	}

	setBool(model.ColTitleFiltered, u.Fields.TitleFiltered)
	setBool(model.ColInUSA, u.Fields.InUSA)
	if u.Fields.FitScore != nil {
		sets = append(sets, string(model.ColFitScore)+" = ?")
		guards = append(guards, string(model.ColFitScore)+" IS NULL")
		args = append(args, *u.Fields.FitScore)
	}
	setBool(model.ColVisaSponsor, u.Fields.VisaSponsor)
	if u.Fields.Reason != nil {
		sets = append(sets, "reason = ?")
		args = append(args, *u.Fields.Reason)
	}

	if len(sets) == 0 {
		return "", nil
	}

	query := "UPDATE postings SET " + strings.Join(sets, ", ") + " WHERE job_id = ? AND source = ?"
	args = append(args, u.Key.JobID, u.Key.Source)
	if len(guards) > 0 {
		query += " AND " + strings.Join(guards, " AND ")
	}
	return query, args
}
