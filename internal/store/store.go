// Package store persists bill analyses and import bookkeeping in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theirongolddev/billcheck/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Lookup errors.
var (
	ErrNotFound  = errors.New("analysis not found")
	ErrAmbiguous = errors.New("analysis id prefix is ambiguous")
)

// sortableTime keeps created_at lexically ordered.
const sortableTime = "2006-01-02T15:04:05.000000000Z"

// Store provides SQLite-backed analysis persistence.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the database path inside dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(dataDir, "analyses.db")
}

// Open opens or creates the database at the given path.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening analysis db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAnalysis stores a finished analysis. Analyses are keyed by account
// number, billing period and total; saving the same bill again replaces the
// earlier row.
func (s *Store) SaveAnalysis(a *model.BillAnalysis) error {
	return s.SaveAnalysisFrom(a, "")
}

// SaveAnalysisFrom stores a finished analysis and the file it came from.
func (s *Store) SaveAnalysisFrom(a *model.BillAnalysis, sourcePath string) error {
	if a.ID == "" {
		return errors.New("analysis has no id")
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}

	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`DELETE FROM analyses
		WHERE id = ? OR (account_number = ? AND billing_period = ? AND total_amount = ?)`,
		a.ID, a.AccountNumber, a.BillingPeriod, a.TotalAmount)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`INSERT INTO analyses
		(id, account_number, billing_period, total_amount, line_count, variant,
		 recommended_plan, est_monthly_savings, source_path, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AccountNumber, a.BillingPeriod, a.TotalAmount, len(a.PhoneLines), a.Variant,
		a.PlanRecommendation.RecommendedPlan, a.PlanRecommendation.EstimatedMonthlySavings,
		sourcePath, string(payload), created.UTC().Format(sortableTime),
	)
	if err != nil {
		return err
	}

	for category, total := range a.ChargesByCategory {
		_, err = tx.Exec(`INSERT INTO analysis_categories (analysis_id, category, total)
			VALUES (?, ?, ?)`, a.ID, category, total)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// likeEscaper escapes LIKE wildcards so a prefix matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// GetAnalysis returns the analysis whose id equals or starts with id.
func (s *Store) GetAnalysis(id string) (*model.BillAnalysis, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := s.db.Query(`SELECT payload FROM analyses
		WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY (id = ?) DESC LIMIT 2`,
		id, likeEscaper.Replace(id)+"%", id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var payloads []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		payloads = append(payloads, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(payloads) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 2:
		// An exact match sorts first and wins over prefix matches.
		var first model.BillAnalysis
		if err := json.Unmarshal([]byte(payloads[0]), &first); err == nil && first.ID == id {
			return &first, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}

	var a model.BillAnalysis
	if err := json.Unmarshal([]byte(payloads[0]), &a); err != nil {
		return nil, fmt.Errorf("decoding analysis: %w", err)
	}
	return &a, nil
}

// ListOptions filters ListAnalyses.
type ListOptions struct {
	Account string
	Limit   int
}

// ListAnalyses returns stored analyses, newest first.
func (s *Store) ListAnalyses(opts ListOptions) ([]model.BillAnalysis, error) {
	query := "SELECT payload FROM analyses"
	var args []any
	if opts.Account != "" {
		query += " WHERE account_number = ?"
		args = append(args, opts.Account)
	}
	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.BillAnalysis
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var a model.BillAnalysis
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("decoding analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CategoryTotals sums stored category totals, optionally for one account.
func (s *Store) CategoryTotals(account string) (model.CategoryTotals, error) {
	query := `SELECT c.category, SUM(c.total) FROM analysis_categories c
		JOIN analyses a ON a.id = c.analysis_id`
	var args []any
	if account != "" {
		query += " WHERE a.account_number = ?"
		args = append(args, account)
	}
	query += " GROUP BY c.category"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	totals := make(model.CategoryTotals)
	for rows.Next() {
		var name string
		var total float64
		if err := rows.Scan(&name, &total); err != nil {
			return nil, err
		}
		totals[name] = total
	}
	return totals, rows.Err()
}

// DeleteAnalysis removes an analysis and its category rows.
func (s *Store) DeleteAnalysis(id string) error {
	res, err := s.db.Exec("DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// AnalysisCount returns the number of stored analyses.
func (s *Store) AnalysisCount() (int, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&count)
	return count, err
}
