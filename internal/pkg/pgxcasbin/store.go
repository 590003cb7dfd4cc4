package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const (
	defaultTableName = "casbin_rule"
	fieldCount       = 6
)

var valueColumns = strings.Join(lo.Times(fieldCount, func(i int) string {
	return "v" + strconv.Itoa(i)
}), ", ")

// Commander defines the pgx operations required by the adapter store.
type Commander interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type execer interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type store struct {
	db        Commander
	tableName string
}

func newStore(db Commander) *store {
	return &store{db: db, tableName: defaultTableName}
}

func (s *store) setTableName(tableName string) {
	s.tableName = lo.SnakeCase(tableName)
}

func (s *store) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (ptype, %s) VALUES ($1, $2, $3, $4, $5, $6, $7) ON CONFLICT DO NOTHING",
		s.tableName, valueColumns)
}

func (s *store) deleteSQL() string {
	cond := strings.Join(lo.Times(fieldCount, func(i int) string {
		return "v" + strconv.Itoa(i) + " = $" + strconv.Itoa(i+2)
	}), " AND ")
	return fmt.Sprintf("DELETE FROM %s WHERE ptype = $1 AND %s", s.tableName, cond)
}

func (s *store) selectAll(ctx context.Context) ([][]string, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf("SELECT ptype, %s FROM %s ORDER BY id", valueColumns, s.tableName))
	if err != nil {
		return nil, errors.Join(ErrSelect, err)
	}
	defer rows.Close()

	var lines [][]string
	for rows.Next() {
		line := make([]string, fieldCount+1)
		dest := lo.Map(line, func(_ string, i int) any { return &line[i] })
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.Join(ErrSelect, err)
		}
		lines = append(lines, trimTrailingEmpty(line))
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Join(ErrSelect, err)
	}

	return lines, nil
}

func (s *store) insertMany(ctx context.Context, ptype string, rules [][]string) error {
	return s.queueRules(ctx, s.db, ptype, rules, s.insertSQL(), ErrInsert)
}

func (s *store) deleteMany(ctx context.Context, ptype string, rules [][]string) error {
	return s.queueRules(ctx, s.db, ptype, rules, s.deleteSQL(), ErrDelete)
}

func (s *store) deleteWhere(ctx context.Context, ptype string, fieldIndex int, values ...string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	if fieldIndex < 0 || fieldIndex+len(values) > fieldCount {
		return fmt.Errorf("%w: %d values from index %d", ErrRuleTooLong, len(values), fieldIndex)
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE ptype = $1", s.tableName)
	args := []any{ptype}
	for i, v := range values {
		if v == "" {
			continue
		}
		args = append(args, v)
		query += " AND v" + strconv.Itoa(fieldIndex+i) + " = $" + strconv.Itoa(len(args))
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Join(ErrDelete, err)
	}
	return nil
}

func (s *store) replaceAll(ctx context.Context, lines [][]string) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return errors.Join(ErrReplace, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM "+s.tableName); err != nil {
		return errors.Join(ErrReplace, err)
	}

	byType := lo.GroupBy(lines, func(line []string) string { return line[0] })
	for ptype, group := range byType {
		rules := lo.Map(group, func(line []string, _ int) []string { return line[1:] })
		if err = s.queueRules(ctx, tx, ptype, rules, s.insertSQL(), ErrReplace); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Join(ErrReplace, err)
	}
	return nil
}

func (s *store) queueRules(ctx context.Context, db execer, ptype string, rules [][]string, query string, kind error) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	if len(rules) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rule := range rules {
		args, err := ruleArgs(ptype, rule)
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
	}

	br := db.SendBatch(ctx, batch)
	for range rules {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return errors.Join(kind, err)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Join(kind, err)
	}
	return nil
}

func ruleArgs(ptype string, rule []string) ([]any, error) {
	if len(rule) > fieldCount {
		return nil, fmt.Errorf("%w: %d > %d", ErrRuleTooLong, len(rule), fieldCount)
	}

	args := make([]any, fieldCount+1)
	args[0] = ptype
	for i := range fieldCount {
		args[i+1] = ""
		if i < len(rule) {
			args[i+1] = rule[i]
		}
	}
	return args, nil
}

func trimTrailingEmpty(rule []string) []string {
	last := len(rule) - 1
	for last >= 0 && rule[last] == "" {
		last--
	}
	return rule[:last+1]
}
