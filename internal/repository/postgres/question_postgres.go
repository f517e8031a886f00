package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"examia/internal/model"
	"examia/internal/repository"
)

// QuestionPostgres is a PostgreSQL implementation of repository.QuestionRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type QuestionPostgres struct {
	db *sql.DB
}

// NewQuestionPostgres creates a new QuestionPostgres repository.
func NewQuestionPostgres(db *sql.DB) *QuestionPostgres {
	return &QuestionPostgres{db: db}
}

var _ repository.QuestionRepository = (*QuestionPostgres)(nil)

const questionColumns = `id, subject, year, mode, bucket, question, solution, solution_image, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (model.Question, error) {
	var (
		q             model.Question
		mode          string
		solution      sql.NullString
		solutionImage sql.NullString
	)
	if err := row.Scan(
		&q.ID,
		&q.Subject,
		&q.Year,
		&mode,
		&q.Bucket,
		&q.Question,
		&solution,
		&solutionImage,
		&q.CreatedAt,
	); err != nil {
		return model.Question{}, err
	}
	q.Mode = model.Mode(mode)
	q.Solution = solution.String
	q.SolutionImage = solutionImage.String
	return q, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts a new question row and returns the stored record.
func (r *QuestionPostgres) Create(ctx context.Context, q *model.Question) (*model.Question, error) {
	const stmt = `
		INSERT INTO questions (id, subject, year, mode, bucket, question, solution, solution_image, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + questionColumns
	row := r.db.QueryRowContext(ctx, stmt,
		q.ID,
		q.Subject,
		q.Year,
		string(q.Mode),
		q.Bucket,
		q.Question,
		nullable(q.Solution),
		nullable(q.SolutionImage),
		q.CreatedAt,
	)
	out, err := scanQuestion(row)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns questions matching every set filter field, ordered by insertion sequence.
func (r *QuestionPostgres) List(ctx context.Context, f model.Filter) ([]model.Question, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.Subject != "" {
		add("subject", f.Subject)
	}
	if f.Year != 0 {
		add("year", f.Year)
	}
	if f.Mode != "" {
		add("mode", string(f.Mode))
	}
	if f.Bucket != "" {
		add("bucket", f.Bucket)
	}

	q := `SELECT ` + questionColumns + ` FROM questions`
	if len(conds) > 0 {
		q += ` WHERE ` + strings.Join(conds, " AND ")
	}
	q += ` ORDER BY seq`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Question, 0)
	for rows.Next() {
		item, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes a question by ID. A malformed id cannot match a row and is
// reported the same way as a missing one.
func (r *QuestionPostgres) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return sql.ErrNoRows
	}
	const stmt = `DELETE FROM questions WHERE id = $1`
	res, err := r.db.ExecContext(ctx, stmt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
