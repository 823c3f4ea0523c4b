package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Task is a tracked work item. Status and priority are free-form here; the
// auth core does not interpret them.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	CreatedDate time.Time  `json:"created_date"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Comments    []string   `json:"comments"`
}

// ErrTaskNotFound is returned when a task id does not exist.
var ErrTaskNotFound = errors.New("task not found")

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	List(ctx context.Context, page, perPage int) ([]Task, int, error)
	Get(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, t Task) (*Task, error)
	Update(ctx context.Context, id int64, t Task) (*Task, error)
	Delete(ctx context.Context, id int64) error
	AddComment(ctx context.Context, id int64, comment string) error
}

// PgTaskRepository implements TaskRepository using pgxpool. Comments live in a
// text[] column so a task row round-trips in one query.
type PgTaskRepository struct {
	db *pgxpool.Pool
}

func NewPgTaskRepository(db *pgxpool.Pool) *PgTaskRepository {
	return &PgTaskRepository{db: db}
}

func (r *PgTaskRepository) List(ctx context.Context, page, perPage int) ([]Task, int, error) {
	if page <= 0 || perPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	const countQ = `SELECT COUNT(*) FROM tasks`
	var total int
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `
SELECT id, title, description, status, priority, created_date, deadline, comments
FROM tasks
ORDER BY id
LIMIT $1 OFFSET $2
`, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]Task, 0, perPage)
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.CreatedDate, &t.Deadline, &t.Comments); err != nil {
			return nil, 0, err
		}
		if t.Comments == nil {
			t.Comments = []string{}
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *PgTaskRepository) Get(ctx context.Context, id int64) (*Task, error) {
	const q = `SELECT id, title, description, status, priority, created_date, deadline, comments FROM tasks WHERE id=$1`
	var t Task
	if err := r.db.QueryRow(ctx, q, id).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.CreatedDate, &t.Deadline, &t.Comments); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if t.Comments == nil {
		t.Comments = []string{}
	}
	return &t, nil
}

func (r *PgTaskRepository) Create(ctx context.Context, t Task) (*Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if t.Comments == nil {
		t.Comments = []string{}
	}
	const q = `
INSERT INTO tasks (title, description, status, priority, deadline, comments)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, created_date
`
	if err := r.db.QueryRow(ctx, q, t.Title, t.Description, t.Status, t.Priority, t.Deadline, t.Comments).Scan(&t.ID, &t.CreatedDate); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *PgTaskRepository) Update(ctx context.Context, id int64, t Task) (*Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	const q = `
UPDATE tasks SET title=$1, description=$2, status=$3, priority=$4, deadline=$5
WHERE id=$6
RETURNING id, created_date, comments
`
	if err := r.db.QueryRow(ctx, q, t.Title, t.Description, t.Status, t.Priority, t.Deadline, id).Scan(&t.ID, &t.CreatedDate, &t.Comments); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	if t.Comments == nil {
		t.Comments = []string{}
	}
	return &t, nil
}

func (r *PgTaskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *PgTaskRepository) AddComment(ctx context.Context, id int64, comment string) error {
	tag, err := r.db.Exec(ctx, `UPDATE tasks SET comments = array_append(comments, $1) WHERE id=$2`, comment, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}
