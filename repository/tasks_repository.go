package repository

import (
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"

	"crm-api/models"
)

type TasksRepository struct {
	db *sql.DB
}

func NewTasksRepository(db *sql.DB) *TasksRepository {
	return &TasksRepository{db: db}
}

const taskColumns = `tasks.id, tasks.title, tasks.description, tasks.status, tasks.priority,
	tasks.due_date, tasks.client_id, clients.name, tasks.assigned_to_id, users.username,
	tasks.completed_at, tasks.created_at, tasks.updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	var assignedID sql.NullInt64
	var assignedName sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.ClientID, &t.ClientName, &assignedID, &assignedName,
		&t.CompletedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if assignedID.Valid {
		id := int(assignedID.Int64)
		t.AssignedToID = &id
	}
	if assignedName.Valid {
		t.AssignedToName = &assignedName.String
	}
	return &t, nil
}

type TaskInput struct {
	Title        string
	Description  *string
	Status       string
	Priority     string
	DueDate      *time.Time
	ClientID     int
	AssignedToID *int
	CompletedAt  *time.Time
}

func (r *TasksRepository) Create(in TaskInput) (*models.Task, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO tasks (title, description, status, priority, due_date, client_id,
			assigned_to_id, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id
	`, in.Title, in.Description, in.Status, in.Priority, in.DueDate,
		in.ClientID, in.AssignedToID, in.CompletedAt).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

// CreateForWorkflow creates the task produced by a CREATE_TASK action:
// fresh todo/medium task assigned to the workflow owner.
func (r *TasksRepository) CreateForWorkflow(title, description string, dueDate time.Time, assignedToID, clientID int) (*models.Task, error) {
	var desc *string
	if description != "" {
		desc = &description
	}
	return r.Create(TaskInput{
		Title:        title,
		Description:  desc,
		Status:       models.TaskStatusTodo,
		Priority:     models.TaskPriorityMedium,
		DueDate:      &dueDate,
		ClientID:     clientID,
		AssignedToID: &assignedToID,
	})
}

func (r *TasksRepository) GetByID(id int) (*models.Task, error) {
	row := r.db.QueryRow(`
		SELECT `+taskColumns+`
		FROM tasks
		JOIN clients ON clients.id = tasks.client_id
		LEFT JOIN users ON users.id = tasks.assigned_to_id
		WHERE tasks.id = $1
	`, id)
	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

type TaskUpdate struct {
	Title        *string
	Description  *string
	Status       *string
	Priority     *string
	DueDate      *time.Time
	AssignedToID *int
	// CompletedAt is always written: the handler owns the done-transition
	// rules, so COALESCE would prevent clearing it.
	CompletedAt *time.Time
}

func (r *TasksRepository) Update(id int, upd TaskUpdate) error {
	_, err := r.db.Exec(`
		UPDATE tasks SET
			title = COALESCE($2, title),
			description = COALESCE($3, description),
			status = COALESCE($4, status),
			priority = COALESCE($5, priority),
			due_date = COALESCE($6, due_date),
			assigned_to_id = COALESCE($7, assigned_to_id),
			completed_at = $8,
			updated_at = NOW()
		WHERE id = $1
	`, id, upd.Title, upd.Description, upd.Status, upd.Priority,
		upd.DueDate, upd.AssignedToID, upd.CompletedAt)
	return err
}

func (r *TasksRepository) Delete(id int) error {
	_, err := r.db.Exec(`DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// List returns one page of tasks matching the predicate, with optional title
// search and client narrowing on top of it.
func (r *TasksRepository) List(pred sq.Sqlizer, search string, clientID *int, orderBy string, limit, offset int) ([]*models.Task, int, error) {
	base := psql.Select(taskColumns).
		From("tasks").
		Join("clients ON clients.id = tasks.client_id").
		LeftJoin("users ON users.id = tasks.assigned_to_id").
		Where(pred)
	countBase := psql.Select("COUNT(*)").
		From("tasks").
		Join("clients ON clients.id = tasks.client_id").
		LeftJoin("users ON users.id = tasks.assigned_to_id").
		Where(pred)

	if search != "" {
		like := sq.Expr("tasks.title ILIKE ?", "%"+search+"%")
		base = base.Where(like)
		countBase = countBase.Where(like)
	}
	if clientID != nil {
		base = base.Where(sq.Eq{"tasks.client_id": *clientID})
		countBase = countBase.Where(sq.Eq{"tasks.client_id": *clientID})
	}

	query, args, err := base.OrderBy(orderBy).
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countSQL, countArgs, err := countBase.ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRow(countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
