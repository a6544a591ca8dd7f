package repository

import (
	"database/sql"
	"encoding/json"

	"crm-api/models"
)

type WorkflowsRepository struct {
	db *sql.DB
}

func NewWorkflowsRepository(db *sql.DB) *WorkflowsRepository {
	return &WorkflowsRepository{db: db}
}

const workflowColumns = `id, name, description, owner_id, trigger_type, action_type,
	action_config, filters, is_active, created_at, updated_at`

func scanWorkflow(row interface{ Scan(...any) error }) (*models.Workflow, error) {
	var w models.Workflow
	var actionConfig, filters []byte
	err := row.Scan(&w.ID, &w.Name, &w.Description, &w.OwnerID, &w.TriggerType,
		&w.ActionType, &actionConfig, &filters, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	w.ActionConfig = actionConfig
	w.Filters = filters
	return &w, nil
}

type WorkflowInput struct {
	Name         string
	Description  *string
	TriggerType  string
	ActionType   string
	ActionConfig json.RawMessage
	Filters      json.RawMessage
	IsActive     bool
}

func (r *WorkflowsRepository) Create(ownerID int, in WorkflowInput) (*models.Workflow, error) {
	var id int
	err := r.db.QueryRow(`
		INSERT INTO workflows (name, description, owner_id, trigger_type, action_type,
			action_config, filters, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING id
	`, in.Name, in.Description, ownerID, in.TriggerType, in.ActionType,
		in.ActionConfig, in.Filters, in.IsActive).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *WorkflowsRepository) GetByID(id int) (*models.Workflow, error) {
	row := r.db.QueryRow(`
		SELECT `+workflowColumns+` FROM workflows WHERE id = $1
	`, id)
	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *WorkflowsRepository) GetByIDAndOwner(id, ownerID int) (*models.Workflow, error) {
	row := r.db.QueryRow(`
		SELECT `+workflowColumns+` FROM workflows WHERE id = $1 AND owner_id = $2
	`, id, ownerID)
	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListByOwner returns the owner's workflows, newest first, for the
// management interface.
func (r *WorkflowsRepository) ListByOwner(ownerID int) ([]*models.Workflow, error) {
	return r.list(`
		SELECT `+workflowColumns+` FROM workflows
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`, ownerID)
}

// ListActive returns the trigger candidates: the owner's active workflows
// for one trigger type, ordered by id so execution order is deterministic.
func (r *WorkflowsRepository) ListActive(ownerID int, triggerType string) ([]*models.Workflow, error) {
	return r.list(`
		SELECT `+workflowColumns+` FROM workflows
		WHERE owner_id = $1 AND trigger_type = $2 AND is_active = TRUE
		ORDER BY id
	`, ownerID, triggerType)
}

func (r *WorkflowsRepository) list(query string, args ...any) ([]*models.Workflow, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, w)
	}
	return items, rows.Err()
}

type WorkflowUpdate struct {
	Name         *string
	Description  *string
	TriggerType  *string
	ActionType   *string
	ActionConfig *json.RawMessage
	Filters      *json.RawMessage
	IsActive     *bool
}

func (r *WorkflowsRepository) Update(id int, upd WorkflowUpdate) error {
	_, err := r.db.Exec(`
		UPDATE workflows SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			trigger_type = COALESCE($4, trigger_type),
			action_type = COALESCE($5, action_type),
			action_config = COALESCE($6, action_config),
			filters = COALESCE($7, filters),
			is_active = COALESCE($8, is_active),
			updated_at = NOW()
		WHERE id = $1
	`, id, upd.Name, upd.Description, upd.TriggerType, upd.ActionType,
		upd.ActionConfig, upd.Filters, upd.IsActive)
	return err
}

func (r *WorkflowsRepository) Delete(id int) error {
	_, err := r.db.Exec(`DELETE FROM workflows WHERE id = $1`, id)
	return err
}
