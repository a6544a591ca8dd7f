package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	"crm-api/models"
	"crm-api/pkg/events"
	"crm-api/query"
)

// WorkflowStore loads workflow definitions. ListActive must return workflows
// ordered by id so execution order is deterministic.
type WorkflowStore interface {
	ListActive(ownerID int, triggerType string) ([]*models.Workflow, error)
	GetByIDAndOwner(id, ownerID int) (*models.Workflow, error)
}

// ClientStore is the slice of the clients repository the engine needs:
// testing a single new row against a predicate, and the broader global
// queries behind preview/retroactive runs.
type ClientStore interface {
	MatchesOne(clientID int, pred sq.Sqlizer) (bool, error)
	CountMatching(pred sq.Sqlizer) (int, error)
	ListMatching(pred sq.Sqlizer) ([]*models.Client, error)
}

// TaskStore creates the tasks produced by CREATE_TASK actions.
type TaskStore interface {
	CreateForWorkflow(title, description string, dueDate time.Time, assignedToID, clientID int) (*models.Task, error)
}

// TemplateStore resolves email templates. GetByIDAndOwner returns (nil, nil)
// when no template with that id belongs to the owner; a cross-owner template
// id is indistinguishable from a missing one.
type TemplateStore interface {
	GetByIDAndOwner(id, ownerID int) (*models.EmailTemplate, error)
}

// Mailer is the outbound mail collaborator.
type Mailer interface {
	Send(ctx context.Context, userID int, to, subject, body string) (string, error)
}

// Notifier pushes real-time events to a user's connected sessions.
type Notifier interface {
	NotifyUser(userID int, event interface{})
}

// Engine reacts to entity-lifecycle triggers by evaluating each candidate
// workflow's filter against the triggering entity and executing its action.
// All per-workflow failures are contained: one workflow's error never blocks
// its siblings or the request that created the entity.
type Engine struct {
	workflows WorkflowStore
	clients   ClientStore
	tasks     TaskStore
	templates TemplateStore
	mailer    Mailer
	notifier  Notifier
	now       func() time.Time
	log       *slog.Logger
}

func NewEngine(workflows WorkflowStore, clients ClientStore, tasks TaskStore, templates TemplateStore, mailer Mailer) *Engine {
	return &Engine{
		workflows: workflows,
		clients:   clients,
		tasks:     tasks,
		templates: templates,
		mailer:    mailer,
		now:       time.Now,
		log:       slog.Default(),
	}
}

// WithNotifier attaches an optional real-time notifier.
func (e *Engine) WithNotifier(n Notifier) *Engine {
	e.notifier = n
	return e
}

// WithClock overrides the evaluation clock.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// OnClientCreated is the explicit trigger entry point, called inline from the
// client-creation handler. It never returns an error and never panics past
// the dispatch boundary.
func (e *Engine) OnClientCreated(ctx context.Context, client *models.Client) {
	if client == nil || client.OwnerID == nil {
		return
	}
	candidates, err := e.workflows.ListActive(*client.OwnerID, models.TriggerClientCreated)
	if err != nil {
		e.log.Error("workflow candidate lookup failed", "clientId", client.ID, "err", err)
		return
	}
	for _, wf := range candidates {
		matched, err := e.matches(wf, client.ID)
		if err != nil {
			e.log.Error("workflow filter check failed", "workflow", wf.Name, "workflowId", wf.ID, "err", err)
			continue
		}
		if !matched {
			continue
		}
		if err := e.execute(ctx, wf, client); err != nil {
			e.log.Error("workflow execution failed", "workflow", wf.Name, "workflowId", wf.ID, "err", err)
			continue
		}
		e.notify(wf, client)
	}
}

// matches tests whether the single triggering row satisfies the workflow's
// filter. The compiled predicate is intersected with an id-equality predicate
// so relative-date and "me" semantics hold without scanning the table.
func (e *Engine) matches(wf *models.Workflow, clientID int) (bool, error) {
	if query.IsEmpty(wf.Filters) {
		return true, nil
	}
	node, err := query.Parse(wf.Filters)
	if err != nil {
		return false, err
	}
	owner := wf.OwnerID
	pred, err := query.NewCompiler(query.Clients, &owner, e.now()).Compile(node)
	if err != nil {
		return false, err
	}
	return e.clients.MatchesOne(clientID, pred)
}

// PreviewCount compiles a caller-supplied filter and counts all currently
// matching clients. Deliberately global rather than owner-scoped, matching
// the main client list the caller is previewing against.
func (e *Engine) PreviewCount(filters json.RawMessage, principal int) (int, error) {
	node, err := query.Parse(filters)
	if err != nil {
		return 0, err
	}
	pred, err := query.NewCompiler(query.Clients, &principal, e.now()).Compile(node)
	if err != nil {
		return 0, err
	}
	return e.clients.CountMatching(pred)
}

// Override carries unsaved workflow edits for a retroactive run. Nil/empty
// fields keep the stored values; the persisted workflow is never mutated.
type Override struct {
	Filters      json.RawMessage
	ActionConfig json.RawMessage
	ActionType   string
}

// ErrNoFilters rejects retroactive runs of an unfiltered workflow, which
// would execute against every client in the system.
var ErrNoFilters = errors.New("workflow has no filters")

// RunMatches re-runs the workflow's action against every currently matching
// client, globally. It returns the number of clients whose action executed
// without error; failures are logged and skipped. Actions are direct
// creations with no dedup, so running twice doubles the side effects.
func (e *Engine) RunMatches(ctx context.Context, workflowID, principal int, ov Override) (int, error) {
	stored, err := e.workflows.GetByIDAndOwner(workflowID, principal)
	if err != nil {
		return 0, err
	}
	if stored == nil {
		return 0, fmt.Errorf("workflow %d not found", workflowID)
	}

	// Value-level copy; overrides never touch the persisted row.
	wf := *stored
	if len(ov.Filters) > 0 {
		wf.Filters = ov.Filters
	}
	if len(ov.ActionConfig) > 0 {
		wf.ActionConfig = ov.ActionConfig
	}
	if ov.ActionType != "" {
		wf.ActionType = ov.ActionType
	}

	if query.IsEmpty(wf.Filters) {
		return 0, ErrNoFilters
	}
	node, err := query.Parse(wf.Filters)
	if err != nil {
		return 0, err
	}
	pred, err := query.NewCompiler(query.Clients, &principal, e.now()).Compile(node)
	if err != nil {
		return 0, err
	}
	clients, err := e.clients.ListMatching(pred)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, client := range clients {
		if err := e.execute(ctx, &wf, client); err != nil {
			e.log.Error("retroactive workflow execution failed", "workflow", wf.Name, "clientId", client.ID, "err", err)
			continue
		}
		count++
	}
	return count, nil
}

func (e *Engine) notify(wf *models.Workflow, client *models.Client) {
	if e.notifier == nil {
		return
	}
	e.notifier.NotifyUser(wf.OwnerID, events.WorkflowExecuted{
		Type:         "workflow.executed",
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		ClientID:     client.ID,
		Action:       wf.ActionType,
	})
}
