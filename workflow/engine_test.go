package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-api/models"
	"crm-api/pkg/events"
)

var engineNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type fakeWorkflowStore struct {
	active []*models.Workflow
	byID   map[int]*models.Workflow
}

func (f *fakeWorkflowStore) ListActive(ownerID int, triggerType string) ([]*models.Workflow, error) {
	return f.active, nil
}

func (f *fakeWorkflowStore) GetByIDAndOwner(id, ownerID int) (*models.Workflow, error) {
	return f.byID[id], nil
}

type fakeClientStore struct {
	matches  bool
	count    int
	list     []*models.Client
	lastPred sq.Sqlizer
}

func (f *fakeClientStore) MatchesOne(clientID int, pred sq.Sqlizer) (bool, error) {
	f.lastPred = pred
	return f.matches, nil
}

func (f *fakeClientStore) CountMatching(pred sq.Sqlizer) (int, error) {
	f.lastPred = pred
	return f.count, nil
}

func (f *fakeClientStore) ListMatching(pred sq.Sqlizer) ([]*models.Client, error) {
	f.lastPred = pred
	return f.list, nil
}

type createdTask struct {
	title       string
	description string
	due         time.Time
	assignedTo  int
	clientID    int
}

type fakeTaskStore struct {
	created []createdTask
	err     error
}

func (f *fakeTaskStore) CreateForWorkflow(title, description string, dueDate time.Time, assignedToID, clientID int) (*models.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, createdTask{title, description, dueDate, assignedToID, clientID})
	return &models.Task{ID: len(f.created), Title: title}, nil
}

type fakeTemplateStore struct {
	byID map[int]*models.EmailTemplate
}

func (f *fakeTemplateStore) GetByIDAndOwner(id, ownerID int) (*models.EmailTemplate, error) {
	return f.byID[id], nil
}

type sentMail struct {
	userID  int
	to      string
	subject string
	body    string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, userID int, to, subject, body string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, sentMail{userID, to, subject, body})
	return "msg-1", nil
}

type fakeNotifier struct {
	events []events.WorkflowExecuted
}

func (f *fakeNotifier) NotifyUser(userID int, event interface{}) {
	if e, ok := event.(events.WorkflowExecuted); ok {
		f.events = append(f.events, e)
	}
}

type engineFixture struct {
	engine    *Engine
	workflows *fakeWorkflowStore
	clients   *fakeClientStore
	tasks     *fakeTaskStore
	templates *fakeTemplateStore
	mailer    *fakeMailer
	notifier  *fakeNotifier
}

func newFixture() *engineFixture {
	f := &engineFixture{
		workflows: &fakeWorkflowStore{byID: map[int]*models.Workflow{}},
		clients:   &fakeClientStore{},
		tasks:     &fakeTaskStore{},
		templates: &fakeTemplateStore{byID: map[int]*models.EmailTemplate{}},
		mailer:    &fakeMailer{},
		notifier:  &fakeNotifier{},
	}
	f.engine = NewEngine(f.workflows, f.clients, f.tasks, f.templates, f.mailer).
		WithNotifier(f.notifier).
		WithClock(func() time.Time { return engineNow })
	return f
}

func ownerClient(id, owner int) *models.Client {
	return &models.Client{ID: id, Name: "Acme Corp", Email: "info@acme.test", OwnerID: &owner}
}

func taskWorkflow(id int, config string) *models.Workflow {
	return &models.Workflow{
		ID:           id,
		Name:         "welcome",
		OwnerID:      1,
		TriggerType:  models.TriggerClientCreated,
		ActionType:   models.ActionCreateTask,
		ActionConfig: json.RawMessage(config),
		Filters:      json.RawMessage(`{}`),
		IsActive:     true,
	}
}

func TestOnClientCreatedCreatesConfiguredTask(t *testing.T) {
	f := newFixture()
	f.workflows.active = []*models.Workflow{
		taskWorkflow(1, `{"task_title": "Welcome call", "task_description": "Say hi", "due_days": 3}`),
	}

	f.engine.OnClientCreated(context.Background(), ownerClient(42, 1))

	require.Len(t, f.tasks.created, 1)
	task := f.tasks.created[0]
	assert.Equal(t, "Welcome call", task.title)
	assert.Equal(t, "Say hi", task.description)
	assert.Equal(t, engineNow.AddDate(0, 0, 3), task.due)
	assert.Equal(t, 1, task.assignedTo)
	assert.Equal(t, 42, task.clientID)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, "workflow.executed", f.notifier.events[0].Type)
	assert.Equal(t, 1, f.notifier.events[0].WorkflowID)
	assert.Equal(t, 42, f.notifier.events[0].ClientID)
	assert.Equal(t, models.ActionCreateTask, f.notifier.events[0].Action)
}

func TestOnClientCreatedDefaultsApply(t *testing.T) {
	f := newFixture()
	f.workflows.active = []*models.Workflow{taskWorkflow(1, `{}`)}

	f.engine.OnClientCreated(context.Background(), ownerClient(42, 1))

	require.Len(t, f.tasks.created, 1)
	assert.Equal(t, "New Task", f.tasks.created[0].title)
	assert.Equal(t, engineNow, f.tasks.created[0].due)
}

func TestOnClientCreatedSkipsNonMatching(t *testing.T) {
	f := newFixture()
	wf := taskWorkflow(1, `{}`)
	wf.Filters = json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"globex"}]}`)
	f.workflows.active = []*models.Workflow{wf}
	f.clients.matches = false

	f.engine.OnClientCreated(context.Background(), ownerClient(42, 1))

	assert.Empty(t, f.tasks.created)
	assert.Empty(t, f.notifier.events)
}

func TestOnClientCreatedFilterMatchScopedToOwner(t *testing.T) {
	f := newFixture()
	wf := taskWorkflow(1, `{}`)
	wf.Filters = json.RawMessage(`{"logic":"AND","conditions":[{"field":"owner","value":"me"}]}`)
	f.workflows.active = []*models.Workflow{wf}
	f.clients.matches = true

	f.engine.OnClientCreated(context.Background(), ownerClient(42, 1))

	require.NotNil(t, f.clients.lastPred)
	sql, args, err := f.clients.lastPred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(clients.owner_id = ?)", sql)
	assert.Equal(t, []any{1}, args)
	assert.Len(t, f.tasks.created, 1)
}

func TestOnClientCreatedIsolatesFailures(t *testing.T) {
	f := newFixture()
	broken := &models.Workflow{
		ID:           1,
		Name:         "broken mail",
		OwnerID:      1,
		TriggerType:  models.TriggerClientCreated,
		ActionType:   models.ActionSendEmail,
		ActionConfig: json.RawMessage(`{}`),
		Filters:      json.RawMessage(`{}`),
	}
	f.workflows.active = []*models.Workflow{broken, taskWorkflow(2, `{}`)}

	f.engine.OnClientCreated(context.Background(), ownerClient(42, 1))

	// The broken workflow fails alone; its sibling still executes.
	require.Len(t, f.tasks.created, 1)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, 2, f.notifier.events[0].WorkflowID)
}

func TestOnClientCreatedSendsTemplatedEmail(t *testing.T) {
	f := newFixture()
	f.templates.byID[5] = &models.EmailTemplate{
		ID:      5,
		OwnerID: 1,
		Subject: "Welcome {{client_name}}",
		Body:    "We have {{client_email}} on file.",
	}
	f.workflows.active = []*models.Workflow{{
		ID:           1,
		Name:         "welcome mail",
		OwnerID:      1,
		TriggerType:  models.TriggerClientCreated,
		ActionType:   models.ActionSendEmail,
		ActionConfig: json.RawMessage(`{"template_id": 5}`),
		Filters:      json.RawMessage(`{}`),
	}}

	f.engine.OnClientCreated(context.Background(), ownerClient(42, 1))

	require.Len(t, f.mailer.sent, 1)
	sent := f.mailer.sent[0]
	assert.Equal(t, 1, sent.userID)
	assert.Equal(t, "info@acme.test", sent.to)
	assert.Equal(t, "Welcome Acme Corp", sent.subject)
	assert.Equal(t, "We have info@acme.test on file.", sent.body)
}

func TestSendEmailNoAddressIsANoOp(t *testing.T) {
	f := newFixture()
	f.templates.byID[5] = &models.EmailTemplate{ID: 5, OwnerID: 1, Subject: "s", Body: "b"}
	f.workflows.active = []*models.Workflow{{
		ID:           1,
		OwnerID:      1,
		TriggerType:  models.TriggerClientCreated,
		ActionType:   models.ActionSendEmail,
		ActionConfig: json.RawMessage(`{"template_id": 5}`),
		Filters:      json.RawMessage(`{}`),
	}}
	owner := 1
	client := &models.Client{ID: 42, Name: "No Mail", OwnerID: &owner}

	f.engine.OnClientCreated(context.Background(), client)

	assert.Empty(t, f.mailer.sent)
	// Skipping the send is still a successful execution.
	assert.Len(t, f.notifier.events, 1)
}

func TestOnClientCreatedIgnoresOwnerlessClients(t *testing.T) {
	f := newFixture()
	f.workflows.active = []*models.Workflow{taskWorkflow(1, `{}`)}

	f.engine.OnClientCreated(context.Background(), &models.Client{ID: 42})

	assert.Empty(t, f.tasks.created)
}

func TestPreviewCount(t *testing.T) {
	f := newFixture()
	f.clients.count = 17

	count, err := f.engine.PreviewCount(json.RawMessage(`{"logic":"AND","conditions":[{"field":"owner","value":"me"}]}`), 9)
	require.NoError(t, err)
	assert.Equal(t, 17, count)

	sql, args, err := f.clients.lastPred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "(clients.owner_id = ?)", sql)
	assert.Equal(t, []any{9}, args)
}

func TestPreviewCountSurfacesCompileErrors(t *testing.T) {
	f := newFixture()
	_, err := f.engine.PreviewCount(json.RawMessage(`{"logic":"AND","conditions":[{"field":"nope","value":1}]}`), 9)
	assert.Error(t, err)
}

func TestRunMatchesRequiresFilters(t *testing.T) {
	f := newFixture()
	f.workflows.byID[1] = taskWorkflow(1, `{}`)

	_, err := f.engine.RunMatches(context.Background(), 1, 1, Override{})
	assert.ErrorIs(t, err, ErrNoFilters)
}

func TestRunMatchesExecutesPerMatch(t *testing.T) {
	f := newFixture()
	wf := taskWorkflow(1, `{"task_title": "Follow up"}`)
	wf.Filters = json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"acme"}]}`)
	f.workflows.byID[1] = wf
	f.clients.list = []*models.Client{ownerClient(10, 1), ownerClient(11, 1)}

	count, err := f.engine.RunMatches(context.Background(), 1, 1, Override{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, f.tasks.created, 2)
	assert.Equal(t, "Follow up", f.tasks.created[0].title)

	// Retroactive runs have no dedup: a second run doubles the side effects.
	count, err = f.engine.RunMatches(context.Background(), 1, 1, Override{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, f.tasks.created, 4)
}

func TestRunMatchesOverridesDoNotPersist(t *testing.T) {
	f := newFixture()
	f.workflows.byID[1] = taskWorkflow(1, `{"task_title": "Stored"}`)
	f.clients.list = []*models.Client{ownerClient(10, 1)}

	count, err := f.engine.RunMatches(context.Background(), 1, 1, Override{
		Filters:      json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"acme"}]}`),
		ActionConfig: json.RawMessage(`{"task_title": "Overridden"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, f.tasks.created, 1)
	assert.Equal(t, "Overridden", f.tasks.created[0].title)

	// The stored definition is untouched.
	assert.JSONEq(t, `{"task_title": "Stored"}`, string(f.workflows.byID[1].ActionConfig))
	assert.JSONEq(t, `{}`, string(f.workflows.byID[1].Filters))
}

func TestRunMatchesCountsOnlySuccesses(t *testing.T) {
	f := newFixture()
	wf := taskWorkflow(1, `{}`)
	wf.Filters = json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"acme"}]}`)
	f.workflows.byID[1] = wf
	f.clients.list = []*models.Client{ownerClient(10, 1), ownerClient(11, 1)}
	f.tasks.err = errors.New("insert failed")

	count, err := f.engine.RunMatches(context.Background(), 1, 1, Override{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRunMatchesUnknownWorkflow(t *testing.T) {
	f := newFixture()
	_, err := f.engine.RunMatches(context.Background(), 99, 1, Override{})
	assert.Error(t, err)
}
