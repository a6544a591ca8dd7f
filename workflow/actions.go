package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"crm-api/models"
)

// actionConfig is the decoded shape of a workflow's action_config mapping.
// Fields are loosely typed on the wire; due_days in particular arrives as a
// JSON number or a hand-typed string.
type actionConfig struct {
	TaskTitle       string `json:"task_title"`
	TaskDescription string `json:"task_description"`
	DueDays         any    `json:"due_days"`
	TemplateID      any    `json:"template_id"`
}

func decodeConfig(raw json.RawMessage) (*actionConfig, error) {
	cfg := &actionConfig{}
	if len(raw) == 0 {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("invalid action config: %w", err)
	}
	return cfg, nil
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// execute performs the workflow's configured action for one client. Errors
// are per-workflow: the caller logs them and moves on to the next candidate.
func (e *Engine) execute(ctx context.Context, wf *models.Workflow, client *models.Client) error {
	cfg, err := decodeConfig(wf.ActionConfig)
	if err != nil {
		return err
	}
	switch wf.ActionType {
	case models.ActionCreateTask:
		return e.createTask(wf, cfg, client)
	case models.ActionSendEmail:
		return e.sendEmail(ctx, wf, cfg, client)
	default:
		return fmt.Errorf("unknown action type %q", wf.ActionType)
	}
}

func (e *Engine) createTask(wf *models.Workflow, cfg *actionConfig, client *models.Client) error {
	title := cfg.TaskTitle
	if title == "" {
		title = "New Task"
	}
	dueDays, _ := asInt(cfg.DueDays)
	dueDate := e.now().AddDate(0, 0, dueDays)

	_, err := e.tasks.CreateForWorkflow(title, cfg.TaskDescription, dueDate, wf.OwnerID, client.ID)
	return err
}

func (e *Engine) sendEmail(ctx context.Context, wf *models.Workflow, cfg *actionConfig, client *models.Client) error {
	templateID, ok := asInt(cfg.TemplateID)
	if !ok || templateID == 0 {
		return fmt.Errorf("send_email action without template_id")
	}
	tmpl, err := e.templates.GetByIDAndOwner(templateID, wf.OwnerID)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return fmt.Errorf("email template %d not found for owner %d", templateID, wf.OwnerID)
	}

	subject := Render(tmpl.Subject, client)
	body := Render(tmpl.Body, client)

	// A client without an email address is a no-op, not a failure.
	if client.Email == "" {
		return nil
	}
	if _, err := e.mailer.Send(ctx, wf.OwnerID, client.Email, subject, body); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	return nil
}
