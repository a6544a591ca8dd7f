package events

// WorkflowExecuted is emitted to the workflow owner after a workflow's action
// completes for a triggering client. Changes should be additive.
type WorkflowExecuted struct {
	Type         string `json:"type"`
	WorkflowID   int    `json:"workflowId"`
	WorkflowName string `json:"workflowName"`
	ClientID     int    `json:"clientId"`
	Action       string `json:"action"`
}
