package query

// Schema is the compile-time allow-list for one filterable entity. Field
// names coming from user filters are resolved against Columns; anything not
// listed fails with ErrUnknownField instead of leaking into SQL.
type Schema struct {
	// Columns maps filter field names to table-qualified column names.
	Columns map[string]string
	// PrincipalFields are relation-identity fields whose values may carry
	// the "me" token.
	PrincipalFields map[string]bool
	// SortAliases maps denormalized display fields to their underlying
	// relation path, applied after the effective sort field is resolved.
	SortAliases map[string]string
	// Default sort applied when neither the saved view nor the request
	// supplies one.
	DefaultSortField string
	DefaultSortDir   string
}

// Column resolves a filter field name, reporting whether it is allowed.
func (s *Schema) Column(field string) (string, bool) {
	col, ok := s.Columns[field]
	return col, ok
}

// SortColumn resolves a sort field through the alias map and the allow-list.
// Unknown fields fall back to the schema default so user input never reaches
// ORDER BY verbatim.
func (s *Schema) SortColumn(field string) string {
	if col, ok := s.SortAliases[field]; ok {
		return col
	}
	if col, ok := s.Columns[field]; ok {
		return col
	}
	return s.Columns[s.DefaultSortField]
}

// Clients is the filter schema for the clients list.
var Clients = &Schema{
	Columns: map[string]string{
		"id":         "clients.id",
		"name":       "clients.name",
		"email":      "clients.email",
		"phone":      "clients.phone",
		"address":    "clients.address",
		"owner":      "clients.owner_id",
		"created_at": "clients.created_at",
		"updated_at": "clients.updated_at",
	},
	PrincipalFields: map[string]bool{"owner": true},
	SortAliases: map[string]string{
		"owner_name": "users.username",
	},
	DefaultSortField: "name",
	DefaultSortDir:   "asc",
}

// Tasks is the filter schema for the tasks list.
var Tasks = &Schema{
	Columns: map[string]string{
		"id":           "tasks.id",
		"title":        "tasks.title",
		"description":  "tasks.description",
		"status":       "tasks.status",
		"priority":     "tasks.priority",
		"due_date":     "tasks.due_date",
		"client":       "tasks.client_id",
		"assigned_to":  "tasks.assigned_to_id",
		"completed_at": "tasks.completed_at",
		"created_at":   "tasks.created_at",
		"updated_at":   "tasks.updated_at",
	},
	PrincipalFields: map[string]bool{"assigned_to": true},
	SortAliases: map[string]string{
		"client_name":      "clients.name",
		"assigned_to_name": "users.username",
	},
	DefaultSortField: "created_at",
	DefaultSortDir:   "desc",
}
