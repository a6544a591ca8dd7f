package initializers

import (
	"encoding/json"

	"crm-api/repository"
)

// systemView describes one seeded, protected list view.
type systemView struct {
	name     string
	viewType string
	filters  string
	position int
}

var systemViews = []systemView{
	{
		name:     "All Clients",
		viewType: "client",
		filters:  `{"logic": "AND", "conditions": []}`,
		position: 0,
	},
	{
		name:     "My Clients",
		viewType: "client",
		filters:  `{"logic": "AND", "conditions": [{"field": "owner", "operator": "exact", "value": "me"}]}`,
		position: 1,
	},
	{
		name:     "All Tasks",
		viewType: "task",
		filters:  `{"logic": "AND", "conditions": []}`,
		position: 0,
	},
	{
		name:     "My Tasks",
		viewType: "task",
		filters:  `{"logic": "AND", "conditions": [{"field": "assigned_to", "operator": "exact", "value": "me"}]}`,
		position: 1,
	},
}

// InitDefaults is called once on application start to ensure the built-in
// system views exist. Re-running updates filters and positions in place, so
// edits to the seed list roll out on the next deploy.
func InitDefaults(views *repository.SavedViewsRepository) error {
	for _, v := range systemViews {
		if err := views.UpsertSystemView(v.name, v.viewType, json.RawMessage(v.filters), v.position); err != nil {
			return err
		}
	}
	return nil
}
