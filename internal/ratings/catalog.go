package ratings

// Metric is one entry of the life-area catalog.
type Metric struct {
	ID       string `json:"id" yaml:"id"`
	Label    string `json:"label" yaml:"label"`
	Category string `json:"category" yaml:"category"`
}

// DefaultCatalog is the fixed set of life metrics offered to users.
var DefaultCatalog = []Metric{
	{ID: "health", Label: "Physical Health", Category: "body"},
	{ID: "energy", Label: "Energy", Category: "body"},
	{ID: "sleep", Label: "Sleep Quality", Category: "body"},
	{ID: "peace_of_mind", Label: "Peace of Mind", Category: "mind"},
	{ID: "personal_growth", Label: "Personal Growth", Category: "mind"},
	{ID: "spirituality", Label: "Spirituality", Category: "mind"},
	{ID: "relationships", Label: "Romantic Relationship", Category: "people"},
	{ID: "family", Label: "Family", Category: "people"},
	{ID: "social_life", Label: "Social Life", Category: "people"},
	{ID: "career", Label: "Career", Category: "work"},
	{ID: "finances", Label: "Finances", Category: "work"},
	{ID: "fun_recreation", Label: "Fun & Recreation", Category: "life"},
	{ID: "physical_environment", Label: "Physical Environment", Category: "life"},
}

// CatalogIDs returns the ids of the given metrics.
func CatalogIDs(metrics []Metric) []string {
	ids := make([]string, len(metrics))
	for i, m := range metrics {
		ids[i] = m.ID
	}
	return ids
}
