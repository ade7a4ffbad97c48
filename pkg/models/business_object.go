package models

// BusinessObjectStatus constants for promoted business objects.
const (
	BusinessObjectStatusDraft     = "draft"
	BusinessObjectStatusPublished = "published"
)

// BusinessObject is the promoted, governance-approved modeling artifact
// generated from a table's confirmed semantic profile. The engine emits it
// for the caller to append to its own business-object store.
type BusinessObject struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Code        string                `json:"code"`
	Domain      string                `json:"domain,omitempty"`
	Owner       string                `json:"owner,omitempty"`
	Status      string                `json:"status"`
	Description string                `json:"description,omitempty"`
	Fields      []BusinessObjectField `json:"fields"`
}

// BusinessObjectField is one attribute of a promoted business object.
type BusinessObjectField struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Type      string `json:"type"`
	IsPrimary bool   `json:"isPrimary"`
	Required  bool   `json:"required"`
}
