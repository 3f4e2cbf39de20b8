package models

// Record is one entry of the records collection. Position in the collection
// is its legacy address; ID is stable across inserts and deletes.
type Record struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
}
