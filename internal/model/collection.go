package model

import "time"

// Collection is a named, persistent, deduplicated set of addresses maintained
// independently of any single comparison. Membership is mutated only through
// add/remove operations; deleting a collection cascades its memberships.
type Collection struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`

	// AddressCount is the current membership size. Adding an address that is
	// already present never increases it.
	AddressCount int `json:"addressCount"`
}

// AddResult reports the outcome of a bulk address add against a collection.
// Total is the collection's membership count after the add.
type AddResult struct {
	Added        int               `json:"added"`
	Skipped      int               `json:"skipped"`
	Invalid      []ValidationError `json:"invalid,omitempty"`
	InvalidCount int               `json:"invalidCount"`
	Total        int               `json:"total"`
}
