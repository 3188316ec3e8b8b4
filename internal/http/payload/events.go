package payload

import (
	"patron/internal/model"
)

// EventsPage is one slice of a chain's event stream, served to peers and
// readers.
type EventsPage struct {
	ChainID   string        `json:"chain_id"`
	Stream    string        `json:"stream"`
	From      uint64        `json:"from"`
	Events    []model.Event `json:"events"`
	NextIndex uint64        `json:"next_index"`
}
