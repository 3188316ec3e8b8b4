package node

// gorm models for the node's own tables. They share the connection with
// the chain's key-value store.

// StreamEvent is one entry of an event stream, the chain's own or a
// followed peer's local copy.
type StreamEvent struct {
	ChainID string `gorm:"primaryKey;size:128"`
	Stream  string `gorm:"primaryKey;size:128"`
	Idx     uint64 `gorm:"primaryKey"`
	Payload []byte `gorm:"type:bytea;not null"`
}

// StreamCursor tracks how far a followed stream has been replayed. A row's
// existence is the follow itself.
type StreamCursor struct {
	ChainID string `gorm:"primaryKey;size:128"`
	Stream  string `gorm:"primaryKey;size:128"`
	Next    uint64 `gorm:"not null;default:0"`
}

// AccountRow holds an owner's spendable balance as a decimal string; the
// ledger math runs on big integers.
type AccountRow struct {
	Owner   string `gorm:"primaryKey;size:64"`
	Balance string `gorm:"not null;default:0"`
}

// BlobRow is content-addressed host data.
type BlobRow struct {
	Hash string `gorm:"primaryKey;size:66"`
	Data []byte `gorm:"type:bytea;not null"`
}
