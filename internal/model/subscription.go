package model

// SubscriptionDurationMicros is the fixed paid-access window: 30 days.
const SubscriptionDurationMicros uint64 = 30 * 24 * 60 * 60 * 1_000_000

// SubscriptionInfo is an author's offer to sell time-boxed access. At most
// one exists per author; absence means the author sells no access.
type SubscriptionInfo struct {
	Author      Owner   `json:"author"`
	Price       Amount  `json:"price"`
	Description *string `json:"description,omitempty"`
}

// ContentSubscription is a paid access grant from a subscriber to an
// author, valid for a fixed window from payment time.
type ContentSubscription struct {
	ID               string  `json:"id"`
	Subscriber       Owner   `json:"subscriber"`
	SubscriberChain  ChainID `json:"subscriber_chain_id"`
	Author           Owner   `json:"author"`
	AuthorChain      ChainID `json:"author_chain_id"`
	StartTimestamp   uint64  `json:"start_timestamp"`
	EndTimestamp     uint64  `json:"end_timestamp"`
	Price            Amount  `json:"price"`
}

// ValidAt reports whether the grant is live at the given local time.
// Authors always pass their own gate, whatever the timestamps say.
func (s ContentSubscription) ValidAt(now uint64) bool {
	if s.Subscriber == s.Author {
		return true
	}
	return s.EndTimestamp >= now
}
