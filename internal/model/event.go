package model

// StreamName is the single per-chain event log every mutating operation
// appends to and every mirror subscribes to.
const StreamName = "donations_events"

type EventKind string

const (
	EvProfileNameUpdated   EventKind = "profile_name_updated"
	EvProfileBioUpdated    EventKind = "profile_bio_updated"
	EvProfileSocialUpdated EventKind = "profile_social_updated"
	EvProfileAvatarUpdated EventKind = "profile_avatar_updated"
	EvProfileHeaderUpdated EventKind = "profile_header_updated"
	EvDonationSent         EventKind = "donation_sent"
	EvProductCreated       EventKind = "product_created"
	EvProductUpdated       EventKind = "product_updated"
	EvProductDeleted       EventKind = "product_deleted"
	EvProductPurchased     EventKind = "product_purchased"
	EvOrderPlaced          EventKind = "order_placed"
	EvSubPriceSet          EventKind = "subscription_price_set"
	EvSubPriceDeleted      EventKind = "subscription_price_deleted"
	EvUserSubscribed       EventKind = "user_subscribed"
	EvUserUnsubscribed     EventKind = "user_unsubscribed"
	EvPostCreated          EventKind = "post_created"
	EvPostUpdated          EventKind = "post_updated"
	EvPostDeleted          EventKind = "post_deleted"
	EvVoteCast             EventKind = "vote_cast"
	EvPollResultsUpdated   EventKind = "poll_results_updated"
	EvGiveawayParticipated EventKind = "giveaway_participated"
	EvGiveawayResolved     EventKind = "giveaway_resolved"
)

// ProfileFieldUpdate covers the five profile events; only the fields the
// kind implies are set.
type ProfileFieldUpdate struct {
	Owner Owner  `json:"owner"`
	Name  string `json:"name,omitempty"`
	Bio   string `json:"bio,omitempty"`
	URL   string `json:"url,omitempty"`
	Hash  string `json:"hash,omitempty"`
}

type SubscribedNotice struct {
	SubscriptionID string `json:"subscription_id"`
	Subscriber     Owner  `json:"subscriber"`
	Author         Owner  `json:"author"`
	Price          Amount `json:"price"`
	EndTimestamp   uint64 `json:"end_timestamp"`
}

type UnsubscribedNotice struct {
	SubscriptionID string `json:"subscription_id"`
	Subscriber     Owner  `json:"subscriber"`
	Author         Owner  `json:"author"`
}

// Event is one entry of a chain's append-only stream. As with Message,
// exactly one payload field matches Kind.
type Event struct {
	Kind      EventKind `json:"kind"`
	Timestamp uint64    `json:"timestamp"`

	Profile        *ProfileFieldUpdate `json:"profile,omitempty"`
	Donation       *DonationRecord     `json:"donation,omitempty"`
	Product        *Product            `json:"product,omitempty"`
	ProductDeleted *ProductTombstone   `json:"product_deleted,omitempty"`
	Purchase       *PurchaseNotice     `json:"purchase,omitempty"`
	SubPrice       *SubscriptionInfo   `json:"sub_price,omitempty"`
	Author         *Owner              `json:"author,omitempty"`
	Subscribed     *SubscribedNotice   `json:"subscribed,omitempty"`
	Unsubscribed   *UnsubscribedNotice `json:"unsubscribed,omitempty"`
	Post           *Post               `json:"post,omitempty"`
	PostDeleted    *PostTombstone      `json:"post_deleted,omitempty"`
	Vote           *VoteNotice         `json:"vote,omitempty"`
	Poll           *PollSnapshot       `json:"poll,omitempty"`
	GiveawayJoin   *GiveawayJoinNotice `json:"giveaway_join,omitempty"`
	Giveaway       *GiveawaySnapshot   `json:"giveaway,omitempty"`
}
