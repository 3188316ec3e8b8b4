package model

// DefaultProfileName is used whenever a profile is created implicitly or a
// name is set to the empty string.
const DefaultProfileName = "anon"

type SocialLink struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Profile struct {
	Owner      Owner        `json:"owner"`
	Name       string       `json:"name"`
	Bio        string       `json:"bio"`
	Socials    []SocialLink `json:"socials"`
	AvatarHash *string      `json:"avatar_hash,omitempty"`
	HeaderHash *string      `json:"header_hash,omitempty"`
}

// NewProfile returns the default profile for an owner.
func NewProfile(owner Owner) Profile {
	return Profile{
		Owner:   owner,
		Name:    DefaultProfileName,
		Socials: []SocialLink{},
	}
}

type DonationRecord struct {
	ID            uint64   `json:"id"`
	Timestamp     uint64   `json:"timestamp"`
	From          Owner    `json:"from"`
	To            Owner    `json:"to"`
	Amount        Amount   `json:"amount"`
	Message       *string  `json:"message,omitempty"`
	SourceChainID *ChainID `json:"source_chain_id,omitempty"`
	ToChainID     *ChainID `json:"to_chain_id,omitempty"`
}
