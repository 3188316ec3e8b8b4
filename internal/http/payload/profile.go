package payload

import (
	"github.com/jellydator/validation"

	"patron/internal/core"
	"patron/internal/model"
)

type SocialLinkRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (s SocialLinkRequest) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Length(1, 64)),
		validation.Field(&s.URL, validation.Required, validation.Length(1, 512)),
	)
}

type ProfileRequest struct {
	Name    *string             `json:"name,omitempty"`
	Bio     *string             `json:"bio,omitempty"`
	Socials []SocialLinkRequest `json:"socials,omitempty"`
}

func (p ProfileRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Length(0, 128)),
		validation.Field(&p.Bio, validation.Length(0, 2048)),
		validation.Field(&p.Socials, validation.Length(0, 20)),
	)
}

func (p ProfileRequest) ToOp() core.UpdateProfileOp {
	socials := make([]model.SocialLink, 0, len(p.Socials))
	for _, social := range p.Socials {
		socials = append(socials, model.SocialLink{Name: social.Name, URL: social.URL})
	}
	return core.UpdateProfileOp{
		Name:    p.Name,
		Bio:     p.Bio,
		Socials: socials,
	}
}

type RegisterRequest struct {
	MainChain string         `json:"main_chain_id"`
	Profile   ProfileRequest `json:"profile"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.MainChain, validation.Required),
		validation.Field(&r.Profile),
	)
}

func (r RegisterRequest) ToOp() core.RegisterOp {
	return core.RegisterOp{
		MainChain: model.ChainID(r.MainChain),
		Profile:   r.Profile.ToOp(),
	}
}

// ImageRequest carries a blob hash for an avatar or header update.
type ImageRequest struct {
	Hash string `json:"hash"`
}

func (i ImageRequest) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Hash, validation.Required, validation.Match(hexRegex)),
	)
}
