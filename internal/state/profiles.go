package state

import (
	"context"
	"errors"

	"patron/internal/model"
)

func (c *Chain) profileOrDefault(ctx context.Context, owner model.Owner) (model.Profile, error) {
	var profile model.Profile
	err := c.getJSON(ctx, prefixProfile+owner.Hex(), &profile)
	if errors.Is(err, ErrNotFound) {
		return model.NewProfile(owner), nil
	}
	if err != nil {
		return model.Profile{}, err
	}
	return profile, nil
}

// SetName updates the display name, coercing the empty string to the
// default.
func (c *Chain) SetName(ctx context.Context, owner model.Owner, name string) error {
	profile, err := c.profileOrDefault(ctx, owner)
	if err != nil {
		return err
	}
	if name == "" {
		name = model.DefaultProfileName
	}
	profile.Name = name
	return c.putJSON(ctx, prefixProfile+owner.Hex(), profile)
}

func (c *Chain) SetBio(ctx context.Context, owner model.Owner, bio string) error {
	profile, err := c.profileOrDefault(ctx, owner)
	if err != nil {
		return err
	}
	profile.Bio = bio
	return c.putJSON(ctx, prefixProfile+owner.Hex(), profile)
}

// SetSocial upserts a named link; last write per name wins, order of first
// appearance is kept.
func (c *Chain) SetSocial(ctx context.Context, owner model.Owner, name, url string) error {
	profile, err := c.profileOrDefault(ctx, owner)
	if err != nil {
		return err
	}

	found := false
	for i := range profile.Socials {
		if profile.Socials[i].Name == name {
			profile.Socials[i].URL = url
			found = true
			break
		}
	}
	if !found {
		profile.Socials = append(profile.Socials, model.SocialLink{Name: name, URL: url})
	}

	return c.putJSON(ctx, prefixProfile+owner.Hex(), profile)
}

func (c *Chain) SetAvatar(ctx context.Context, owner model.Owner, hash string) error {
	profile, err := c.profileOrDefault(ctx, owner)
	if err != nil {
		return err
	}
	profile.AvatarHash = &hash
	return c.putJSON(ctx, prefixProfile+owner.Hex(), profile)
}

func (c *Chain) SetHeader(ctx context.Context, owner model.Owner, hash string) error {
	profile, err := c.profileOrDefault(ctx, owner)
	if err != nil {
		return err
	}
	profile.HeaderHash = &hash
	return c.putJSON(ctx, prefixProfile+owner.Hex(), profile)
}

// GetProfile never fails on an unknown owner, every address has at least
// the default profile.
func (c *Chain) GetProfile(ctx context.Context, owner model.Owner) (model.Profile, error) {
	return c.profileOrDefault(ctx, owner)
}

// SetHubEdge records the chain an owner's mutations replicate to. On a
// satellite this points at the hub; on the hub it points back at the
// owner's home chain.
func (c *Chain) SetHubEdge(ctx context.Context, owner model.Owner, chain model.ChainID) error {
	return c.putJSON(ctx, prefixHubEdge+owner.Hex(), chain)
}

func (c *Chain) HubEdge(ctx context.Context, owner model.Owner) (model.ChainID, error) {
	var chain model.ChainID
	if err := c.getJSON(ctx, prefixHubEdge+owner.Hex(), &chain); err != nil {
		return "", err
	}
	return chain, nil
}
