package state

import (
	"context"
	"errors"
	"fmt"

	"patron/internal/model"
)

func (c *Chain) CreatePost(ctx context.Context, post model.Post) error {
	if err := c.putJSON(ctx, prefixPost+post.ID, post); err != nil {
		return err
	}
	if err := c.addID(ctx, idxPostsByAuthor+post.Author.Hex(), post.ID); err != nil {
		return err
	}
	return c.addID(ctx, idxPostsByChain+string(post.AuthorChainID), post.ID)
}

func (c *Chain) GetPost(ctx context.Context, postID string) (model.Post, error) {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// UpdatePost patches title, content and image. The embedded poll and
// giveaway are never touched here; they change only through the dedicated
// vote, join and resolve paths.
func (c *Chain) UpdatePost(ctx context.Context, postID string, author model.Owner, title, content, imageHash *string) error {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return err
	}
	if post.Author != author {
		return fmt.Errorf("%w: not post author", ErrUnauthorized)
	}

	if title != nil {
		post.Title = *title
	}
	if content != nil {
		post.Content = *content
	}
	if imageHash != nil {
		post.ImageHash = imageHash
	}

	return c.putJSON(ctx, prefixPost+postID, post)
}

func (c *Chain) DeletePost(ctx context.Context, postID string, author model.Owner) error {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return err
	}
	if post.Author != author {
		return fmt.Errorf("%w: not post author", ErrUnauthorized)
	}

	if err := c.delete(ctx, prefixPost+postID); err != nil {
		return err
	}
	if err := c.removeID(ctx, idxPostsByAuthor+author.Hex(), postID); err != nil {
		return err
	}
	return c.removeID(ctx, idxPostsByChain+string(post.AuthorChainID), postID)
}

func (c *Chain) listPosts(ctx context.Context, indexKey string) ([]model.Post, error) {
	ids, err := c.ids(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	posts := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		var post model.Post
		err := c.getJSON(ctx, prefixPost+id, &post)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (c *Chain) PostsByAuthor(ctx context.Context, author model.Owner) ([]model.Post, error) {
	return c.listPosts(ctx, idxPostsByAuthor+author.Hex())
}

func (c *Chain) PostsByChain(ctx context.Context, chain model.ChainID) ([]model.Post, error) {
	return c.listPosts(ctx, idxPostsByChain+string(chain))
}

// CastVote records or overwrites the voter's choice and recomputes the
// tallies from the voter map, so re-applying a replayed vote is a no-op.
// Returns the updated post.
func (c *Chain) CastVote(ctx context.Context, postID string, voter model.Owner, option int, now uint64) (model.Post, error) {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return model.Post{}, err
	}
	if post.Poll == nil {
		return model.Post{}, ErrNoPoll
	}
	if post.Poll.Ended(now) {
		return model.Post{}, ErrPollEnded
	}
	if option < 0 || option >= len(post.Poll.Options) {
		return model.Post{}, fmt.Errorf("%w: option %d out of range", ErrValidation, option)
	}

	if post.Poll.Voters == nil {
		post.Poll.Voters = make(map[model.Owner]int)
	}
	post.Poll.Voters[voter] = option
	post.Poll.Retally()

	if err := c.putJSON(ctx, prefixPost+postID, post); err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// JoinGiveaway appends a participant. A second join by the same owner is
// rejected on the authority chain; replayed joins are filtered by the
// caller.
func (c *Chain) JoinGiveaway(ctx context.Context, postID string, entry model.GiveawayEntry, now uint64) (model.Post, error) {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return model.Post{}, err
	}
	if post.Giveaway == nil {
		return model.Post{}, ErrNoGiveaway
	}
	if post.Giveaway.Resolved {
		return model.Post{}, ErrGiveawayResolved
	}
	if post.Giveaway.Ended(now) {
		return model.Post{}, ErrGiveawayEnded
	}
	for _, existing := range post.Giveaway.Participants {
		if existing.Participant == entry.Participant {
			return model.Post{}, ErrAlreadyJoined
		}
	}

	post.Giveaway.Participants = append(post.Giveaway.Participants, entry)

	if err := c.putJSON(ctx, prefixPost+postID, post); err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// ResolveGiveaway picks the winner deterministically, marks the giveaway
// resolved and returns the winning entry alongside the updated post.
// Resolving twice fails and leaves the winner unchanged.
func (c *Chain) ResolveGiveaway(ctx context.Context, postID string, author model.Owner, now uint64) (model.GiveawayEntry, model.Post, error) {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return model.GiveawayEntry{}, model.Post{}, err
	}
	if post.Author != author {
		return model.GiveawayEntry{}, model.Post{}, fmt.Errorf("%w: not post author", ErrUnauthorized)
	}
	if post.Giveaway == nil {
		return model.GiveawayEntry{}, model.Post{}, ErrNoGiveaway
	}
	if post.Giveaway.Resolved {
		return model.GiveawayEntry{}, model.Post{}, ErrGiveawayResolved
	}
	if len(post.Giveaway.Participants) == 0 {
		return model.GiveawayEntry{}, model.Post{}, ErrNoParticipants
	}

	winner := post.Giveaway.Participants[post.Giveaway.WinnerIndex(now, postID)]
	post.Giveaway.Winner = &winner.Participant
	post.Giveaway.Resolved = true

	if err := c.putJSON(ctx, prefixPost+postID, post); err != nil {
		return model.GiveawayEntry{}, model.Post{}, err
	}
	return winner, post, nil
}

// ApplyPollSnapshot overwrites the local poll with the authority chain's
// snapshot, converging late mirrors without replaying deltas.
func (c *Chain) ApplyPollSnapshot(ctx context.Context, postID string, poll model.Poll) error {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return err
	}
	post.Poll = &poll
	return c.putJSON(ctx, prefixPost+postID, post)
}

// ApplyGiveawaySnapshot is the giveaway counterpart of ApplyPollSnapshot.
func (c *Chain) ApplyGiveawaySnapshot(ctx context.Context, postID string, giveaway model.Giveaway) error {
	var post model.Post
	if err := c.getJSON(ctx, prefixPost+postID, &post); err != nil {
		return err
	}
	post.Giveaway = &giveaway
	return c.putJSON(ctx, prefixPost+postID, post)
}
