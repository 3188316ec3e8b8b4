package core

import (
	"context"
	"errors"
	"fmt"

	"patron/internal/model"
	"patron/internal/state"
)

// CreatePost publishes a post, with an optional poll and giveaway fixed at
// creation time, and delivers it to every currently-subscribed chain.
func (e *Executor) CreatePost(ctx context.Context, caller model.Owner, op CreatePostOp) (model.Post, error) {
	ts := e.runtime.Now()
	chainID := e.runtime.ChainID()

	post := model.Post{
		ID:            fmt.Sprintf("%012x", ts%0x1000000000000),
		Author:        caller,
		AuthorChainID: chainID,
		Title:         op.Title,
		Content:       op.Content,
		ImageHash:     op.ImageHash,
		CreatedAt:     ts,
	}
	if op.Poll != nil {
		if len(op.Poll.Options) < 2 {
			return model.Post{}, fmt.Errorf("%w: a poll needs at least two options", state.ErrValidation)
		}
		options := make([]model.PollOption, len(op.Poll.Options))
		for i, text := range op.Poll.Options {
			options[i] = model.PollOption{Text: text}
		}
		post.Poll = &model.Poll{
			Options:      options,
			EndTimestamp: op.Poll.EndTimestamp,
			Voters:       make(map[model.Owner]int),
		}
	}
	if op.Giveaway != nil {
		post.Giveaway = &model.Giveaway{
			Prize:        op.Giveaway.Prize,
			EndTimestamp: op.Giveaway.EndTimestamp,
			Participants: []model.GiveawayEntry{},
		}
	}

	if err := e.state.CreatePost(ctx, post); err != nil {
		return model.Post{}, fmt.Errorf("create post: %w", err)
	}
	e.emit(ctx, model.Event{Kind: model.EvPostCreated, Timestamp: ts, Post: &post})

	e.fanoutToSubscribers(ctx, caller, ts, model.Message{Kind: model.MsgPostPublished, Post: &post})

	return post, nil
}

func (e *Executor) UpdatePost(ctx context.Context, caller model.Owner, op UpdatePostOp) error {
	if err := e.state.UpdatePost(ctx, op.PostID, caller, op.Title, op.Content, op.ImageHash); err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	post, err := e.state.GetPost(ctx, op.PostID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	ts := e.runtime.Now()
	e.emit(ctx, model.Event{Kind: model.EvPostUpdated, Timestamp: ts, Post: &post})

	e.fanoutToSubscribers(ctx, caller, ts, model.Message{Kind: model.MsgPostUpdated, Post: &post})

	return nil
}

func (e *Executor) DeletePost(ctx context.Context, caller model.Owner, postID string) error {
	if err := e.state.DeletePost(ctx, postID, caller); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	ts := e.runtime.Now()
	tombstone := model.PostTombstone{PostID: postID, Author: caller}
	e.emit(ctx, model.Event{Kind: model.EvPostDeleted, Timestamp: ts, PostDeleted: &tombstone})

	e.fanoutToSubscribers(ctx, caller, ts, model.Message{Kind: model.MsgPostDeleted, PostDeleted: &tombstone})

	return nil
}

// CastVote routes the vote to the post's authority chain, or applies it
// here when this is that chain.
func (e *Executor) CastVote(ctx context.Context, caller model.Owner, op CastVoteOp) error {
	post, err := e.state.GetPost(ctx, op.PostID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	current := e.runtime.ChainID()
	if post.AuthorChainID != current {
		e.routeToChain(ctx, post.AuthorChainID, model.Message{
			Kind: model.MsgVoteCast,
			Vote: &model.VoteNotice{
				PostID:     op.PostID,
				Voter:      caller,
				VoterChain: current,
				Option:     op.Option,
			},
		})
		return nil
	}

	return e.applyVote(ctx, model.VoteNotice{
		PostID:     op.PostID,
		Voter:      caller,
		VoterChain: current,
		Option:     op.Option,
	})
}

// applyVote is the authoritative path: gate on subscription validity,
// mutate the poll, and broadcast the resulting snapshot so every mirror
// converges on the same tallies.
func (e *Executor) applyVote(ctx context.Context, vote model.VoteNotice) error {
	post, err := e.state.GetPost(ctx, vote.PostID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	now := e.runtime.Now()
	ok, err := e.hasValidSubscription(ctx, post.Author, vote.Voter, now)
	if err != nil {
		return fmt.Errorf("subscription check: %w", err)
	}
	if !ok {
		return ErrExpiredAccess
	}

	updated, err := e.state.CastVote(ctx, vote.PostID, vote.Voter, vote.Option, now)
	if err != nil {
		return fmt.Errorf("cast vote: %w", err)
	}

	snapshot := model.PollSnapshot{PostID: vote.PostID, Poll: *updated.Poll}
	e.emit(ctx, model.Event{Kind: model.EvVoteCast, Timestamp: now, Vote: &vote})
	e.emit(ctx, model.Event{Kind: model.EvPollResultsUpdated, Timestamp: now, Poll: &snapshot})

	e.fanoutToSubscribers(ctx, post.Author, now, model.Message{Kind: model.MsgPollResultsUpdated, Poll: &snapshot})
	return nil
}

// JoinGiveaway routes the entry to the post's authority chain, or applies
// it here when this is that chain.
func (e *Executor) JoinGiveaway(ctx context.Context, caller model.Owner, postID string) error {
	post, err := e.state.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	current := e.runtime.ChainID()
	if post.AuthorChainID != current {
		e.routeToChain(ctx, post.AuthorChainID, model.Message{
			Kind: model.MsgGiveawayParticipation,
			GiveawayJoin: &model.GiveawayJoinNotice{
				PostID:           postID,
				Participant:      caller,
				ParticipantChain: current,
				Timestamp:        e.runtime.Now(),
			},
		})
		return nil
	}

	return e.applyGiveawayJoin(ctx, model.GiveawayJoinNotice{
		PostID:           postID,
		Participant:      caller,
		ParticipantChain: current,
		Timestamp:        e.runtime.Now(),
	}, false)
}

// applyGiveawayJoin mutates the giveaway on the authority chain and
// broadcasts the snapshot. When replaying a remote join, a duplicate entry
// is tolerated silently so re-delivery cannot poison the batch.
func (e *Executor) applyGiveawayJoin(ctx context.Context, join model.GiveawayJoinNotice, tolerateDuplicate bool) error {
	post, err := e.state.GetPost(ctx, join.PostID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	now := e.runtime.Now()
	ok, err := e.hasValidSubscription(ctx, post.Author, join.Participant, now)
	if err != nil {
		return fmt.Errorf("subscription check: %w", err)
	}
	if !ok {
		return ErrExpiredAccess
	}

	entry := model.GiveawayEntry{
		Participant: join.Participant,
		Chain:       join.ParticipantChain,
		JoinedAt:    join.Timestamp,
	}
	updated, err := e.state.JoinGiveaway(ctx, join.PostID, entry, now)
	if err != nil {
		if tolerateDuplicate && errors.Is(err, state.ErrAlreadyJoined) {
			return nil
		}
		return fmt.Errorf("join giveaway: %w", err)
	}

	snapshot := model.GiveawaySnapshot{PostID: join.PostID, Giveaway: *updated.Giveaway}
	e.emit(ctx, model.Event{Kind: model.EvGiveawayParticipated, Timestamp: now, GiveawayJoin: &join})

	e.fanoutToSubscribers(ctx, post.Author, now, model.Message{Kind: model.MsgGiveawayUpdated, Giveaway: &snapshot})
	return nil
}

// ResolveGiveaway picks the winner, pays out the prize to the winner's
// home account, and broadcasts the final snapshot. Only the author may
// resolve, and only once.
func (e *Executor) ResolveGiveaway(ctx context.Context, caller model.Owner, postID string) (model.Owner, error) {
	now := e.runtime.Now()
	winner, post, err := e.state.ResolveGiveaway(ctx, postID, caller, now)
	if err != nil {
		return model.Owner{}, fmt.Errorf("resolve giveaway: %w", err)
	}

	prizeTarget := model.Account{ChainID: winner.Chain, Owner: winner.Participant}
	if err := e.runtime.Transfer(ctx, caller, prizeTarget, post.Giveaway.Prize); err != nil {
		e.logs.Errorw("prize transfer failed", "post_id", postID, "winner", winner.Participant.Hex(), "error", err)
	}

	snapshot := model.GiveawaySnapshot{PostID: postID, Giveaway: *post.Giveaway}
	e.emit(ctx, model.Event{Kind: model.EvGiveawayResolved, Timestamp: now, Giveaway: &snapshot})

	e.fanoutToSubscribers(ctx, caller, now, model.Message{Kind: model.MsgGiveawayUpdated, Giveaway: &snapshot})
	return winner.Participant, nil
}
