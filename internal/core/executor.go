// Package core is the operation executor: it validates locally-submitted
// actions, mutates the chain state, appends domain events, and decides
// which remote chains must hear about it. It also re-applies inbound
// messages and replayed events from other chains.
package core

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"patron/internal/model"
	"patron/internal/state"
)

// ErrExpiredAccess gates subscriber-only interactions: the caller has no
// currently-valid content subscription for the author.
var ErrExpiredAccess = errors.New("subscription expired or missing")

type Executor struct {
	logs    *zap.SugaredLogger
	state   *state.Chain
	runtime Runtime
}

func NewExecutor(logger *zap.SugaredLogger, chainState *state.Chain, runtime Runtime) *Executor {
	return &Executor{
		logs:    logger,
		state:   chainState,
		runtime: runtime,
	}
}

// State exposes the chain state for read-only queries.
func (e *Executor) State() *state.Chain {
	return e.state
}

// routeToChain delivers a message to a destination chain. A self-addressed
// message is handled inline instead of crossing the wire; the hub buying
// from itself is the common case.
func (e *Executor) routeToChain(ctx context.Context, dest model.ChainID, msg model.Message) {
	if dest == e.runtime.ChainID() {
		if err := e.HandleMessage(ctx, dest, msg); err != nil {
			e.logs.Errorw("self-addressed message failed", "kind", msg.Kind, "error", err)
		}
		return
	}
	if err := e.runtime.SendMessage(ctx, dest, msg); err != nil {
		// Fire-and-forget: the protocol tolerates loss, so a send failure
		// is logged, never surfaced.
		e.logs.Errorw("message send failed", "kind", msg.Kind, "dest", dest, "error", err)
	}
}

func (e *Executor) emit(ctx context.Context, ev model.Event) {
	if err := e.runtime.EmitEvent(ctx, model.StreamName, ev); err != nil {
		e.logs.Errorw("event emit failed", "kind", ev.Kind, "error", err)
	}
}

// hubChainFor returns the hub edge for an owner, or "" when the owner
// never registered or the hub is this very chain.
func (e *Executor) hubChainFor(ctx context.Context, owner model.Owner) model.ChainID {
	hub, err := e.state.HubEdge(ctx, owner)
	if err != nil {
		return ""
	}
	if hub == e.runtime.ChainID() {
		return ""
	}
	return hub
}

// Transfer moves value to a target account and records the donation on
// this chain; a cross-chain target additionally gets a value notification
// so both sides hold the record.
func (e *Executor) Transfer(ctx context.Context, caller model.Owner, op TransferOp) error {
	if op.Owner != caller {
		return fmt.Errorf("%w: caller does not own source account", state.ErrUnauthorized)
	}

	if err := e.runtime.Transfer(ctx, op.Owner, op.Target, op.Amount); err != nil {
		return fmt.Errorf("ledger transfer: %w", err)
	}

	ts := e.runtime.Now()
	current := e.runtime.ChainID()
	targetChain := op.Target.ChainID

	rec := model.DonationRecord{
		Timestamp: ts,
		From:      op.Owner,
		To:        op.Target.Owner,
		Amount:    op.Amount,
		Message:   op.Text,
		ToChainID: &targetChain,
	}
	if targetChain != current {
		source := current
		rec.SourceChainID = &source

		e.routeToChain(ctx, targetChain, model.Message{
			Kind: model.MsgTransferWithMessage,
			Transfer: &model.TransferNotice{
				Owner:       op.Target.Owner,
				Amount:      op.Amount,
				Text:        op.Text,
				SourceChain: current,
				SourceOwner: op.Owner,
			},
		})
	}

	id, err := e.state.RecordDonation(ctx, rec)
	if err != nil {
		return fmt.Errorf("record donation: %w", err)
	}
	rec.ID = id
	e.emit(ctx, model.Event{Kind: model.EvDonationSent, Timestamp: ts, Donation: &rec})

	return nil
}

// Withdraw drains the caller's full balance back into the chain pool.
func (e *Executor) Withdraw(ctx context.Context, caller model.Owner) error {
	balance, err := e.runtime.OwnerBalance(ctx, caller)
	if err != nil {
		return fmt.Errorf("owner balance: %w", err)
	}
	if balance.Sign() == 0 {
		return nil
	}

	pool := model.Account{ChainID: e.runtime.ChainID(), Owner: model.PoolOwner}
	if err := e.runtime.Transfer(ctx, caller, pool, balance); err != nil {
		return fmt.Errorf("ledger transfer: %w", err)
	}
	return nil
}

// Mint credits an account from the chain pool.
func (e *Executor) Mint(ctx context.Context, owner model.Owner, amount model.Amount) error {
	target := model.Account{ChainID: e.runtime.ChainID(), Owner: owner}
	if err := e.runtime.Transfer(ctx, model.PoolOwner, target, amount); err != nil {
		return fmt.Errorf("ledger transfer: %w", err)
	}
	return nil
}

// applyProfile runs the field-level merge and emits one event per touched
// field.
func (e *Executor) applyProfile(ctx context.Context, owner model.Owner, op UpdateProfileOp) error {
	ts := e.runtime.Now()

	if op.Name != nil {
		if err := e.state.SetName(ctx, owner, *op.Name); err != nil {
			return fmt.Errorf("set name: %w", err)
		}
		e.emit(ctx, model.Event{Kind: model.EvProfileNameUpdated, Timestamp: ts,
			Profile: &model.ProfileFieldUpdate{Owner: owner, Name: *op.Name}})
	}
	if op.Bio != nil {
		if err := e.state.SetBio(ctx, owner, *op.Bio); err != nil {
			return fmt.Errorf("set bio: %w", err)
		}
		e.emit(ctx, model.Event{Kind: model.EvProfileBioUpdated, Timestamp: ts,
			Profile: &model.ProfileFieldUpdate{Owner: owner, Bio: *op.Bio}})
	}
	for _, social := range op.Socials {
		if err := e.state.SetSocial(ctx, owner, social.Name, social.URL); err != nil {
			return fmt.Errorf("set social: %w", err)
		}
		e.emit(ctx, model.Event{Kind: model.EvProfileSocialUpdated, Timestamp: ts,
			Profile: &model.ProfileFieldUpdate{Owner: owner, Name: social.Name, URL: social.URL}})
	}
	if op.AvatarHash != nil {
		if err := e.state.SetAvatar(ctx, owner, *op.AvatarHash); err != nil {
			return fmt.Errorf("set avatar: %w", err)
		}
		e.emit(ctx, model.Event{Kind: model.EvProfileAvatarUpdated, Timestamp: ts,
			Profile: &model.ProfileFieldUpdate{Owner: owner, Hash: *op.AvatarHash}})
	}
	if op.HeaderHash != nil {
		if err := e.state.SetHeader(ctx, owner, *op.HeaderHash); err != nil {
			return fmt.Errorf("set header: %w", err)
		}
		e.emit(ctx, model.Event{Kind: model.EvProfileHeaderUpdated, Timestamp: ts,
			Profile: &model.ProfileFieldUpdate{Owner: owner, Hash: *op.HeaderHash}})
	}

	return nil
}

func (e *Executor) UpdateProfile(ctx context.Context, caller model.Owner, op UpdateProfileOp) error {
	return e.applyProfile(ctx, caller, op)
}

func (e *Executor) SetAvatar(ctx context.Context, caller model.Owner, hash string) error {
	return e.applyProfile(ctx, caller, UpdateProfileOp{AvatarHash: &hash})
}

func (e *Executor) SetHeader(ctx context.Context, caller model.Owner, hash string) error {
	return e.applyProfile(ctx, caller, UpdateProfileOp{HeaderHash: &hash})
}

// Register introduces this chain's owner to the hub: the hub subscribes to
// our stream in response, which is how it discovers and mirrors satellite
// history. The call is repeatable; re-registering just re-sends the
// message and re-writes the edge.
func (e *Executor) Register(ctx context.Context, caller model.Owner, op RegisterOp) error {
	e.routeToChain(ctx, op.MainChain, model.Message{
		Kind: model.MsgRegister,
		Register: &model.RegisterNotice{
			SourceChain: e.runtime.ChainID(),
			Owner:       caller,
			Name:        op.Profile.Name,
			Bio:         op.Profile.Bio,
			Socials:     op.Profile.Socials,
		},
	})

	if err := e.state.SetHubEdge(ctx, caller, op.MainChain); err != nil {
		return fmt.Errorf("set hub edge: %w", err)
	}

	return e.applyProfile(ctx, caller, op.Profile)
}

// TotalReceived sums all donations received by an owner.
func (e *Executor) TotalReceived(ctx context.Context, owner model.Owner) (model.Amount, error) {
	records, err := e.state.DonationsByRecipient(ctx, owner)
	if err != nil {
		return nil, err
	}
	return sumDonations(records), nil
}

// TotalSent sums all donations sent by an owner.
func (e *Executor) TotalSent(ctx context.Context, owner model.Owner) (model.Amount, error) {
	records, err := e.state.DonationsByDonor(ctx, owner)
	if err != nil {
		return nil, err
	}
	return sumDonations(records), nil
}

func sumDonations(records []model.DonationRecord) model.Amount {
	total := new(big.Int)
	for _, rec := range records {
		if rec.Amount != nil {
			total.Add(total, rec.Amount)
		}
	}
	return total
}
