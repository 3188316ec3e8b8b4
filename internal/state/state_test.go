package state_test

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"patron/internal/db"
	"patron/internal/model"
	"patron/internal/state"
)

var _ = Describe("Chain", func() {
	var (
		chain *state.Chain
		ctx   context.Context

		alice model.Owner
		bob   model.Owner
		carol model.Owner
	)

	BeforeEach(func() {
		chain = state.NewChain(db.NewMemory())
		ctx = context.Background()

		alice = common.HexToAddress("0x1111111111111111111111111111111111111111")
		bob = common.HexToAddress("0x2222222222222222222222222222222222222222")
		carol = common.HexToAddress("0x3333333333333333333333333333333333333333")
	})

	Describe("profiles", func() {
		It("defaults the name to anon", func() {
			profile, err := chain.GetProfile(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Name).To(Equal(model.DefaultProfileName))
		})

		It("falls back to anon when the name is cleared", func() {
			Expect(chain.SetName(ctx, alice, "alice")).To(Succeed())
			Expect(chain.SetName(ctx, alice, "")).To(Succeed())

			profile, err := chain.GetProfile(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Name).To(Equal(model.DefaultProfileName))
		})

		It("upserts social links by name keeping order", func() {
			Expect(chain.SetSocial(ctx, alice, "x", "https://x.com/alice")).To(Succeed())
			Expect(chain.SetSocial(ctx, alice, "site", "https://alice.example")).To(Succeed())
			Expect(chain.SetSocial(ctx, alice, "x", "https://x.com/alice2")).To(Succeed())

			profile, err := chain.GetProfile(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Socials).To(HaveLen(2))
			Expect(profile.Socials[0].Name).To(Equal("x"))
			Expect(profile.Socials[0].URL).To(Equal("https://x.com/alice2"))
		})
	})

	Describe("donations", func() {
		It("assigns sequential ids and indexes both sides", func() {
			first, err := chain.RecordDonation(ctx, model.DonationRecord{From: alice, To: bob, Amount: big.NewInt(10)})
			Expect(err).NotTo(HaveOccurred())
			second, err := chain.RecordDonation(ctx, model.DonationRecord{From: alice, To: bob, Amount: big.NewInt(20)})
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first + 1))

			received, err := chain.DonationsByRecipient(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(received).To(HaveLen(2))

			sent, err := chain.DonationsByDonor(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(sent).To(HaveLen(2))
		})
	})

	Describe("products", func() {
		var product model.Product

		BeforeEach(func() {
			product = model.Product{
				ID:            "1000-chainA",
				Author:        alice,
				AuthorChainID: "chainA",
				PublicData:    model.CustomFields{"title": "zine"},
				Price:         big.NewInt(100),
				PrivateData:   model.CustomFields{"download": "https://example.com/zine.pdf"},
			}
		})

		It("rejects more than the allowed number of custom fields", func() {
			oversized := make(model.CustomFields)
			for i := 0; i <= model.MaxCustomFields; i++ {
				oversized[fmt.Sprintf("k%d", i)] = "v"
			}
			product.PublicData = oversized

			err := chain.CreateProduct(ctx, product)
			Expect(err).To(MatchError(state.ErrValidation))
		})

		It("refuses updates from anyone but the author", func() {
			Expect(chain.CreateProduct(ctx, product)).To(Succeed())

			err := chain.UpdateProduct(ctx, product.ID, bob, model.ProductPatch{Price: big.NewInt(1)})
			Expect(err).To(MatchError(state.ErrUnauthorized))
		})

		It("scrubs both indices on delete", func() {
			Expect(chain.CreateProduct(ctx, product)).To(Succeed())
			Expect(chain.DeleteProduct(ctx, product.ID, alice)).To(Succeed())

			_, err := chain.GetProduct(ctx, product.ID)
			Expect(err).To(MatchError(state.ErrNotFound))

			byAuthor, err := chain.ProductsByAuthor(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(byAuthor).To(BeEmpty())

			byChain, err := chain.ProductsByChain(ctx, "chainA")
			Expect(err).NotTo(HaveOccurred())
			Expect(byChain).To(BeEmpty())
		})

		It("does not duplicate index entries when a mirror is re-created", func() {
			Expect(chain.CreateProduct(ctx, product)).To(Succeed())
			Expect(chain.CreateProduct(ctx, product)).To(Succeed())

			byAuthor, err := chain.ProductsByAuthor(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(byAuthor).To(HaveLen(1))
		})
	})

	Describe("subscriptions", func() {
		var sub model.ContentSubscription

		BeforeEach(func() {
			sub = model.ContentSubscription{
				ID:              "sub-1",
				Subscriber:      bob,
				SubscriberChain: "chainB",
				Author:          alice,
				AuthorChain:     "chainA",
				StartTimestamp:  1_000,
				EndTimestamp:    1_000 + model.SubscriptionDurationMicros,
				Price:           big.NewInt(50),
			}
		})

		It("is valid until the end timestamp and stale after", func() {
			Expect(sub.ValidAt(sub.EndTimestamp)).To(BeTrue())
			Expect(sub.ValidAt(sub.EndTimestamp + 1)).To(BeFalse())
		})

		It("never expires for the author's own access", func() {
			own := sub
			own.Subscriber = alice
			Expect(own.ValidAt(sub.EndTimestamp + 1)).To(BeTrue())
		})

		It("removes the grant and its indices", func() {
			Expect(chain.CreateSubscription(ctx, sub)).To(Succeed())
			Expect(chain.RemoveSubscription(ctx, sub.ID, alice, bob)).To(Succeed())

			_, err := chain.GetSubscription(ctx, sub.ID)
			Expect(err).To(MatchError(state.ErrNotFound))

			byAuthor, err := chain.SubscriptionsByAuthor(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(byAuthor).To(BeEmpty())
		})

		It("lists grants by the author's chain", func() {
			Expect(chain.CreateSubscription(ctx, sub)).To(Succeed())
			other := sub
			other.ID = "sub-2"
			other.Subscriber = carol
			other.AuthorChain = "chainZ"
			Expect(chain.CreateSubscription(ctx, other)).To(Succeed())

			byChain, err := chain.SubscriptionsByChain(ctx, "chainA")
			Expect(err).NotTo(HaveOccurred())
			Expect(byChain).To(HaveLen(1))
			Expect(byChain[0].ID).To(Equal("sub-1"))
		})

		It("scrubs the chain index on removal", func() {
			kv := db.NewMemory()
			local := state.NewChain(kv)
			Expect(local.CreateSubscription(ctx, sub)).To(Succeed())
			Expect(local.RemoveSubscription(ctx, sub.ID, alice, bob)).To(Succeed())

			byChain, err := local.SubscriptionsByChain(ctx, "chainA")
			Expect(err).NotTo(HaveOccurred())
			Expect(byChain).To(BeEmpty())

			raw, err := kv.Get(ctx, "idx/subscriptions_by_chain/chainA")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal("[]"))
		})

		It("tolerates removing a grant it never held", func() {
			Expect(chain.RemoveSubscription(ctx, "sub-unknown", alice, bob)).To(Succeed())
		})

		It("filters stale grants from the active set", func() {
			Expect(chain.CreateSubscription(ctx, sub)).To(Succeed())

			active, err := chain.ActiveSubscriptions(ctx, alice, sub.EndTimestamp+1)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeEmpty())
		})
	})

	Describe("polls", func() {
		var post model.Post

		BeforeEach(func() {
			post = model.Post{
				ID:            "00000000abcd",
				Author:        alice,
				AuthorChainID: "chainA",
				Title:         "pick one",
				Poll: &model.Poll{
					Options: []model.PollOption{{Text: "red"}, {Text: "blue"}},
					Voters:  make(map[model.Owner]int),
				},
			}
			Expect(chain.CreatePost(ctx, post)).To(Succeed())
		})

		It("recomputes tallies from the voter map", func() {
			_, err := chain.CastVote(ctx, post.ID, bob, 0, 10)
			Expect(err).NotTo(HaveOccurred())
			updated, err := chain.CastVote(ctx, post.ID, carol, 1, 11)
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Poll.Options[0].Votes).To(Equal(1))
			Expect(updated.Poll.Options[1].Votes).To(Equal(1))
		})

		It("keeps the tally stable when the same vote is replayed", func() {
			_, err := chain.CastVote(ctx, post.ID, bob, 1, 10)
			Expect(err).NotTo(HaveOccurred())
			updated, err := chain.CastVote(ctx, post.ID, bob, 1, 20)
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Poll.Options[1].Votes).To(Equal(1))
		})

		It("lets a voter change their choice without inflating totals", func() {
			_, err := chain.CastVote(ctx, post.ID, bob, 0, 10)
			Expect(err).NotTo(HaveOccurred())
			updated, err := chain.CastVote(ctx, post.ID, bob, 1, 20)
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Poll.Options[0].Votes).To(Equal(0))
			Expect(updated.Poll.Options[1].Votes).To(Equal(1))
		})

		It("rejects votes after the poll ends", func() {
			post.ID = "00000000abce"
			post.Poll.EndTimestamp = 100
			Expect(chain.CreatePost(ctx, post)).To(Succeed())

			_, err := chain.CastVote(ctx, post.ID, bob, 0, 101)
			Expect(err).To(MatchError(state.ErrPollEnded))
		})

		It("rejects out-of-range options", func() {
			_, err := chain.CastVote(ctx, post.ID, bob, 5, 10)
			Expect(err).To(MatchError(state.ErrValidation))
		})
	})

	Describe("giveaways", func() {
		var post model.Post

		BeforeEach(func() {
			post = model.Post{
				ID:            "00000000beef",
				Author:        alice,
				AuthorChainID: "chainA",
				Title:         "win a zine",
				Giveaway: &model.Giveaway{
					Prize: big.NewInt(500),
				},
			}
			Expect(chain.CreatePost(ctx, post)).To(Succeed())
		})

		It("rejects a second entry by the same participant", func() {
			entry := model.GiveawayEntry{Participant: bob, Chain: "chainB", JoinedAt: 10}
			_, err := chain.JoinGiveaway(ctx, post.ID, entry, 10)
			Expect(err).NotTo(HaveOccurred())

			_, err = chain.JoinGiveaway(ctx, post.ID, entry, 11)
			Expect(err).To(MatchError(state.ErrAlreadyJoined))
		})

		It("derives the winner from time, post id and participant count", func() {
			_, err := chain.JoinGiveaway(ctx, post.ID, model.GiveawayEntry{Participant: bob, Chain: "chainB", JoinedAt: 10}, 10)
			Expect(err).NotTo(HaveOccurred())
			_, err = chain.JoinGiveaway(ctx, post.ID, model.GiveawayEntry{Participant: carol, Chain: "chainC", JoinedAt: 11}, 11)
			Expect(err).NotTo(HaveOccurred())

			now := uint64(1_000)
			expected := (now + uint64(len(post.ID)) + 2) % 2

			winner, resolved, err := chain.ResolveGiveaway(ctx, post.ID, alice, now)
			Expect(err).NotTo(HaveOccurred())
			Expect(resolved.Giveaway.Resolved).To(BeTrue())
			Expect(*resolved.Giveaway.Winner).To(Equal(resolved.Giveaway.Participants[expected].Participant))
			Expect(winner.Participant).To(Equal(resolved.Giveaway.Participants[expected].Participant))
		})

		It("cannot be resolved twice", func() {
			_, err := chain.JoinGiveaway(ctx, post.ID, model.GiveawayEntry{Participant: bob, Chain: "chainB", JoinedAt: 10}, 10)
			Expect(err).NotTo(HaveOccurred())

			_, _, err = chain.ResolveGiveaway(ctx, post.ID, alice, 100)
			Expect(err).NotTo(HaveOccurred())
			_, _, err = chain.ResolveGiveaway(ctx, post.ID, alice, 200)
			Expect(err).To(MatchError(state.ErrGiveawayResolved))
		})

		It("cannot be resolved without participants", func() {
			_, _, err := chain.ResolveGiveaway(ctx, post.ID, alice, 100)
			Expect(err).To(MatchError(state.ErrNoParticipants))
		})

		It("only the author may resolve", func() {
			_, _, err := chain.ResolveGiveaway(ctx, post.ID, bob, 100)
			Expect(err).To(MatchError(state.ErrUnauthorized))
		})
	})
})
