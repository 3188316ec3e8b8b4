package core_test

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"patron/internal/core"
	"patron/internal/localnet"
	"patron/internal/model"
	"patron/internal/state"
)

const (
	mainChain = model.ChainID("main")
	chainA    = model.ChainID("chain-a")
	chainB    = model.ChainID("chain-b")
	chainC    = model.ChainID("chain-c")

	dayMicros = uint64(24 * 60 * 60 * 1_000_000)
	startTime = uint64(1_700_000_000_000_000)
)

var _ = Describe("Executor", func() {
	var (
		net  *localnet.Network
		hub  *localnet.Chain
		home *localnet.Chain
		peer *localnet.Chain
		ctx  context.Context

		alice model.Owner
		bob   model.Owner
		carol model.Owner
	)

	str := func(s string) *string { return &s }

	register := func(chain *localnet.Chain, owner model.Owner, name string) {
		err := chain.Executor().Register(ctx, owner, core.RegisterOp{
			MainChain: mainChain,
			Profile:   core.UpdateProfileOp{Name: str(name)},
		})
		Expect(err).NotTo(HaveOccurred())
	}

	BeforeEach(func() {
		net = localnet.NewNetwork(zap.NewNop().Sugar())
		hub = net.AddChain(mainChain, startTime)
		home = net.AddChain(chainA, startTime)
		peer = net.AddChain(chainB, startTime)
		ctx = context.Background()

		alice = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		bob = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
		carol = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")

		register(home, alice, "alice")
		register(peer, bob, "bob")
		Expect(net.Settle(ctx)).To(Succeed())
	})

	Describe("registration", func() {
		It("mirrors the profile and remembers the home chain on the hub", func() {
			profile, err := hub.State().GetProfile(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Name).To(Equal("alice"))

			edge, err := hub.State().HubEdge(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(edge).To(Equal(chainA))
		})

		It("is repeatable", func() {
			register(home, alice, "alice again")
			Expect(net.Settle(ctx)).To(Succeed())

			profile, err := hub.State().GetProfile(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Name).To(Equal("alice again"))
		})
	})

	Describe("donations", func() {
		BeforeEach(func() {
			peer.Fund(bob, big.NewInt(1_000))
		})

		It("records a cross-chain donation on both sides", func() {
			err := peer.Executor().Transfer(ctx, bob, core.TransferOp{
				Owner:  bob,
				Amount: big.NewInt(300),
				Target: model.Account{ChainID: chainA, Owner: alice},
				Text:   str("keep going"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())

			sent, err := peer.Executor().TotalSent(ctx, bob)
			Expect(err).NotTo(HaveOccurred())
			Expect(sent.Int64()).To(Equal(int64(300)))

			received, err := home.Executor().TotalReceived(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(received.Int64()).To(Equal(int64(300)))

			records, err := home.State().DonationsByRecipient(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(*records[0].Message).To(Equal("keep going"))

			balance, err := home.OwnerBalance(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Int64()).To(Equal(int64(300)))
		})

		It("mints from the pool and withdraws back into it", func() {
			Expect(home.Executor().Mint(ctx, alice, big.NewInt(50))).To(Succeed())

			balance, err := home.OwnerBalance(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Int64()).To(Equal(int64(50)))

			Expect(home.Executor().Withdraw(ctx, alice)).To(Succeed())

			balance, err = home.OwnerBalance(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Sign()).To(BeZero())
		})

		It("rejects spending from someone else's account", func() {
			err := peer.Executor().Transfer(ctx, bob, core.TransferOp{
				Owner:  alice,
				Amount: big.NewInt(1),
				Target: model.Account{ChainID: chainA, Owner: alice},
			})
			Expect(err).To(MatchError(state.ErrUnauthorized))
		})
	})

	Describe("products", func() {
		var product model.Product

		BeforeEach(func() {
			var err error
			product, err = home.Executor().CreateProduct(ctx, alice, core.CreateProductOp{
				PublicData:  model.CustomFields{"title": "zine #1"},
				Price:       big.NewInt(250),
				PrivateData: model.CustomFields{"download": "https://a.example/zine1"},
				SuccessMsg:  str("enjoy!"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())
		})

		It("mirrors the catalog on the hub", func() {
			mirrored, err := hub.State().GetProduct(ctx, product.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mirrored.PublicData["title"]).To(Equal("zine #1"))
			Expect(mirrored.Author).To(Equal(alice))
			Expect(mirrored.AuthorChainID).To(Equal(chainA))
		})

		It("propagates updates and deletes to the hub", func() {
			err := home.Executor().UpdateProduct(ctx, alice, core.UpdateProductOp{
				ProductID: product.ID,
				Patch:     model.ProductPatch{Price: big.NewInt(300)},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())

			mirrored, err := hub.State().GetProduct(ctx, product.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mirrored.Price.Int64()).To(Equal(int64(300)))

			Expect(home.Executor().DeleteProduct(ctx, alice, product.ID)).To(Succeed())
			Expect(net.Settle(ctx)).To(Succeed())

			_, err = hub.State().GetProduct(ctx, product.ID)
			Expect(err).To(MatchError(state.ErrNotFound))
		})

		It("settles a cross-chain purchase with identical order data everywhere", func() {
			peer.Fund(bob, big.NewInt(1_000))
			orderData := model.OrderResponses{"email": "bob@example.com"}

			purchaseID, err := peer.Executor().BuyProduct(ctx, bob, core.BuyProductOp{
				Owner:     bob,
				ProductID: product.ID,
				Amount:    big.NewInt(250),
				Target:    model.Account{ChainID: chainA, Owner: alice},
				OrderData: orderData,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())

			// buyer chain got the full product, private data included
			bought, err := peer.State().GetPurchase(ctx, purchaseID)
			Expect(err).NotTo(HaveOccurred())
			Expect(bought.Product.PrivateData["download"]).To(Equal("https://a.example/zine1"))
			Expect(bought.OrderData).To(Equal(orderData))

			// hub kept its own record with the same order data
			hubRec, err := hub.State().GetPurchase(ctx, purchaseID)
			Expect(err).NotTo(HaveOccurred())
			Expect(hubRec.OrderData).To(Equal(orderData))
			Expect(hubRec.Amount.Int64()).To(Equal(int64(250)))

			// seller chain saw the order
			orders, err := home.State().PurchasesBySeller(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(orders).To(HaveLen(1))
			Expect(orders[0].OrderData).To(Equal(orderData))

			// and the seller got paid
			balance, err := home.OwnerBalance(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Int64()).To(Equal(int64(250)))
		})

		It("drops a purchase paying the wrong amount at the hub", func() {
			peer.Fund(bob, big.NewInt(1_000))

			purchaseID, err := peer.Executor().BuyProduct(ctx, bob, core.BuyProductOp{
				Owner:     bob,
				ProductID: product.ID,
				Amount:    big.NewInt(10),
				Target:    model.Account{ChainID: chainA, Owner: alice},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())

			_, err = hub.State().GetPurchase(ctx, purchaseID)
			Expect(err).To(MatchError(state.ErrNotFound))

			// no product data ever reaches the underpaying buyer
			_, err = peer.State().GetPurchase(ctx, purchaseID)
			Expect(err).To(MatchError(state.ErrNotFound))
		})
	})

	Describe("subscriptions and the feed", func() {
		subscribe := func(chain *localnet.Chain, subscriber model.Owner) {
			_, err := chain.Executor().SubscribeToAuthor(ctx, subscriber, core.SubscribeToAuthorOp{
				Amount: big.NewInt(100),
				Target: model.Account{ChainID: chainA, Owner: alice},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())
		}

		BeforeEach(func() {
			peer.Fund(bob, big.NewInt(1_000))
			subscribe(peer, bob)
		})

		It("grants a 30 day window on the author's chain", func() {
			subs, err := home.State().SubscriptionsByAuthor(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(subs).To(HaveLen(1))
			Expect(subs[0].Subscriber).To(Equal(bob))
			Expect(subs[0].EndTimestamp - subs[0].StartTimestamp).To(Equal(model.SubscriptionDurationMicros))
		})

		It("delivers new posts to subscriber chains", func() {
			post, err := home.Executor().CreatePost(ctx, alice, core.CreatePostOp{
				Title:   "hello subscribers",
				Content: "first!",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())

			mirrored, err := peer.State().GetPost(ctx, post.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(mirrored.Title).To(Equal("hello subscribers"))
		})

		It("stops delivering and prunes the grant after the window lapses", func() {
			home.SetClock(startTime + 31*dayMicros)

			post, err := home.Executor().CreatePost(ctx, alice, core.CreatePostOp{
				Title:   "too late",
				Content: "window is closed",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(net.Settle(ctx)).To(Succeed())

			_, err = peer.State().GetPost(ctx, post.ID)
			Expect(err).To(MatchError(state.ErrNotFound))

			subs, err := home.State().SubscriptionsByAuthor(ctx, alice)
			Expect(err).NotTo(HaveOccurred())
			Expect(subs).To(BeEmpty())
		})

		Describe("polls", func() {
			var pollPost model.Post
			var third *localnet.Chain

			BeforeEach(func() {
				third = net.AddChain(chainC, startTime)
				register(third, carol, "carol")
				third.Fund(carol, big.NewInt(1_000))
				Expect(net.Settle(ctx)).To(Succeed())
				subscribe(third, carol)

				var err error
				pollPost, err = home.Executor().CreatePost(ctx, alice, core.CreatePostOp{
					Title:   "pick one",
					Content: "red or blue?",
					Poll:    &core.PollInput{Options: []string{"red", "blue"}},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(net.Settle(ctx)).To(Succeed())
			})

			It("routes votes to the author chain and converges every mirror", func() {
				err := peer.Executor().CastVote(ctx, bob, core.CastVoteOp{PostID: pollPost.ID, Option: 1})
				Expect(err).NotTo(HaveOccurred())
				err = third.Executor().CastVote(ctx, carol, core.CastVoteOp{PostID: pollPost.ID, Option: 0})
				Expect(err).NotTo(HaveOccurred())
				Expect(net.Settle(ctx)).To(Succeed())

				authoritative, err := home.State().GetPost(ctx, pollPost.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(authoritative.Poll.Options[0].Votes).To(Equal(1))
				Expect(authoritative.Poll.Options[1].Votes).To(Equal(1))

				for _, chain := range []*localnet.Chain{peer, third} {
					mirrored, err := chain.State().GetPost(ctx, pollPost.ID)
					Expect(err).NotTo(HaveOccurred())
					Expect(mirrored.Poll.Options).To(Equal(authoritative.Poll.Options))
				}
			})

			It("keeps tallies stable when the same voter votes again", func() {
				err := peer.Executor().CastVote(ctx, bob, core.CastVoteOp{PostID: pollPost.ID, Option: 1})
				Expect(err).NotTo(HaveOccurred())
				Expect(net.Settle(ctx)).To(Succeed())
				err = peer.Executor().CastVote(ctx, bob, core.CastVoteOp{PostID: pollPost.ID, Option: 1})
				Expect(err).NotTo(HaveOccurred())
				Expect(net.Settle(ctx)).To(Succeed())

				authoritative, err := home.State().GetPost(ctx, pollPost.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(authoritative.Poll.Options[1].Votes).To(Equal(1))
			})
		})

		Describe("giveaways", func() {
			var giveawayPost model.Post

			BeforeEach(func() {
				home.Fund(alice, big.NewInt(10_000))

				var err error
				giveawayPost, err = home.Executor().CreatePost(ctx, alice, core.CreatePostOp{
					Title:    "win a zine",
					Content:  "join below",
					Giveaway: &core.GiveawayInput{Prize: big.NewInt(500)},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(net.Settle(ctx)).To(Succeed())
			})

			It("collects remote entries and pays the winner's home account", func() {
				err := peer.Executor().JoinGiveaway(ctx, bob, giveawayPost.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(net.Settle(ctx)).To(Succeed())

				winner, err := home.Executor().ResolveGiveaway(ctx, alice, giveawayPost.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(winner).To(Equal(bob))
				Expect(net.Settle(ctx)).To(Succeed())

				balance, err := peer.OwnerBalance(ctx, bob)
				Expect(err).NotTo(HaveOccurred())
				// 1000 funded - 100 subscription + 500 prize
				Expect(balance.Int64()).To(Equal(int64(1_400)))

				mirrored, err := peer.State().GetPost(ctx, giveawayPost.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(mirrored.Giveaway.Resolved).To(BeTrue())
				Expect(*mirrored.Giveaway.Winner).To(Equal(bob))
			})

			It("rejects resolving twice", func() {
				err := peer.Executor().JoinGiveaway(ctx, bob, giveawayPost.ID)
				Expect(err).NotTo(HaveOccurred())
				Expect(net.Settle(ctx)).To(Succeed())

				_, err = home.Executor().ResolveGiveaway(ctx, alice, giveawayPost.ID)
				Expect(err).NotTo(HaveOccurred())
				_, err = home.Executor().ResolveGiveaway(ctx, alice, giveawayPost.ID)
				Expect(err).To(MatchError(state.ErrGiveawayResolved))
			})
		})
	})
})
