package payload_test

import (
	"bytes"
	"net/http/httptest"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"patron/internal/http/payload"
)

var _ = Describe("Payload validation", func() {

	str := func(s string) *string { return &s }

	Describe("AuthRequest", func() {
		valid := payload.AuthRequest{
			Address:   "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
			Message:   "login 1756...",
			Signature: "0xdeadbeef",
		}

		It("should accept a well-formed request", func() {
			Expect(valid.Validate()).To(Succeed())
		})

		It("should reject a malformed address", func() {
			request := valid
			request.Address = "0x123"
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should reject a non-hex signature", func() {
			request := valid
			request.Signature = "not-a-signature"
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should reject an empty challenge message", func() {
			request := valid
			request.Message = ""
			Expect(request.Validate()).To(HaveOccurred())
		})
	})

	Describe("TransferRequest", func() {
		valid := payload.TransferRequest{
			Amount:  "1500",
			ToChain: "chain-a",
			ToOwner: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		}

		It("should accept a well-formed request", func() {
			Expect(valid.Validate()).To(Succeed())
		})

		It("should reject a negative amount", func() {
			request := valid
			request.Amount = "-5"
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should reject a non-numeric amount", func() {
			request := valid
			request.Amount = "lots"
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should reject a missing destination chain", func() {
			request := valid
			request.ToChain = ""
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should convert to an operation with a parsed amount", func() {
			op, err := valid.ToOp(common.HexToAddress("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"))
			Expect(err).NotTo(HaveOccurred())
			Expect(op.Amount.Int64()).To(Equal(int64(1500)))
			Expect(string(op.Target.ChainID)).To(Equal("chain-a"))
		})
	})

	Describe("ProductRequest", func() {
		valid := payload.ProductRequest{
			PublicData: map[string]string{"title": "zine #1"},
			Price:      "250",
		}

		It("should accept a well-formed request", func() {
			Expect(valid.Validate()).To(Succeed())
		})

		It("should reject more than twenty public fields", func() {
			request := valid
			request.PublicData = map[string]string{}
			for i := 0; i < 21; i++ {
				request.PublicData[strings.Repeat("k", i+1)] = "v"
			}
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should reject an order form field with an unknown type", func() {
			request := valid
			request.OrderForm = []payload.OrderFormFieldRequest{
				{Key: "color", Label: "Pick a color", FieldType: "dropdown"},
			}
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should accept text, number and email field types", func() {
			request := valid
			request.OrderForm = []payload.OrderFormFieldRequest{
				{Key: "name", Label: "Your name", FieldType: "text", Required: true},
				{Key: "qty", Label: "How many", FieldType: "number"},
				{Key: "email", Label: "Where to send it", FieldType: "email", Required: true},
			}
			Expect(request.Validate()).To(Succeed())
		})
	})

	Describe("ProductUpdateRequest", func() {
		It("should leave omitted fields out of the patch", func() {
			request := payload.ProductUpdateRequest{Price: str("300")}

			patch, err := request.ToPatch()
			Expect(err).NotTo(HaveOccurred())
			Expect(patch.Price.String()).To(Equal("300"))
			Expect(patch.PublicData).To(BeNil())
			Expect(patch.PrivateData).To(BeNil())
			Expect(patch.SuccessMsg).To(BeNil())
		})

		It("should carry supplied field maps into the patch", func() {
			request := payload.ProductUpdateRequest{
				PublicData:  map[string]string{"title": "zine #2"},
				PrivateData: map[string]string{"download": "ipfs://..."},
			}

			patch, err := request.ToPatch()
			Expect(err).NotTo(HaveOccurred())
			Expect(patch.PublicData).NotTo(BeNil())
			Expect((*patch.PublicData)["title"]).To(Equal("zine #2"))
			Expect(patch.PrivateData).NotTo(BeNil())
			Expect((*patch.PrivateData)["download"]).To(Equal("ipfs://..."))
			Expect(patch.Price).To(BeNil())
		})

		It("should reject a malformed price", func() {
			request := payload.ProductUpdateRequest{Price: str("-5")}
			Expect(request.Validate()).To(HaveOccurred())
		})
	})

	Describe("MintRequest", func() {
		It("should accept a positive amount", func() {
			request := payload.MintRequest{Amount: "500"}
			Expect(request.Validate()).To(Succeed())

			amount, err := request.ToAmount()
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.String()).To(Equal("500"))
		})

		It("should reject a missing amount", func() {
			Expect(payload.MintRequest{}.Validate()).To(HaveOccurred())
		})

		It("should reject a non-numeric amount", func() {
			request := payload.MintRequest{Amount: "lots"}
			Expect(request.Validate()).To(HaveOccurred())
		})
	})

	Describe("PostRequest", func() {
		valid := payload.PostRequest{
			Title:   "hello",
			Content: "first post",
		}

		It("should accept a plain post", func() {
			Expect(valid.Validate()).To(Succeed())
		})

		It("should reject a poll with a single option", func() {
			request := valid
			request.Poll = &payload.PollRequest{Options: []string{"only one"}}
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should accept a poll with two options", func() {
			request := valid
			request.Poll = &payload.PollRequest{Options: []string{"red", "blue"}}
			Expect(request.Validate()).To(Succeed())
		})

		It("should reject a giveaway with a malformed prize", func() {
			request := valid
			request.Giveaway = &payload.GiveawayRequest{Prize: "a pony"}
			Expect(request.Validate()).To(HaveOccurred())
		})

		It("should reject a non-hex image hash", func() {
			request := valid
			request.ImageHash = str("zzzz")
			Expect(request.Validate()).To(HaveOccurred())
		})
	})

	Describe("ParseAmount", func() {
		It("should parse a large decimal", func() {
			amount, err := payload.ParseAmount("123456789012345678901234567890")
			Expect(err).NotTo(HaveOccurred())
			Expect(amount.String()).To(Equal("123456789012345678901234567890"))
		})

		It("should reject a negative value", func() {
			_, err := payload.ParseAmount("-1")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DecodeValidator", func() {
		var decoder payload.DecodeValidator

		It("should reject unknown fields", func() {
			body := bytes.NewBufferString(`{"amount":"10","to_chain_id":"c","to_owner":"0x71C7656EC7ab88b098defB751B7401B5f6d8976F","surprise":true}`)
			r := httptest.NewRequest("POST", "/patron/transfer", body)

			var request payload.TransferRequest
			Expect(decoder.DecodeAndValidateJSONPayload(r, &request)).To(HaveOccurred())
		})

		It("should decode and validate in one pass", func() {
			body := bytes.NewBufferString(`{"amount":"10","to_chain_id":"c","to_owner":"0x71C7656EC7ab88b098defB751B7401B5f6d8976F"}`)
			r := httptest.NewRequest("POST", "/patron/transfer", body)

			var request payload.TransferRequest
			Expect(decoder.DecodeAndValidateJSONPayload(r, &request)).To(Succeed())
		})
	})
})
