package jwt_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"patron/pkg/jwt"
)

var _ = Describe("JWTService", func() {
	var service *jwt.JWTService

	BeforeEach(func() {
		service = jwt.NewJWTService([]byte("test-secret"))
		jwt.TimeNow = time.Now
	})

	Describe("Generate and Validate", func() {
		It("should round-trip the subject and role claims", func() {
			token := service.Generate(jwt.TokenInfo{
				Subject:    "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
				Role:       "caller",
				Expiration: 24,
			})

			signed, err := service.Sign(token)
			Expect(err).NotTo(HaveOccurred())

			claims, err := service.Validate(signed)
			Expect(err).NotTo(HaveOccurred())
			Expect(claims["sub"]).To(Equal("0x71C7656EC7ab88b098defB751B7401B5f6d8976F"))
			Expect(claims["role"]).To(Equal("caller"))
		})

		It("should reject a token signed with a different secret", func() {
			other := jwt.NewJWTService([]byte("other-secret"))
			signed, err := other.Sign(other.Generate(jwt.TokenInfo{
				Subject:    "chain-a",
				Role:       "peer",
				Expiration: 1,
			}))
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Validate(signed)
			Expect(err).To(MatchError(jwt.ErrTokenNotValid))
		})

		It("should reject an expired token", func() {
			jwt.TimeNow = func() time.Time { return time.Now().Add(-48 * time.Hour) }
			signed, err := service.Sign(service.Generate(jwt.TokenInfo{
				Subject:    "chain-a",
				Role:       "peer",
				Expiration: 1,
			}))
			Expect(err).NotTo(HaveOccurred())

			jwt.TimeNow = time.Now
			_, err = service.Validate(signed)
			Expect(err).To(HaveOccurred())
		})

		It("should reject garbage input", func() {
			_, err := service.Validate("not.a.token")
			Expect(err).To(MatchError(jwt.ErrTokenNotValid))
		})
	})
})
