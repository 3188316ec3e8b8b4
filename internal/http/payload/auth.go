package payload

import (
	"regexp"

	"github.com/jellydator/validation"
)

var (
	addressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	hexRegex     = regexp.MustCompile(`^(0x)?[a-fA-F0-9]+$`)
)

// AuthRequest is a signed challenge: the caller proves control of the
// address by signing the message with its key.
type AuthRequest struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

func (a AuthRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Address, validation.Required, validation.Match(addressRegex)),
		validation.Field(&a.Message, validation.Required),
		validation.Field(&a.Signature, validation.Required, validation.Match(hexRegex)),
	)
}
