package payload

import (
	"fmt"
	"math/big"

	"github.com/jellydator/validation"

	"patron/internal/model"
)

// amountRule accepts a non-negative base-10 integer string.
var amountRule = validation.By(func(value interface{}) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	parsed, ok := new(big.Int).SetString(raw, 10)
	if !ok || parsed.Sign() < 0 {
		return fmt.Errorf("must be a non-negative integer amount")
	}
	return nil
})

// ParseAmount converts a validated decimal string to a ledger amount.
func ParseAmount(raw string) (model.Amount, error) {
	parsed, ok := new(big.Int).SetString(raw, 10)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("malformed amount %q", raw)
	}
	return parsed, nil
}
