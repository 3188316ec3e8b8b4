package state

import (
	"context"
	"errors"
	"strconv"

	"patron/internal/model"
)

// RecordDonation appends an immutable donation record under the next
// chain-local id and indexes it by recipient and by donor.
func (c *Chain) RecordDonation(ctx context.Context, rec model.DonationRecord) (uint64, error) {
	var counter uint64
	err := c.getJSON(ctx, keyDonationCounter, &counter)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return 0, err
	}

	counter++
	if err := c.putJSON(ctx, keyDonationCounter, counter); err != nil {
		return 0, err
	}

	rec.ID = counter
	id := strconv.FormatUint(counter, 10)
	if err := c.putJSON(ctx, prefixDonation+id, rec); err != nil {
		return 0, err
	}
	if err := c.addID(ctx, idxDonationsByRecipient+rec.To.Hex(), id); err != nil {
		return 0, err
	}
	if err := c.addID(ctx, idxDonationsByDonor+rec.From.Hex(), id); err != nil {
		return 0, err
	}

	return counter, nil
}

func (c *Chain) listDonations(ctx context.Context, indexKey string) ([]model.DonationRecord, error) {
	ids, err := c.ids(ctx, indexKey)
	if err != nil {
		return nil, err
	}

	records := make([]model.DonationRecord, 0, len(ids))
	for _, id := range ids {
		var rec model.DonationRecord
		err := c.getJSON(ctx, prefixDonation+id, &rec)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Chain) DonationsByRecipient(ctx context.Context, owner model.Owner) ([]model.DonationRecord, error) {
	return c.listDonations(ctx, idxDonationsByRecipient+owner.Hex())
}

func (c *Chain) DonationsByDonor(ctx context.Context, owner model.Owner) ([]model.DonationRecord, error) {
	return c.listDonations(ctx, idxDonationsByDonor+owner.Hex())
}
