// Package node is the production chain runtime: the ledger, the event
// log, blob storage and the HTTP transport to peer chains, all backed by
// the same postgres connection as the chain state.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"patron/internal/core"
	"patron/internal/db"
	"patron/internal/model"
	"patron/pkg/jwt"
)

const peerTokenExpiration = 1 // hours

var ErrUnknownPeer error = errors.New("no configured peer for chain")

// Runtime implements core.Runtime against postgres and the peer mesh.
type Runtime struct {
	logs    *zap.SugaredLogger
	db      *gorm.DB
	chainID model.ChainID
	peers   map[model.ChainID]string
	client  *http.Client
	mesh    *jwt.JWTService
}

func NewRuntime(logger *zap.SugaredLogger, gormDB *gorm.DB, chainID model.ChainID, peers map[string]string, mesh *jwt.JWTService) *Runtime {
	peerURLs := make(map[model.ChainID]string, len(peers))
	for id, url := range peers {
		peerURLs[model.ChainID(id)] = url
	}
	return &Runtime{
		logs:    logger,
		db:      gormDB,
		chainID: chainID,
		peers:   peerURLs,
		client:  &http.Client{Timeout: 15 * time.Second},
		mesh:    mesh,
	}
}

func (r *Runtime) Migrate() error {
	err := r.db.AutoMigrate(&StreamEvent{}, &StreamCursor{}, &AccountRow{}, &BlobRow{})
	if err != nil {
		return fmt.Errorf("failed to migrate node tables: %w", err)
	}
	return nil
}

func (r *Runtime) ChainID() model.ChainID {
	return r.chainID
}

func (r *Runtime) Now() uint64 {
	return uint64(time.Now().UnixMicro())
}

// Transfer settles value between ledgers. A debit from the pool owner
// mints, a credit to the pool owner burns. A credit to a remote account
// is posted to the destination's peer credits endpoint inside the local
// transaction, so a rejected credit rolls the debit back.
func (r *Runtime) Transfer(ctx context.Context, from model.Owner, to model.Account, amount model.Amount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if from != model.PoolOwner {
			if err := adjustBalance(tx, from, new(big.Int).Neg(amount)); err != nil {
				return err
			}
		}
		if to.Owner == model.PoolOwner {
			return nil
		}
		if to.ChainID == r.chainID {
			return adjustBalance(tx, to.Owner, amount)
		}
		return r.sendCredit(ctx, to, amount)
	})
}

// Credit books value arriving from a peer chain onto the local ledger.
func (r *Runtime) Credit(ctx context.Context, owner model.Owner, amount model.Amount) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return adjustBalance(tx, owner, amount)
	})
}

// creditEnvelope mirrors the peer credits endpoint's request body.
type creditEnvelope struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

func (r *Runtime) sendCredit(ctx context.Context, to model.Account, amount model.Amount) error {
	body, err := json.Marshal(creditEnvelope{Owner: to.Owner.Hex(), Amount: amount.String()})
	if err != nil {
		return fmt.Errorf("marshal credit: %w", err)
	}
	return r.postPeer(ctx, to.ChainID, "/peer/credits", body)
}

func adjustBalance(tx *gorm.DB, owner model.Owner, delta model.Amount) error {
	var row AccountRow
	err := tx.Where("owner = ?", owner.Hex()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		row = AccountRow{Owner: owner.Hex(), Balance: "0"}
	} else if err != nil {
		return fmt.Errorf("read account %s: %w", owner.Hex(), err)
	}

	balance, ok := new(big.Int).SetString(row.Balance, 10)
	if !ok {
		return fmt.Errorf("corrupt balance %q for %s", row.Balance, owner.Hex())
	}
	balance.Add(balance, delta)
	if balance.Sign() < 0 {
		return fmt.Errorf("insufficient balance for %s", owner.Hex())
	}

	row.Balance = balance.String()
	err = tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write account %s: %w", owner.Hex(), err)
	}
	return nil
}

func (r *Runtime) OwnerBalance(ctx context.Context, owner model.Owner) (model.Amount, error) {
	var row AccountRow
	err := r.db.WithContext(ctx).Where("owner = ?", owner.Hex()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return new(big.Int), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read account %s: %w", owner.Hex(), err)
	}

	balance, ok := new(big.Int).SetString(row.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance %q for %s", row.Balance, owner.Hex())
	}
	return balance, nil
}

// SendMessage posts the envelope to the destination's peer endpoint,
// authenticated with a mesh token naming this chain as the sender.
func (r *Runtime) SendMessage(ctx context.Context, dest model.ChainID, msg model.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return r.postPeer(ctx, dest, "/peer/messages", body)
}

// postPeer delivers a signed JSON body to one of the destination chain's
// peer endpoints.
func (r *Runtime) postPeer(ctx context.Context, dest model.ChainID, path string, body []byte) error {
	baseURL, ok := r.peers[dest]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, dest)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := r.MeshToken()
	if err != nil {
		return fmt.Errorf("mesh token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to peer %s: %w", dest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("peer %s rejected %s: %s: %s", dest, path, resp.Status, raw)
	}
	return nil
}

// MeshToken issues a short-lived peer credential for outbound calls.
func (r *Runtime) MeshToken() (string, error) {
	token := r.mesh.Generate(jwt.TokenInfo{
		Subject:    string(r.chainID),
		Role:       "peer",
		Expiration: peerTokenExpiration,
	})
	return r.mesh.Sign(token)
}

// EmitEvent appends to this chain's own stream.
func (r *Runtime) EmitEvent(ctx context.Context, stream string, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&StreamEvent{}).
			Where("chain_id = ? AND stream = ?", string(r.chainID), stream).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("count stream events: %w", err)
		}

		row := StreamEvent{
			ChainID: string(r.chainID),
			Stream:  stream,
			Idx:     uint64(count),
			Payload: payload,
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("append stream event: %w", err)
		}
		return nil
	})
}

// SubscribeToEvents starts following a peer's stream from its beginning.
// Re-subscribing keeps the existing cursor.
func (r *Runtime) SubscribeToEvents(ctx context.Context, source model.ChainID, stream string) error {
	cursor := StreamCursor{ChainID: string(source), Stream: stream, Next: 0}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&cursor).Error
	if err != nil {
		return fmt.Errorf("create stream cursor: %w", err)
	}
	return nil
}

// ReadEvent reads from the local event table; followed streams are copied
// in by the puller before replay.
func (r *Runtime) ReadEvent(ctx context.Context, source model.ChainID, stream string, index uint64) (model.Event, error) {
	var row StreamEvent
	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND stream = ? AND idx = ?", string(source), stream, index).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Event{}, fmt.Errorf("%w: %s/%s[%d]", db.ErrNotFound, source, stream, index)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("read stream event: %w", err)
	}

	var ev model.Event
	if err := json.Unmarshal(row.Payload, &ev); err != nil {
		return model.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

// EventsRange returns [from, to) of a stream held locally; it backs the
// peer events endpoint and the read APIs.
func (r *Runtime) EventsRange(ctx context.Context, source model.ChainID, stream string, from, to uint64) ([]model.Event, error) {
	query := r.db.WithContext(ctx).
		Where("chain_id = ? AND stream = ? AND idx >= ?", string(source), stream, from).
		Order("idx asc")
	if to > from {
		query = query.Where("idx < ?", to)
	}

	var rows []StreamEvent
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("read stream range: %w", err)
	}

	events := make([]model.Event, 0, len(rows))
	for _, row := range rows {
		var ev model.Event
		if err := json.Unmarshal(row.Payload, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event %d: %w", row.Idx, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// StreamHead returns the next index of a locally held stream.
func (r *Runtime) StreamHead(ctx context.Context, source model.ChainID, stream string) (uint64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&StreamEvent{}).
		Where("chain_id = ? AND stream = ?", string(source), stream).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count stream events: %w", err)
	}
	return uint64(count), nil
}

func (r *Runtime) ReadBlob(ctx context.Context, hash string) ([]byte, error) {
	var row BlobRow
	err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: blob %s", db.ErrNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return row.Data, nil
}

// StoreBlob keeps content-addressed data; the caller supplies the hash.
func (r *Runtime) StoreBlob(ctx context.Context, hash string, data []byte) error {
	row := BlobRow{Hash: hash, Data: data}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("store blob: %w", err)
	}
	return nil
}

var _ core.Runtime = (*Runtime)(nil)
