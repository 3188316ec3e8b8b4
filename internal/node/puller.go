package node

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"

	"patron/internal/core"
	"patron/internal/model"
)

// eventsPage mirrors the peer events endpoint's response data.
type eventsPage struct {
	ChainID   string        `json:"chain_id"`
	Stream    string        `json:"stream"`
	From      uint64        `json:"from"`
	Events    []model.Event `json:"events"`
	NextIndex uint64        `json:"next_index"`
}

// Puller periodically fetches new entries of every followed stream from
// the owning peer, lands them in the local event table and replays them
// through the executor.
type Puller struct {
	logs     *zap.SugaredLogger
	runtime  *Runtime
	exec     *core.Executor
	interval time.Duration
}

func NewPuller(logger *zap.SugaredLogger, runtime *Runtime, exec *core.Executor, interval time.Duration) *Puller {
	return &Puller{
		logs:     logger,
		runtime:  runtime,
		exec:     exec,
		interval: interval,
	}
}

// Run blocks until the context is cancelled.
func (p *Puller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pullOnce(ctx)
		}
	}
}

func (p *Puller) pullOnce(ctx context.Context) {
	var cursors []StreamCursor
	err := p.runtime.db.WithContext(ctx).Find(&cursors).Error
	if err != nil {
		p.logs.Errorw("cursor scan failed", "error", err)
		return
	}

	for _, cursor := range cursors {
		if model.ChainID(cursor.ChainID) == p.runtime.chainID {
			continue
		}
		if err := p.pullStream(ctx, cursor); err != nil {
			p.logs.Errorw("stream pull failed",
				"chain", cursor.ChainID, "stream", cursor.Stream, "from", cursor.Next, "error", err)
		}
	}
}

func (p *Puller) pullStream(ctx context.Context, cursor StreamCursor) error {
	source := model.ChainID(cursor.ChainID)
	baseURL, ok := p.runtime.peers[source]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPeer, source)
	}

	url := fmt.Sprintf("%s/peer/events?stream=%s&from=%d", baseURL, cursor.Stream, cursor.Next)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	token, err := p.runtime.MeshToken()
	if err != nil {
		return fmt.Errorf("mesh token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.runtime.client.Do(req)
	if err != nil {
		return fmt.Errorf("get events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("peer %s returned %s: %s", source, resp.Status, raw)
	}

	var envelope struct {
		Data eventsPage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode events page: %w", err)
	}

	page := envelope.Data
	if len(page.Events) == 0 {
		return nil
	}

	for i, ev := range page.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		row := StreamEvent{
			ChainID: cursor.ChainID,
			Stream:  cursor.Stream,
			Idx:     cursor.Next + uint64(i),
			Payload: payload,
		}
		err = p.runtime.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error
		if err != nil {
			return fmt.Errorf("store event %d: %w", row.Idx, err)
		}
	}

	next := cursor.Next + uint64(len(page.Events))
	p.exec.ProcessStreams(ctx, []core.StreamUpdate{{
		Chain:         source,
		Stream:        cursor.Stream,
		PreviousIndex: cursor.Next,
		NextIndex:     next,
	}})

	err = p.runtime.db.WithContext(ctx).Model(&StreamCursor{}).
		Where("chain_id = ? AND stream = ?", cursor.ChainID, cursor.Stream).
		Update("next", next).Error
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}

	p.logs.Infow("stream replayed", "chain", cursor.ChainID, "stream", cursor.Stream, "from", cursor.Next, "to", next)
	return nil
}
