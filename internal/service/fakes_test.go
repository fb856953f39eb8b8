package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/stakerise/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStakes struct {
	mu     sync.Mutex
	stakes map[string]map[int]domain.Stake
	err    error
}

func newMemStakes(stakes ...domain.Stake) *memStakes {
	m := &memStakes{stakes: make(map[string]map[int]domain.Stake)}
	for _, st := range stakes {
		_ = m.Upsert(context.Background(), st)
	}
	return m
}

func (m *memStakes) Upsert(_ context.Context, st domain.Stake) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.stakes[st.Wallet] == nil {
		m.stakes[st.Wallet] = make(map[int]domain.Stake)
	}
	m.stakes[st.Wallet][st.Index] = st
	return nil
}

func (m *memStakes) UpsertBatch(ctx context.Context, stakes []domain.Stake) error {
	for _, st := range stakes {
		if err := m.Upsert(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (m *memStakes) Get(_ context.Context, wallet string, index int) (domain.Stake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.stakes[wallet][index]
	if !ok {
		return domain.Stake{}, domain.ErrNotFound
	}
	return st, nil
}

func (m *memStakes) ListByWallet(_ context.Context, wallet string) ([]domain.Stake, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.Stake{}
	for _, st := range m.stakes[wallet] {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

func (m *memStakes) ListWallets(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for w, stakes := range m.stakes {
		for _, st := range stakes {
			if st.Active() {
				out = append(out, w)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

type memActivity struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
}

func (m *memActivity) Log(_ context.Context, wallet, event string, detail map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, domain.ActivityEntry{
		ID:        int64(len(m.entries) + 1),
		Wallet:    wallet,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (m *memActivity) List(_ context.Context, wallet string, _ domain.ListOpts) ([]domain.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ActivityEntry{}
	for i := len(m.entries) - 1; i >= 0; i-- {
		if wallet == "" || m.entries[i].Wallet == wallet {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *memActivity) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.entries {
		out = append(out, e.Event)
	}
	return out
}

type memCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	gets    int
	sets    int
	failSet bool
}

func newMemCache() *memCache { return &memCache{values: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string, dst any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	raw, ok := c.values[key]
	if !ok {
		return domain.ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (c *memCache) Set(_ context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failSet {
		return errors.New("cache unavailable")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

type fakeLocks struct {
	held     bool
	acquired int
	released int
}

func (l *fakeLocks) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.acquired++
	return func() { l.released++ }, nil
}

type busMessage struct {
	channel string
	payload []byte
}

type fakeBus struct {
	mu        sync.Mutex
	published []busMessage
	streamed  []busMessage
}

func (b *fakeBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, busMessage{channel, payload})
	return nil
}

func (b *fakeBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return make(chan []byte), nil
}

func (b *fakeBus) StreamAppend(_ context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed = append(b.streamed, busMessage{stream, payload})
	return nil
}

func (b *fakeBus) StreamRead(context.Context, string, string, int) ([]domain.StreamMessage, error) {
	return nil, nil
}

type memBlob struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMemBlob() *memBlob {
	return &memBlob{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (b *memBlob) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = raw
	b.types[path] = contentType
	return nil
}

func (b *memBlob) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (b *memBlob) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.BlobInfo
	for p, raw := range b.objects {
		if strings.HasPrefix(p, prefix) {
			out = append(out, domain.BlobInfo{Path: p, Size: int64(len(raw)), ContentType: b.types[p]})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (b *memBlob) Exists(_ context.Context, path string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[path]
	return ok, nil
}

type fakeBalances map[domain.Asset]decimal.Decimal

func (f fakeBalances) Balance(_ context.Context, asset domain.Asset, _ common.Address) (decimal.Decimal, error) {
	bal, ok := f[asset]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return bal, nil
}
