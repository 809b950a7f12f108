package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/01moynul/modelshop/internal/blob"
	"github.com/01moynul/modelshop/internal/catalog"
	"github.com/01moynul/modelshop/internal/metrics"
	"github.com/01moynul/modelshop/internal/models"
	"github.com/01moynul/modelshop/internal/store"
	"github.com/01moynul/modelshop/internal/users"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   store.Store
	mem     *store.Memory
	catalog *catalog.Catalog
	users   *users.Directory
	blobs   *blob.Memory
	events  *recordingPublisher
	status  *memoryStatus
	idem    *memoryIdempotency
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	f := &fixture{
		store:   mem,
		mem:     mem,
		blobs:   blob.NewMemory(),
		events:  &recordingPublisher{},
		status:  &memoryStatus{entries: map[string]models.OrderStatus{}},
		idem:    &memoryIdempotency{keys: map[string]string{}},
		metrics: metrics.New("test"),
	}
	f.catalog = catalog.New(mem, f.blobs, catalog.Options{}, nil)
	f.users = users.New(mem)
	return f
}

// service builds a Service over st, which defaults to the fixture store.
func (f *fixture) service(opts Options, st store.Store, blobs blob.Store) *Service {
	if st == nil {
		st = f.store
	}
	if blobs == nil {
		blobs = f.blobs
	}
	return NewService(Deps{
		Store:       st,
		Products:    catalog.New(st, blobs, catalog.Options{}, nil),
		Users:       users.New(st),
		Blobs:       blobs,
		Events:      f.events,
		Status:      f.status,
		Idempotency: f.idem,
		Metrics:     f.metrics,
	}, opts)
}

func (f *fixture) product(t *testing.T, name, price string, qty int) string {
	t.Helper()
	p, err := f.catalog.Create(context.Background(), catalog.NewProduct{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	})
	require.NoError(t, err)
	return p.ProductID
}

var homeAddress = models.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}

// user registers a user, with the home address when withAddress is set.
func (f *fixture) user(t *testing.T, email string, withAddress bool) string {
	t.Helper()
	u, err := f.users.Register(context.Background(), users.Registration{Email: email, Name: "Ada", Password: "password123"})
	require.NoError(t, err)
	if withAddress {
		_, err = f.users.SetAddress(context.Background(), u.UserID, homeAddress)
		require.NoError(t, err)
	}
	return u.UserID
}

func (f *fixture) quantity(t *testing.T, productID string) int {
	t.Helper()
	p, err := f.catalog.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) orderCount(t *testing.T) int {
	t.Helper()
	docs, err := f.mem.List(context.Background(), store.Orders)
	require.NoError(t, err)
	return len(docs)
}

func request(userID string, items ...ItemInput) CreateRequest {
	return CreateRequest{UserID: userID, Items: EncodeItems(items...)}
}

type published struct {
	Type    string
	Key     string
	Payload any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{Type: eventType, Key: key, Payload: payload})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type memoryStatus struct {
	mu      sync.Mutex
	entries map[string]models.OrderStatus
	reads   int
}

func (m *memoryStatus) Set(_ context.Context, id string, st models.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = st
	return nil
}

func (m *memoryStatus) Get(_ context.Context, id string) (models.OrderStatus, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	st, ok := m.entries[id]
	return st, ok, nil
}

func (m *memoryStatus) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

func (m *memoryIdempotency) Lookup(_ context.Context, userID, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[userID+"/"+key]
	return id, ok, nil
}

func (m *memoryIdempotency) Remember(_ context.Context, userID, key, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[userID+"/"+key]; !ok {
		m.keys[userID+"/"+key] = orderID
	}
	return nil
}

// countingStore counts writes so tests can assert none happened.
type countingStore struct {
	store.Store
	mu     sync.Mutex
	writes int
}

func (c *countingStore) count() {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
}

func (c *countingStore) Create(ctx context.Context, coll store.Collection, doc store.Document) (store.Document, error) {
	c.count()
	return c.Store.Create(ctx, coll, doc)
}

func (c *countingStore) Update(ctx context.Context, coll store.Collection, id string, fields store.Document) (store.Document, error) {
	c.count()
	return c.Store.Update(ctx, coll, id, fields)
}

func (c *countingStore) UpdateIf(ctx context.Context, coll store.Collection, id string, fields store.Document, cond store.Condition) (store.Document, error) {
	c.count()
	return c.Store.UpdateIf(ctx, coll, id, fields, cond)
}

func (c *countingStore) Delete(ctx context.Context, coll store.Collection, id string) (store.Document, error) {
	c.count()
	return c.Store.Delete(ctx, coll, id)
}

func (c *countingStore) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// failingCommit refuses order writes.
type failingCommit struct {
	store.Store
	err error
}

func (f failingCommit) Create(ctx context.Context, coll store.Collection, doc store.Document) (store.Document, error) {
	if coll == store.Orders {
		return nil, f.err
	}
	return f.Store.Create(ctx, coll, doc)
}

// barrierStore holds the first n product writes until all n have
// arrived, forcing concurrent orders to interleave between their stock
// check and their stock write.
type barrierStore struct {
	store.Store
	mu      sync.Mutex
	n       int
	arrived int
	release chan struct{}
}

func newBarrierStore(inner store.Store, n int) *barrierStore {
	return &barrierStore{Store: inner, n: n, release: make(chan struct{})}
}

func (b *barrierStore) hold(coll store.Collection) {
	if coll != store.Products {
		return
	}
	b.mu.Lock()
	if b.arrived >= b.n {
		b.mu.Unlock()
		return
	}
	b.arrived++
	if b.arrived == b.n {
		close(b.release)
	}
	b.mu.Unlock()

	select {
	case <-b.release:
	case <-time.After(5 * time.Second):
	}
}

func (b *barrierStore) Update(ctx context.Context, coll store.Collection, id string, fields store.Document) (store.Document, error) {
	b.hold(coll)
	return b.Store.Update(ctx, coll, id, fields)
}

func (b *barrierStore) UpdateIf(ctx context.Context, coll store.Collection, id string, fields store.Document, cond store.Condition) (store.Document, error) {
	b.hold(coll)
	return b.Store.UpdateIf(ctx, coll, id, fields, cond)
}
