// cartservice/cartstore/cartstore.go

// Package cartstore holds the in-memory shopping cart and keeps it synchronized
// with a key-value persistence layer.
//
// A CartStore is hydrated once when opened. Every mutation is applied to memory
// as one transition, published to subscribers and then written to storage in the
// background. Writes are serialized in mutation order and always carry the cart
// the mutation produced.
package cartstore

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// StorageKey is the key the cart is persisted under.
const StorageKey = "GoMarketplace:Products"

// Storage is the part of the key-value collaborator the store needs.
// kvstore.IKVStore satisfies it.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Subscriber receives every published cart snapshot. It must not mutate the
// store synchronously.
type Subscriber func(items []LineItem)

// Option configures a CartStore.
type Option func(*CartStore)

// WithLogger sets the logger. The default discards output.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *CartStore) { s.log = log }
}

// WithKey overrides StorageKey.
func WithKey(key string) Option {
	return func(s *CartStore) { s.key = key }
}

// WithWriteTimeout bounds each background write. Zero means no bound.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *CartStore) { s.writeTimeout = d }
}

// WithSubscriber registers fn before hydration so it sees the hydrated cart.
func WithSubscriber(fn Subscriber) Option {
	return func(s *CartStore) { s.subscribers[uuid.NewString()] = fn }
}

// CartStore owns the canonical cart.
type CartStore struct {
	storage      Storage
	log          logrus.FieldLogger
	key          string
	writeTimeout time.Duration

	mu       sync.Mutex
	items    []LineItem
	hydrated bool

	// notifyMu is taken before mu is released so snapshots reach subscribers in mutation order.
	notifyMu sync.Mutex

	subMu       sync.RWMutex
	subscribers map[string]Subscriber

	writer *writer
}

// Open builds a store over storage and hydrates it before returning.
func Open(ctx context.Context, storage Storage, opts ...Option) *CartStore {
	discard := logrus.New()
	discard.Out = io.Discard

	s := &CartStore{
		storage:     storage,
		log:         discard,
		key:         StorageKey,
		items:       []LineItem{},
		subscribers: make(map[string]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "cartstore")

	s.hydrate(ctx)
	s.writer = newWriter(storage, s.key, s.writeTimeout, s.log)
	return s
}

func (s *CartStore) hydrate(ctx context.Context) {
	items := []LineItem{}

	blob, ok, err := s.storage.Get(ctx, s.key)
	switch {
	case err != nil:
		s.log.WithError(err).WithField("key", s.key).Warn("reading persisted cart failed, starting empty")
	case !ok:
		s.log.WithField("key", s.key).Debug("no persisted cart")
	default:
		decoded, err := Decode(blob)
		if err != nil {
			s.log.WithError(err).WithField("key", s.key).Warn("persisted cart is corrupt, starting empty")
			break
		}
		items = decoded
	}

	s.mu.Lock()
	s.items = items
	s.hydrated = true
	snapshot := clone(items)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	s.log.WithField("items", len(snapshot)).Info("cart hydrated")
	s.publish(snapshot)
}

// Hydrated reports whether the initial load completed.
func (s *CartStore) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Products returns a copy of the current cart.
func (s *CartStore) Products() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

// Len returns the number of distinct line items.
func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Quantity returns the quantity held for id.
func (s *CartStore) Quantity(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i].Quantity, true
	}
	return 0, false
}

// AddToCart bumps the quantity of an item already in the cart, or prepends p
// with quantity 1. A product without an id or with a negative price is ignored.
func (s *CartStore) AddToCart(p Product) {
	if p.ID == "" {
		s.log.Warn("AddToCart: ignoring product without id")
		return
	}
	if p.Price < 0 {
		s.log.WithField("product_id", p.ID).Warn("AddToCart: ignoring product with negative price")
		return
	}
	s.apply("AddToCart", p.ID, func(items []LineItem) ([]LineItem, bool) {
		if i := indexOf(items, p.ID); i >= 0 {
			items[i].Quantity++
			return items, true
		}
		return append([]LineItem{p.lineItem(1)}, items...), true
	})
}

// Increment adds one to the quantity of id. Unknown ids are ignored.
func (s *CartStore) Increment(id string) {
	s.apply("Increment", id, func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, id)
		if i < 0 {
			return items, false
		}
		items[i].Quantity++
		return items, true
	})
}

// Decrement subtracts one from the quantity of id, removing the item when it
// would reach zero. Unknown ids are ignored.
func (s *CartStore) Decrement(id string) {
	s.apply("Decrement", id, func(items []LineItem) ([]LineItem, bool) {
		i := indexOf(items, id)
		if i < 0 {
			return items, false
		}
		if items[i].Quantity <= 1 {
			return append(items[:i], items[i+1:]...), true
		}
		items[i].Quantity--
		return items, true
	})
}

// apply runs mutate against the live cart under the store lock. When mutate
// reports a change the new cart is queued for persistence and published.
func (s *CartStore) apply(op, id string, mutate func([]LineItem) ([]LineItem, bool)) {
	log := s.log.WithFields(logrus.Fields{"op": op, "product_id": id})

	s.mu.Lock()
	next, changed := mutate(s.items)
	if !changed {
		s.mu.Unlock()
		log.Debug("unknown product, nothing to do")
		return
	}
	s.items = next
	snapshot := clone(next)

	payload, err := Encode(snapshot)
	switch {
	case err != nil:
		log.WithError(err).Error("encoding cart failed, change kept in memory only")
	case !s.writer.enqueue(payload):
		log.Warn("store closed, change kept in memory only")
	}

	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	log.WithField("items", len(snapshot)).Debug("cart updated")
	s.publish(snapshot)
}

// Subscribe registers fn for every future snapshot. The returned func removes it.
func (s *CartStore) Subscribe(fn Subscriber) (unsubscribe func()) {
	id := uuid.NewString()

	s.subMu.Lock()
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

// Watch calls fn with the current cart and then with every later snapshot,
// never repeating or reordering one. The returned func removes fn.
func (s *CartStore) Watch(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	snapshot := clone(s.items)
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	// Registered under notifyMu: earlier mutations have finished publishing and
	// later ones cannot publish before fn has seen snapshot.
	unsubscribe = s.Subscribe(fn)
	fn(snapshot)
	return unsubscribe
}

func (s *CartStore) publish(snapshot []LineItem) {
	s.subMu.RLock()
	subs := make([]Subscriber, 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(clone(snapshot))
	}
}

// Flush waits until every mutation made so far has been written (or has failed to write).
func (s *CartStore) Flush(ctx context.Context) error {
	return s.writer.flush(ctx)
}

// Close flushes pending writes and stops the background writer. Mutations after
// Close still update memory but are not persisted.
func (s *CartStore) Close(ctx context.Context) error {
	return s.writer.close(ctx)
}
