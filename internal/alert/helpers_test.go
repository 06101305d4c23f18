package alert

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mine-safety-bridge/internal/idgen"
	"mine-safety-bridge/internal/location"
	"mine-safety-bridge/internal/media"
	"mine-safety-bridge/internal/session"
	"mine-safety-bridge/internal/transport"
	"mine-safety-bridge/internal/types"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

// fakeTransport records every send attempt and fails when err is set
type fakeTransport struct {
	name     string
	method   types.DeliveryMethod
	err      error
	attempts int
	sent     []types.EmergencyRecord
}

func (f *fakeTransport) Name() string                 { return f.name }
func (f *fakeTransport) Method() types.DeliveryMethod { return f.method }

func (f *fakeTransport) Send(ctx context.Context, record *types.EmergencyRecord) error {
	f.attempts++
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *record)
	return nil
}

// selectiveTransport fails sends for a chosen set of emergency ids
type selectiveTransport struct {
	failIDs map[int64]bool
	sent    []int64
}

func (f *selectiveTransport) Name() string                 { return "online" }
func (f *selectiveTransport) Method() types.DeliveryMethod { return types.MethodOnline }

func (f *selectiveTransport) Send(ctx context.Context, record *types.EmergencyRecord) error {
	if f.failIDs[record.EmergencyID] {
		return fmt.Errorf("intake unreachable")
	}
	f.sent = append(f.sent, record.EmergencyID)
	return nil
}

// fakeQueue is an in-memory queue.Manager
type fakeQueue struct {
	mu         sync.Mutex
	nextID     int64
	entries    []types.OfflineEntry
	enqueueErr error
	removeErr  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, record types.EmergencyRecord, offlineMethod string) (*types.OfflineEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.enqueueErr != nil {
		return nil, q.enqueueErr
	}

	q.nextID++
	entry := types.OfflineEntry{
		ID:            q.nextID,
		Record:        record,
		OfflineMethod: offlineMethod,
		StoredAt:      time.Now().UTC(),
	}
	q.entries = append(q.entries, entry)
	return &entry, nil
}

func (q *fakeQueue) Pending(ctx context.Context) ([]types.OfflineEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]types.OfflineEntry, len(q.entries))
	copy(out, q.entries)
	return out, nil
}

func (q *fakeQueue) Remove(ctx context.Context, entryID int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.removeErr != nil {
		return q.removeErr
	}

	for i, entry := range q.entries {
		if entry.ID == entryID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("entry %d not found", entryID)
}

func (q *fakeQueue) Depth(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries), nil
}

type fakeOracle struct {
	online bool
}

func (o *fakeOracle) IsOnline() bool { return o.online }

// memCounterStore is an in-memory idgen.CounterStore
type memCounterStore struct {
	mu       sync.Mutex
	value    int64
	storeErr error
}

func (s *memCounterStore) GetCounter(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, nil
}

func (s *memCounterStore) IncrementCounter(key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return 0, s.storeErr
	}
	s.value++
	return s.value, nil
}

type fixedLocation struct {
	coords types.Coordinates
	denied bool
}

func (p *fixedLocation) PermissionGranted() bool { return !p.denied }

func (p *fixedLocation) Location(ctx context.Context) (types.Coordinates, error) {
	return p.coords, nil
}

// fixture bundles a service over fakes for orchestration tests
type fixture struct {
	svc    *Service
	online *fakeTransport
	radio  *fakeTransport
	mesh   *fakeTransport
	queue  *fakeQueue
	oracle *fakeOracle
	store  *memCounterStore
}

type fixtureConfig struct {
	user           *types.User
	online         bool
	uploaderURL    string
	locationDenied bool
	opts           Options
}

func newFixture(cfg fixtureConfig) *fixture {
	f := &fixture{
		online: &fakeTransport{name: "online", method: types.MethodOnline},
		radio:  &fakeTransport{name: "radio-bridge", method: types.MethodRadioBridge},
		mesh:   &fakeTransport{name: "mesh", method: types.MethodMesh},
		queue:  &fakeQueue{},
		oracle: &fakeOracle{online: cfg.online},
		store:  &memCounterStore{},
	}

	sessions := &session.StaticProvider{User: cfg.user, Raw: "test-token"}

	provider := &fixedLocation{
		coords: types.Coordinates{Latitude: 46.1, Longitude: 7.2},
		denied: cfg.locationDenied,
	}
	resolver := location.NewResolver(provider, time.Second, testLogger())
	allocator := idgen.NewAllocator(f.store, "emergencyCounter", testLogger())
	uploader := media.NewUploader(cfg.uploaderURL, 5*time.Second, testLogger())

	f.svc = NewService(
		sessions,
		resolver,
		allocator,
		f.oracle,
		f.online,
		[]transport.Transport{f.radio, f.mesh},
		f.queue,
		uploader,
		cfg.opts,
		testLogger(),
	)
	return f
}
