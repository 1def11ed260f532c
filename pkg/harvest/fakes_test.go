package harvest

import (
	"context"
	"errors"
	"sync"

	"placeharvest/pkg/config"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/progress"
	"placeharvest/pkg/ratelimit"
)

const placeBase = "https://maps.example.com/maps/place/"

func place(id string) RawEntry {
	return RawEntry{Href: placeBase + id + "?authuser=0", PlaceID: "pid-" + id, Label: id}
}

func places(ids ...string) []RawEntry {
	out := make([]RawEntry, len(ids))
	for i, id := range ids {
		out[i] = place(id)
	}
	return out
}

func identityOf(id string) string { return placeBase + id }

type fakeDriver struct {
	entries  []RawEntry
	failures map[string]error
	openErr  error
	countErr error
	panicOn  string

	seed   string
	opened []string
	// onOpenEntry runs before each panel open
	onOpenEntry func(RawEntry)
}

func (d *fakeDriver) Open(ctx context.Context, seedURL string) error {
	d.seed = seedURL
	return d.openErr
}

func (d *fakeDriver) CountEntries(ctx context.Context) (int, error) {
	if d.countErr != nil {
		return 0, d.countErr
	}
	return len(d.entries), nil
}

func (d *fakeDriver) GrowListing(ctx context.Context) error { return nil }

func (d *fakeDriver) Entries(ctx context.Context) ([]RawEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]RawEntry(nil), d.entries...), nil
}

func (d *fakeDriver) OpenEntry(ctx context.Context, entry RawEntry) (PanelFields, error) {
	if d.onOpenEntry != nil {
		d.onOpenEntry(entry)
	}
	d.opened = append(d.opened, entry.Label)
	if entry.Label == d.panicOn && d.panicOn != "" {
		panic("tab crashed")
	}
	if err, ok := d.failures[entry.Label]; ok {
		return PanelFields{}, err
	}
	return PanelFields{
		Title:    "Place " + entry.Label,
		Category: "Dentist",
		Rating:   "4.6",
		Phone:    "+44 113 496 0000",
	}, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakeSink struct {
	mu      sync.Mutex
	records []Record
	err     error
	// onAppend runs after a successful append
	onAppend func(Record)
}

func (s *fakeSink) Append(ctx context.Context, r Record) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	s.records = append(s.records, r)
	s.mu.Unlock()
	if s.onAppend != nil {
		s.onAppend(r)
	}
	return nil
}

func (s *fakeSink) Close() error { return nil }

func (s *fakeSink) identities() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.records))
	for i, r := range s.records {
		out[i] = r.Identity
	}
	return out
}

type fakeGenerator struct {
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, r Record) (Message, error) {
	g.calls++
	if g.err != nil {
		return Message{}, g.err
	}
	return Message{WhatsApp: "Hello " + r.Title, EmailSubject: "Hi", EmailBody: "Body"}, nil
}

// failingBackend fails every Put once armed
type failingBackend struct {
	*progress.MemoryBackend
	failPuts bool
}

func (b *failingBackend) Put(ctx context.Context, key string, data []byte) error {
	if b.failPuts {
		return errors.New("disk full")
	}
	return b.MemoryBackend.Put(ctx, key, data)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Run.SeedURL = "https://maps.example.com/maps/search/dentists+leeds"
	cfg.Listing.SettleInterval = 0
	cfg.Listing.ContainerRetries = 1
	cfg.Listing.StableRounds = 2
	return cfg
}

type harness struct {
	engine  *Engine
	driver  *fakeDriver
	sink    *fakeSink
	store   *progress.Store
	backend progress.Backend
	log     *logger.TestLogger
}

func newHarness(backend progress.Backend, driver *fakeDriver, gen Generator) *harness {
	if backend == nil {
		backend = progress.NewMemoryBackend()
	}
	h := &harness{
		driver:  driver,
		sink:    &fakeSink{},
		backend: backend,
		log:     logger.NewTestLogger(),
	}
	h.store = progress.NewStore(backend, "", h.log)

	engine, err := NewEngine(testConfig(), Deps{
		Driver:    driver,
		Store:     h.store,
		Sink:      h.sink,
		Generator: gen,
		Limiter:   ratelimit.Unlimited{},
		Logger:    h.log,
	})
	if err != nil {
		panic(err)
	}
	h.engine = engine
	return h
}
