package service

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/paybazaar/retailer-portal/internal/config"
	"github.com/paybazaar/retailer-portal/internal/integrations/geo"
	"github.com/paybazaar/retailer-portal/internal/integrations/rdservice"
	"github.com/paybazaar/retailer-portal/internal/logging"
	"github.com/paybazaar/retailer-portal/internal/models"
	"github.com/paybazaar/retailer-portal/internal/repository"
	"github.com/paybazaar/retailer-portal/internal/session"
)

type call struct {
	Method string
	Path   string
	Query  url.Values
	Body   json.RawMessage
}

type responder func(c call) (any, error)

// fakeBackend answers "METHOD /path" with canned data and records every call
type fakeBackend struct {
	mu     sync.Mutex
	routes map[string]responder
	calls  []call
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{routes: map[string]responder{}}
}

func (f *fakeBackend) on(method, path string, r responder) {
	f.routes[method+" "+path] = r
}

func (f *fakeBackend) reply(method, path string, data any) {
	f.on(method, path, func(call) (any, error) { return data, nil })
}

func (f *fakeBackend) fail(method, path string, err error) {
	f.on(method, path, func(call) (any, error) { return nil, err })
}

func (f *fakeBackend) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := call{Method: method, Path: path, Query: query}
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		c.Body = raw
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	r, ok := f.routes[method+" "+path]
	f.mu.Unlock()
	if !ok {
		return &unexpectedCall{method: method, path: path}
	}

	data, err := r(c)
	if err != nil {
		return err
	}
	if out == nil || data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeBackend) Get(ctx context.Context, path string, query url.Values, out any) error {
	return f.do(ctx, "GET", path, query, nil, out)
}

func (f *fakeBackend) Post(ctx context.Context, path string, body, out any) error {
	return f.do(ctx, "POST", path, nil, body, out)
}

func (f *fakeBackend) Put(ctx context.Context, path string, body, out any) error {
	return f.do(ctx, "PUT", path, nil, body, out)
}

func (f *fakeBackend) Delete(ctx context.Context, path string, out any) error {
	return f.do(ctx, "DELETE", path, nil, nil, out)
}

func (f *fakeBackend) callsTo(method, path string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

type unexpectedCall struct{ method, path string }

func (e *unexpectedCall) Error() string { return "unexpected backend call " + e.method + " " + e.path }

type fakeCapturer struct {
	capture models.BiometricCapture
	err     error
	calls   int
	relayed []string
}

func (f *fakeCapturer) Capture(_ context.Context, device rdservice.Device) (models.BiometricCapture, error) {
	f.calls++
	if f.err != nil {
		return models.BiometricCapture{}, f.err
	}
	c := f.capture
	c.Device = string(device)
	return c, nil
}

func (f *fakeCapturer) DeviceInfo(context.Context, rdservice.Device) (models.DeviceInfo, error) {
	return f.capture.DeviceInfo, f.err
}

func (f *fakeCapturer) Normalize(device rdservice.Device, raw []byte) (models.BiometricCapture, error) {
	f.relayed = append(f.relayed, string(raw))
	if f.err != nil {
		return models.BiometricCapture{}, f.err
	}
	c := f.capture
	c.Device = string(device)
	c.RawXML = string(raw)
	return c, nil
}

func (f *fakeCapturer) Devices() []rdservice.Device {
	return []rdservice.Device{rdservice.DeviceMantra, rdservice.DeviceMorpho}
}

func (f *fakeCapturer) PidOptions() (string, error) {
	return `<PidOptions ver="1.0"/>`, nil
}

type testEnv struct {
	svc     *Service
	backend *fakeBackend
	rd      *fakeCapturer
	flows   *repository.MemoryFlowStore
	audit   *repository.MemoryAudit
	cfg     *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Timezone:    time.FixedZone("IST", 5*3600+1800),
		ExportLimit: 1000,
		FlowTTL:     30 * time.Minute,
	}
	env := &testEnv{
		backend: newFakeBackend(),
		rd: &fakeCapturer{capture: models.BiometricCapture{
			RawXML:     "<PidData/>",
			PIDData:    "cGlk",
			SessionKey: "c2tleQ==",
			HMAC:       "aG1hYw==",
		}},
		flows: repository.NewMemoryFlowStore(cfg.FlowTTL),
		audit: repository.NewMemoryAudit(),
		cfg:   cfg,
	}
	env.svc = NewService(env.backend, env.rd, geo.ReportedLocator{}, env.flows, env.audit, logging.Discard(), cfg)
	return env
}

func retailerCtx(id string) context.Context {
	return session.WithSession(context.Background(), models.Session{
		UserID:    id,
		Token:     "tok-" + id,
		ExpiresAt: time.Now().Add(time.Hour),
	})
}

func fix(lat, lng float64) geo.Report {
	return geo.Report{Latitude: &lat, Longitude: &lng, Accuracy: 20}
}

func requireAudit(t *testing.T, env *testEnv, action, outcome string) models.AuditEvent {
	t.Helper()
	for _, e := range env.audit.Events() {
		if e.Action == action && e.Outcome == outcome {
			return e
		}
	}
	t.Fatalf("no %s audit event with outcome %s in %+v", action, outcome, env.audit.Events())
	return models.AuditEvent{}
}

// lossyFlows adds latency to loads and can start failing saves mid-test
type lossyFlows struct {
	FlowStore
	loadDelay time.Duration

	mu      sync.Mutex
	saveErr error
}

func (f *lossyFlows) Load(ctx context.Context, kind, retailerID string, out any) (bool, error) {
	time.Sleep(f.loadDelay)
	return f.FlowStore.Load(ctx, kind, retailerID, out)
}

func (f *lossyFlows) Save(ctx context.Context, kind, retailerID string, v any) error {
	f.mu.Lock()
	err := f.saveErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.FlowStore.Save(ctx, kind, retailerID, v)
}

func (f *lossyFlows) failSaves(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

// useLossyFlows rebuilds the service over a lossy view of the env's store
func (e *testEnv) useLossyFlows(loadDelay time.Duration) *lossyFlows {
	lf := &lossyFlows{FlowStore: e.flows, loadDelay: loadDelay}
	e.svc = NewService(e.backend, e.rd, geo.ReportedLocator{}, lf, e.audit, logging.Discard(), e.cfg)
	return lf
}

// concurrently runs fn n times at once and returns the errors
func concurrently(n int, fn func() error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}
