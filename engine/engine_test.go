package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	loctool "github.com/astrateam-net/confluence-localization-toolkit"
	"github.com/astrateam-net/confluence-localization-toolkit/cache"
	"github.com/astrateam-net/confluence-localization-toolkit/provider"
	"github.com/astrateam-net/confluence-localization-toolkit/store"
)

func newTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	table, err := st.EnsureGroup(context.Background(), "linchpin-suite", "Linchpin Suite", "")
	if err != nil {
		t.Fatalf("ensure group: %v", err)
	}
	return st, table
}

func seedRows(t *testing.T, st *store.Store, table string, texts map[string]string) {
	t.Helper()
	for key, text := range texts {
		if _, err := st.UpsertRow(context.Background(), table, key, text, "net.example.plugin"); err != nil {
			t.Fatalf("seed %q: %v", key, err)
		}
	}
}

// fakeProvider runs a callback per batch, for failure injection.
type fakeProvider struct {
	fn      func(call int, texts []string) ([]provider.Result, error)
	calls   int
	batches [][]string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) TranslateBatch(ctx context.Context, texts []string, sourceLocale, targetLocale string) ([]provider.Result, error) {
	f.calls++
	f.batches = append(f.batches, append([]string(nil), texts...))
	return f.fn(f.calls, texts)
}

func okResults(texts []string) []provider.Result {
	results := make([]provider.Result, len(texts))
	for i, text := range texts {
		results[i] = provider.Result{Text: "ru:" + text, Method: "fake"}
	}
	return results
}

// noSleep records requested delays instead of sleeping.
func noSleep(delays *[]time.Duration) loctool.SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_Run_TranslatesAll(t *testing.T) {
	st, _ := newTestStore(t)
	table := "linchpin_suite"
	seedRows(t, st, table, map[string]string{
		"menu.save":   "Save",
		"menu.cancel": "Cancel",
		"page.title":  "Page created",
	})

	p := provider.NewMockProvider()
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()})

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Translated != 3 {
		t.Errorf("Translated = %d, want 3", report.Translated)
	}
	if report.Failed != 0 || report.Cached != 0 {
		t.Errorf("Failed/Cached = %d/%d, want 0/0", report.Failed, report.Cached)
	}

	stats, err := st.Statistics(context.Background(), table)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}
	if stats.Translated != 3 || stats.Pending != 0 {
		t.Errorf("stats = %+v, want 3 translated", stats)
	}

	rows, err := st.TranslatedRows(context.Background(), table)
	if err != nil {
		t.Fatalf("TranslatedRows() error = %v", err)
	}
	for _, row := range rows {
		if row.Method != "mock" {
			t.Errorf("row %q method = %q, want mock", row.Key, row.Method)
		}
	}
}

func TestEngine_Run_BatchOrder(t *testing.T) {
	st, _ := newTestStore(t)
	table := "linchpin_suite"

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key.%03d", i)
		if _, err := st.UpsertRow(ctx, table, key, "text "+key, ""); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return okResults(texts), nil
	}}
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()}, WithBatchSize(2))

	report, err := eng.Run(ctx, "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Batches != 3 {
		t.Errorf("Batches = %d, want 3 (5 rows, batch size 2)", report.Batches)
	}

	var got []string
	for _, batch := range p.batches {
		got = append(got, batch...)
	}
	for i, text := range got {
		want := fmt.Sprintf("text key.%03d", i)
		if text != want {
			t.Errorf("got[%d] = %q, want %q", i, text, want)
		}
	}
}

func TestEngine_Run_ForwardProgressUnderRateLimit(t *testing.T) {
	st, _ := newTestStore(t)
	table := "linchpin_suite"
	seedRows(t, st, table, map[string]string{
		"a": "one",
		"b": "two",
	})

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return nil, &loctool.RateLimitError{Provider: "fake", Message: "slow down"}
	}}

	var delays []time.Duration
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()},
		WithBatchSize(1),
		WithSleep(noSleep(&delays)))

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v, want nil (per-row failure, not abort)", err)
	}
	if report.Failed != 2 {
		t.Errorf("Failed = %d, want 2", report.Failed)
	}
	if report.Batches != 2 {
		t.Errorf("Batches = %d, want 2 (each batch visited once)", report.Batches)
	}

	// First batch walks the full ladder: 30s, 40s, 50s, 60s, 70s.
	want := []time.Duration{30 * time.Second, 40 * time.Second, 50 * time.Second, 60 * time.Second, 70 * time.Second}
	if len(delays) < len(want) {
		t.Fatalf("got %d delays, want at least %d", len(delays), len(want))
	}
	for i, d := range want {
		if delays[i] != d {
			t.Errorf("delays[%d] = %v, want %v", i, delays[i], d)
		}
	}

	stats, _ := st.Statistics(context.Background(), table)
	if stats.Errors != 2 {
		t.Errorf("stats.Errors = %d, want 2", stats.Errors)
	}
}

func TestEngine_Run_RetryAfterHintStretchesDelay(t *testing.T) {
	st, _ := newTestStore(t)
	seedRows(t, st, "linchpin_suite", map[string]string{"a": "one"})

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		if call == 1 {
			return nil, &loctool.RateLimitError{Provider: "fake", RetryAfter: 90 * time.Second}
		}
		return okResults(texts), nil
	}}

	var delays []time.Duration
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()}, WithSleep(noSleep(&delays)))

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Translated != 1 {
		t.Errorf("Translated = %d, want 1", report.Translated)
	}
	if len(delays) != 1 || delays[0] != 90*time.Second {
		t.Errorf("delays = %v, want [90s] (provider hint above ladder)", delays)
	}
}

func TestEngine_Run_TransientRetryThenSuccess(t *testing.T) {
	st, _ := newTestStore(t)
	seedRows(t, st, "linchpin_suite", map[string]string{"a": "one"})

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		if call < 3 {
			return nil, &loctool.TransientError{Provider: "fake", Message: "blip"}
		}
		return okResults(texts), nil
	}}

	var delays []time.Duration
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()}, WithSleep(noSleep(&delays)))

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Translated != 1 || report.Failed != 0 {
		t.Errorf("report = %+v, want 1 translated", report)
	}
	// Exponential: 1s then 2s.
	if len(delays) != 2 || delays[0] != time.Second || delays[1] != 2*time.Second {
		t.Errorf("delays = %v, want [1s 2s]", delays)
	}
}

func TestEngine_Run_AuthErrorAborts(t *testing.T) {
	st, _ := newTestStore(t)
	table := "linchpin_suite"
	seedRows(t, st, table, map[string]string{"a": "one", "b": "two"})

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return nil, &loctool.AuthError{Provider: "fake", Message: "bad key"}
	}}
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()})

	_, err := eng.Run(context.Background(), "linchpin-suite")
	var authErr *loctool.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("Run() error = %v, want *AuthError", err)
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 (abort, no retry)", p.calls)
	}

	// Rows stay pending for the next run.
	stats, _ := st.Statistics(context.Background(), table)
	if stats.Pending != 2 {
		t.Errorf("stats.Pending = %d, want 2", stats.Pending)
	}
}

func TestEngine_Run_Resumable(t *testing.T) {
	st, _ := newTestStore(t)
	table := "linchpin_suite"
	seedRows(t, st, table, map[string]string{"a": "one", "b": "two"})

	failing := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return nil, &loctool.TransientError{Provider: "fake", Message: "down"}
	}}
	var delays []time.Duration
	eng := New(Deps{Store: st, Provider: failing, Logger: quietLogger()}, WithSleep(noSleep(&delays)))

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if report.Failed != 2 {
		t.Errorf("first run Failed = %d, want 2", report.Failed)
	}

	// Second run picks the error rows back up.
	working := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return okResults(texts), nil
	}}
	eng = New(Deps{Store: st, Provider: working, Logger: quietLogger()})

	report, err = eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.Translated != 2 {
		t.Errorf("second run Translated = %d, want 2", report.Translated)
	}

	stats, _ := st.Statistics(context.Background(), table)
	if stats.Translated != 2 || stats.Errors != 0 {
		t.Errorf("stats = %+v, want all translated", stats)
	}
}

func TestEngine_Run_CacheLookaside(t *testing.T) {
	st, _ := newTestStore(t)
	table := "linchpin_suite"
	seedRows(t, st, table, map[string]string{
		"greeting": "Hello",
		"farewell": "Goodbye",
	})

	c := cache.NewInMemoryCache(0)
	c.Set(loctool.CacheKey(loctool.HashText("Hello"), "ru_RU"), "Привет")

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return okResults(texts), nil
	}}
	eng := New(Deps{Store: st, Provider: p, Cache: c, Logger: quietLogger()})

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Cached != 1 || report.Translated != 1 {
		t.Errorf("report = %+v, want 1 cached + 1 translated", report)
	}

	// The cached row never reaches the provider.
	for _, batch := range p.batches {
		for _, text := range batch {
			if text == "Hello" {
				t.Error("cached text was sent to the provider")
			}
		}
	}

	rows, _ := st.TranslatedRows(context.Background(), table)
	methods := map[string]string{}
	for _, row := range rows {
		methods[row.Key] = row.Method
	}
	if methods["greeting"] != "cache" {
		t.Errorf("greeting method = %q, want cache", methods["greeting"])
	}
	if methods["farewell"] != "fake" {
		t.Errorf("farewell method = %q, want fake", methods["farewell"])
	}

	// Fresh translations are written back to the cache.
	if _, ok := c.Get(loctool.CacheKey(loctool.HashText("Goodbye"), "ru_RU")); !ok {
		t.Error("provider translation was not cached")
	}
}

func TestEngine_Run_EmptyTranslationMarkedError(t *testing.T) {
	st, _ := newTestStore(t)
	table := "linchpin_suite"
	seedRows(t, st, table, map[string]string{"a": "one"})

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return []provider.Result{{Text: "", Method: "fake"}}, nil
	}}
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()})

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Failed != 1 {
		t.Errorf("Failed = %d, want 1", report.Failed)
	}
}

func TestEngine_Run_UnknownGroup(t *testing.T) {
	st, _ := newTestStore(t)
	eng := New(Deps{Store: st, Provider: provider.NewMockProvider(), Logger: quietLogger()})

	_, err := eng.Run(context.Background(), "no-such-group")
	if err == nil {
		t.Fatal("expected error for unknown group")
	}
}

func TestEngine_Run_NothingToDo(t *testing.T) {
	st, _ := newTestStore(t)

	p := &fakeProvider{fn: func(call int, texts []string) ([]provider.Result, error) {
		return okResults(texts), nil
	}}
	eng := New(Deps{Store: st, Provider: p, Logger: quietLogger()})

	report, err := eng.Run(context.Background(), "linchpin-suite")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Batches != 0 || p.calls != 0 {
		t.Errorf("empty group: batches=%d calls=%d, want 0/0", report.Batches, p.calls)
	}
}
