package publish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestPublisher_InitialSnapshotEmpty(t *testing.T) {
	p := New()
	snap := p.Snapshot()
	if snap.Raw != "" || snap.Message != "" || snap.Cycle != 0 {
		t.Errorf("Snapshot() = %+v, want zero value", snap)
	}
}

func TestPublisher_PublishAndSnapshot(t *testing.T) {
	p := New()
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	p.Publish(".- -...", "AB")
	snap := p.Snapshot()
	if snap.Raw != ".- -..." || snap.Message != "AB" {
		t.Errorf("Snapshot() = %+v", snap)
	}
	if snap.Cycle != 1 {
		t.Errorf("Cycle = %d, want 1", snap.Cycle)
	}
	if !snap.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", snap.UpdatedAt, fixed)
	}

	p.Publish("-", "AB T")
	if got := p.Snapshot().Cycle; got != 2 {
		t.Errorf("Cycle = %d, want 2", got)
	}
}

func TestPublisher_UpdatesNonBlocking(t *testing.T) {
	p := New()
	for i := 0; i < DefaultUpdateBuffer*3; i++ {
		p.Publish("raw", fmt.Sprintf("msg %d", i))
	}
	if got := len(p.Updates()); got != DefaultUpdateBuffer {
		t.Errorf("len(Updates()) = %d, want %d", got, DefaultUpdateBuffer)
	}
	// Last writer wins for readers even when updates were dropped.
	if got := p.Snapshot().Message; got != fmt.Sprintf("msg %d", DefaultUpdateBuffer*3-1) {
		t.Errorf("Snapshot().Message = %q", got)
	}
}

func TestPublisher_SnapshotNeverTorn(t *testing.T) {
	p := New()
	const writes = 5000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= writes; i++ {
			p.Publish(fmt.Sprintf("raw-%d", i), fmt.Sprintf("msg-%d", i))
			select {
			case <-p.Updates():
			default:
			}
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < writes; i++ {
				snap := p.Snapshot()
				if snap.Cycle == 0 {
					continue
				}
				rawN := strings.TrimPrefix(snap.Raw, "raw-")
				msgN := strings.TrimPrefix(snap.Message, "msg-")
				if rawN != msgN || rawN != fmt.Sprint(snap.Cycle) {
					t.Errorf("torn snapshot: %+v", snap)
					return
				}
			}
		}()
	}
	wg.Wait()
}

type recordingSink struct {
	name string
	err  error

	mu    sync.Mutex
	snaps []Snapshot
	got   chan struct{}
}

func newRecordingSink(name string, err error) *recordingSink {
	return &recordingSink{name: name, err: err, got: make(chan struct{}, 16)}
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	s.snaps = append(s.snaps, snap)
	s.mu.Unlock()
	s.got <- struct{}{}
	return s.err
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	p := New()
	f := NewFanout(p.Updates(), nil)
	failing := newRecordingSink("failing", errors.New("broker down"))
	ok := newRecordingSink("ok", nil)
	f.Add(failing)
	f.Add(ok)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.Start(ctx)

	p.Publish("...", "S")

	for _, s := range []*recordingSink{failing, ok} {
		select {
		case <-s.got:
		case <-time.After(2 * time.Second):
			t.Fatalf("sink %s not delivered", s.name)
		}
		s.mu.Lock()
		if s.snaps[0].Message != "S" {
			t.Errorf("sink %s got %+v", s.name, s.snaps[0])
		}
		s.mu.Unlock()
	}
}

func TestFanout_StopsOnCancel(t *testing.T) {
	p := New()
	f := NewFanout(p.Updates(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
