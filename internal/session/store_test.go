package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrWong99/versecast/pkg/scripture"
)

func TestStore_CreateIsIdempotent(t *testing.T) {
	t.Parallel()

	st := NewStore()
	a, created := st.Create("c1")
	if !created {
		t.Fatal("expected first Create to create")
	}
	b, created := st.Create("c1")
	if created {
		t.Error("expected second Create to return existing session")
	}
	if a != b {
		t.Error("expected the same session pointer")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}
}

func TestStore_NewSessionState(t *testing.T) {
	t.Parallel()

	st := NewStore()
	s, _ := st.Create("c1")
	got := s.Snapshot()
	if got.HasCurrent || got.Tracking() {
		t.Error("new session should be idle")
	}
	if got.Translation != "NIV" {
		t.Errorf("Translation = %q, want NIV", got.Translation)
	}
	if s.ID() != "c1" {
		t.Errorf("ID = %q", s.ID())
	}
}

func TestStore_DefaultTranslation(t *testing.T) {
	t.Parallel()

	st := NewStore(WithDefaultTranslation("KJV"))
	a, _ := st.Create("a")
	st.SetDefaultTranslation("ESV")
	b, _ := st.Create("b")

	if got := a.Snapshot().Translation; got != "KJV" {
		t.Errorf("a.Translation = %q, want KJV", got)
	}
	if got := b.Snapshot().Translation; got != "ESV" {
		t.Errorf("b.Translation = %q, want ESV", got)
	}
	if st.DefaultTranslation() != "ESV" {
		t.Errorf("DefaultTranslation = %q", st.DefaultTranslation())
	}
}

func TestStore_Lookup(t *testing.T) {
	t.Parallel()

	st := NewStore()
	if _, err := st.Lookup("missing"); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("Lookup err = %v, want ErrUnknownSession", err)
	}
	st.Create("c1")
	if _, err := st.Lookup("c1"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
}

func TestStore_Remove(t *testing.T) {
	t.Parallel()

	var delta atomic.Int64
	st := NewStore(WithOnChange(func(d int) { delta.Add(int64(d)) }))
	s, _ := st.Create("c1")

	if !st.Remove("c1") {
		t.Fatal("Remove returned false for existing session")
	}
	if st.Remove("c1") {
		t.Error("second Remove returned true")
	}
	if _, ok := st.Get("c1"); ok {
		t.Error("session still present after Remove")
	}
	if !s.Closed() {
		t.Error("removed session not marked closed")
	}
	select {
	case <-s.Context().Done():
	default:
		t.Error("removed session context not cancelled")
	}
	if err := s.Commit(State{Translation: "KJV"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Commit after Remove err = %v, want ErrClosed", err)
	}
	if delta.Load() != 0 {
		t.Errorf("onChange net delta = %d, want 0", delta.Load())
	}
}

func TestStore_RecreateAfterRemoveIsFresh(t *testing.T) {
	t.Parallel()

	st := NewStore()
	s, _ := st.Create("c1")
	_ = s.Commit(State{Current: scripture.MustParse("John 3:16"), HasCurrent: true, Translation: "KJV"})
	st.Remove("c1")

	s2, created := st.Create("c1")
	if !created {
		t.Fatal("expected a new session")
	}
	if got := s2.Snapshot(); got.HasCurrent || got.Translation != "NIV" {
		t.Errorf("recreated session state = %+v", got)
	}
}

func TestSession_Commit(t *testing.T) {
	t.Parallel()

	st := NewStore()
	s, _ := st.Create("c1")
	want := State{Current: scripture.MustParse("Psalms 23:1"), HasCurrent: true, Translation: "ESV"}
	if err := s.Commit(want); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if got := s.Snapshot(); got != want {
		t.Errorf("Snapshot = %+v, want %+v", got, want)
	}
}

func TestSession_AcquireSerialisesTurns(t *testing.T) {
	t.Parallel()

	st := NewStore()
	s, _ := st.Create("c1")

	var (
		inFlight atomic.Int32
		maxSeen  atomic.Int32
		wg       sync.WaitGroup
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := s.Acquire(context.Background())
			if err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer release()
			n := inFlight.Add(1)
			if n > maxSeen.Load() {
				maxSeen.Store(n)
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if maxSeen.Load() != 1 {
		t.Errorf("max concurrent turns = %d, want 1", maxSeen.Load())
	}
}

func TestSession_AcquireDoesNotBlockOtherClients(t *testing.T) {
	t.Parallel()

	st := NewStore()
	a, _ := st.Create("a")
	b, _ := st.Create("b")

	releaseA, err := a.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire a: %v", err)
	}
	defer releaseA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	releaseB, err := b.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire b blocked by a: %v", err)
	}
	releaseB()
}

func TestSession_AcquireContextCancelled(t *testing.T) {
	t.Parallel()

	st := NewStore()
	s, _ := st.Create("c1")
	release, _ := s.Acquire(context.Background())
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}

func TestSession_AcquireAfterRemove(t *testing.T) {
	t.Parallel()

	st := NewStore()
	s, _ := st.Create("c1")
	release, _ := s.Acquire(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := s.Acquire(context.Background())
		errc <- err
	}()

	st.Remove("c1")
	release()
	release() // second call is a no-op

	select {
	case err := <-errc:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("waiting Acquire did not return after Remove")
	}
}

func TestSession_SnapshotDuringTurn(t *testing.T) {
	t.Parallel()

	st := NewStore()
	s, _ := st.Create("c1")
	release, _ := s.Acquire(context.Background())
	defer release()

	done := make(chan State, 1)
	go func() { done <- s.Snapshot() }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Snapshot blocked while a turn was held")
	}
}

func TestStore_CloseAll(t *testing.T) {
	t.Parallel()

	st := NewStore()
	a, _ := st.Create("a")
	b, _ := st.Create("b")
	st.CloseAll()

	if st.Len() != 0 {
		t.Errorf("Len = %d after CloseAll", st.Len())
	}
	if !a.Closed() || !b.Closed() {
		t.Error("sessions not closed")
	}
}

func TestStore_ConcurrentClients(t *testing.T) {
	t.Parallel()

	st := NewStore()
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('a' + i%26))
			s, _ := st.Create(id)
			_ = s.Commit(State{Current: scripture.Reference{Book: "John", Chapter: 3, Verse: i + 1}, HasCurrent: true, Translation: "NIV"})
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	if st.Len() != 26 {
		t.Errorf("Len = %d, want 26", st.Len())
	}
}
