package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"runner/internal/domain"
)

func TestEventChannelGetWaitsForPut(t *testing.T) {
	ch := newEventChannel()
	got := make(chan domain.Event, 1)
	go func() {
		ev, err := ch.Get(context.Background())
		if err != nil {
			t.Errorf("Get: %v", err)
			return
		}
		got <- ev
	}()

	time.Sleep(20 * time.Millisecond)
	ch.Put(domain.Event{Type: domain.EventStep, Data: "late"})

	select {
	case ev := <-got:
		if ev.Data != "late" {
			t.Fatalf("event = %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Get did not wake up after Put")
	}
}

func TestEventChannelGetHonorsContext(t *testing.T) {
	ch := newEventChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := ch.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Get error = %v, want deadline exceeded", err)
	}
}

func TestEventChannelFIFO(t *testing.T) {
	ch := newEventChannel()
	for _, d := range []string{"a", "b", "c"} {
		ch.Put(domain.Event{Type: domain.EventLog, Data: d})
	}
	for _, want := range []string{"a", "b", "c"} {
		ev, ok := ch.TryGet()
		if !ok || ev.Data != want {
			t.Fatalf("TryGet = %+v, %v; want %q", ev, ok, want)
		}
	}
	if _, ok := ch.TryGet(); ok {
		t.Fatalf("TryGet on empty channel returned an event")
	}
}
