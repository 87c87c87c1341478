package events

import (
	"testing"
	"time"
)

func collect(t *testing.T, sub *Subscription, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case evt, ok := <-sub.Events():
			if !ok {
				t.Fatalf("channel closed after %d events, want %d", len(out), n)
			}
			out = append(out, evt)
		case <-timeout:
			t.Fatalf("timed out after %d events, want %d", len(out), n)
		}
	}
	return out
}

func TestBusDeliversInPublishOrder(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe()
	defer sub.Close()

	for i := 0; i < 50; i++ {
		bus.Publish(Event{Type: TypeBackupLog, Payload: BackupLog{DriveID: 0, Line: string(rune('a' + i%26))}})
	}

	got := collect(t, sub, 50)
	for i, evt := range got {
		want := string(rune('a' + i%26))
		if evt.Payload.(BackupLog).Line != want {
			t.Fatalf("event %d out of order: got %q want %q", i, evt.Payload.(BackupLog).Line, want)
		}
	}
}

func TestBusFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	first := bus.Subscribe()
	defer first.Close()
	second := bus.Subscribe()
	defer second.Close()

	bus.Publish(Event{Type: TypeBackupStarted, Payload: BackupStarted{DriveID: 1}})

	for _, sub := range []*Subscription{first, second} {
		evt := collect(t, sub, 1)[0]
		if evt.Type != TypeBackupStarted {
			t.Fatalf("unexpected event: %+v", evt)
		}
		if evt.Timestamp.IsZero() {
			t.Fatal("expected timestamp stamped on publish")
		}
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	slow := bus.Subscribe()
	defer slow.Close()
	fast := bus.Subscribe()
	defer fast.Close()

	// Nobody reads from slow; publishes must still complete promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: TypeBackupProgress, Payload: BackupProgress{DriveID: 0, Percent: float64(i)}})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish blocked on slow subscriber")
	}

	got := collect(t, fast, 100)
	if got[99].Payload.(BackupProgress).Percent != 99 {
		t.Fatalf("unexpected final event: %+v", got[99])
	}
}

func TestCloseTerminatesSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.Close()

	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after bus close")
	}

	// Publishing after close is a no-op.
	bus.Publish(Event{Type: TypeBackupLog})
}

func TestSubscribeAfterCloseYieldsClosedChannel(t *testing.T) {
	bus := NewBus()
	bus.Close()

	sub := bus.Subscribe()
	if _, ok := <-sub.Events(); ok {
		t.Fatal("expected closed channel from closed bus")
	}
}
