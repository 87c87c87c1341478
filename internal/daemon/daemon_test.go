package daemon

import (
	"context"
	"testing"
	"time"

	"platter/internal/events"
	"platter/internal/testsupport"
)

func TestDaemonEnforcesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer first.Close()

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := first.Start(ctx); err == nil {
		t.Fatal("expected error starting a running daemon")
	}

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected lock contention error")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after lock release: %v", err)
	}
	second.Stop()
}

func TestDaemonStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.Close()

	status := d.Status(context.Background())
	if status.Running {
		t.Fatal("daemon should not report running before Start")
	}
	if status.LockPath == "" || status.HistoryDBPath == "" {
		t.Fatalf("missing paths: %+v", status)
	}
	if len(status.ActiveBackups) != 0 {
		t.Fatalf("expected no active backups: %+v", status)
	}
	if len(status.Dependencies) == 0 {
		t.Fatalf("expected dependency checks: %+v", status)
	}
	if len(status.Paths) != 3 {
		t.Fatalf("expected three path checks: %+v", status.Paths)
	}
	for _, path := range status.Paths {
		if !path.Writable {
			t.Fatalf("expected writable path, got %+v", path)
		}
	}

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !d.Status(context.Background()).Running {
		t.Fatal("daemon should report running after Start")
	}
	d.Stop()
}

func TestDaemonStopSignalsDone(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-d.Done():
		t.Fatal("Done closed while daemon running")
	default:
	}

	d.Stop()
	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatal("Done not closed after Stop")
	}
	if d.Status(context.Background()).Running {
		t.Fatal("daemon should not report running after Stop")
	}
	d.Stop()
}

func TestEventLogBuffersAndResumes(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	log := newEventLog(bus, nil)
	defer log.Close()

	for i := 0; i < 3; i++ {
		bus.Publish(events.Event{
			Type:    events.TypeBackupLog,
			Payload: events.BackupLog{DriveID: 0, Line: "line"},
		})
	}

	var got []BufferedEvent
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		got, _ = log.After(context.Background(), 0, 0)
		if len(got) == 3 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 buffered events, got %d", len(got))
	}
	for i, evt := range got {
		if evt.Seq != int64(i+1) {
			t.Fatalf("expected monotonic seq, got %+v", got)
		}
		if evt.Type != string(events.TypeBackupLog) {
			t.Fatalf("unexpected type: %q", evt.Type)
		}
	}

	// Resuming after the last seq yields nothing without waiting.
	rest, next := log.After(context.Background(), got[2].Seq, 0)
	if len(rest) != 0 || next != got[2].Seq {
		t.Fatalf("expected empty resume, got %+v next=%d", rest, next)
	}
}

func TestEventLogWaitsForNewEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	log := newEventLog(bus, nil)
	defer log.Close()

	go func() {
		time.Sleep(50 * time.Millisecond)
		bus.Publish(events.Event{
			Type:    events.TypeBackupStarted,
			Payload: events.BackupStarted{DriveID: 1},
		})
	}()

	got, next := log.After(context.Background(), 0, 5*time.Second)
	if len(got) != 1 || next != got[0].Seq {
		t.Fatalf("expected one awaited event, got %+v", got)
	}
}
