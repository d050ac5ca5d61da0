package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zulandar/traveler/internal/i18n"
	"github.com/zulandar/traveler/internal/store"
	"github.com/zulandar/traveler/internal/store/memstore"
	"github.com/zulandar/traveler/internal/telegraph"
	"go.uber.org/goleak"
)

func TestNewTrigger_Valid(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	tr, err := NewTrigger("0 17 * * *", now)
	if err != nil {
		t.Fatalf("NewTrigger: %v", err)
	}
	want := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC)
	if !tr.Next().Equal(want) {
		t.Errorf("Next = %v, want %v", tr.Next(), want)
	}
}

func TestNewTrigger_AfterTodaysTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 17, 0, 1, 0, time.UTC)
	tr, _ := NewTrigger(DefaultSchedule, now)
	want := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	if !tr.Next().Equal(want) {
		t.Errorf("Next = %v, want %v", tr.Next(), want)
	}
}

func TestNewTrigger_Invalid(t *testing.T) {
	if _, err := NewTrigger("not a cron expr", time.Now()); err == nil {
		t.Fatal("expected error for invalid expression")
	}
}

func TestNewTrigger_TimeZone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Kyiv")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	tr, err := NewTrigger("CRON_TZ=Europe/Kyiv 0 17 * * *", now)
	if err != nil {
		t.Fatalf("NewTrigger: %v", err)
	}
	got := tr.Next().In(loc)
	if got.Hour() != 17 || got.Minute() != 0 {
		t.Errorf("Next in Kyiv = %v, want 17:00", got)
	}
}

func TestTrigger_DueAndAdvance(t *testing.T) {
	now := time.Date(2026, 3, 1, 16, 59, 59, 0, time.UTC)
	tr, _ := NewTrigger(DefaultSchedule, now)
	if tr.Due(now) {
		t.Error("Due before fire time")
	}
	fire := now.Add(time.Second)
	if !tr.Due(fire) {
		t.Error("not Due at fire time")
	}
	tr.Advance(fire)
	if !tr.Next().Equal(fire.Add(24 * time.Hour)) {
		t.Errorf("Next after Advance = %v", tr.Next())
	}
}

func setupScheduler(t *testing.T, clock *fakeClock) (*Scheduler, *memstore.Store, *telegraph.MockAdapter) {
	t.Helper()
	st := memstore.New()
	adapter := telegraph.NewMockAdapter()
	adapter.Connect(context.Background())
	d, err := NewDeliverer(DelivererOpts{Profiles: st, Content: st, Sender: adapter, Clock: clock})
	if err != nil {
		t.Fatalf("NewDeliverer: %v", err)
	}
	s, err := NewScheduler(SchedulerOpts{
		Deliverer:    d,
		PollInterval: 5 * time.Millisecond,
		Clock:        clock,
	})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	return s, st, adapter
}

func TestNewScheduler_Defaults(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	s, _, _ := setupScheduler(t, clock)
	if s.trigger.String() != DefaultSchedule {
		t.Errorf("schedule = %q, want %q", s.trigger.String(), DefaultSchedule)
	}
	if want := time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC); !s.Next().Equal(want) {
		t.Errorf("Next = %v, want %v", s.Next(), want)
	}
}

func TestNewScheduler_RequiresDeliverer(t *testing.T) {
	if _, err := NewScheduler(SchedulerOpts{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewScheduler_BadSchedule(t *testing.T) {
	st := memstore.New()
	d, _ := NewDeliverer(DelivererOpts{Profiles: st, Content: st, Sender: telegraph.NewMockAdapter()})
	if _, err := NewScheduler(SchedulerOpts{Deliverer: d, Schedule: "61 * * * *"}); err == nil {
		t.Fatal("expected error for out-of-range minute")
	}
}

func TestTick_FiresOncePerDay(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC))
	s, st, adapter := setupScheduler(t, clock)
	st.AddProfile(store.Profile{ChatID: "1", LanguageCode: i18n.EN})
	ctx := context.Background()

	if s.Tick(ctx) {
		t.Fatal("Tick fired before the scheduled time")
	}
	clock.Set(time.Date(2026, 3, 1, 17, 0, 0, 500, time.UTC))
	if !s.Tick(ctx) {
		t.Fatal("Tick did not fire at the scheduled time")
	}
	if s.Tick(ctx) {
		t.Fatal("Tick fired twice for the same day")
	}
	if adapter.SentCount() != 1 {
		t.Errorf("SentCount = %d, want 1", adapter.SentCount())
	}
	if want := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC); !s.Next().Equal(want) {
		t.Errorf("Next = %v, want %v", s.Next(), want)
	}
}

func TestTick_MissedDaysCollapse(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC))
	s, _, _ := setupScheduler(t, clock)
	clock.Set(time.Date(2026, 3, 4, 18, 0, 0, 0, time.UTC))

	if !s.Tick(context.Background()) {
		t.Fatal("expected a pass")
	}
	if s.Tick(context.Background()) {
		t.Error("missed fire times should not queue extra passes")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	clock := newFakeClock(time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC).Add(-time.Second))
	s, st, adapter := setupScheduler(t, clock)
	st.AddProfile(store.Profile{ChatID: "1", LanguageCode: i18n.EN})
	clock.Set(time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for adapter.SentCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("scheduler never ran a pass")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if adapter.SentCount() != 1 {
		t.Errorf("SentCount = %d, want 1", adapter.SentCount())
	}
}

// blockingSender holds every Send until release is closed.
type blockingSender struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingSender) Send(ctx context.Context, msg telegraph.OutboundMessage) error {
	select {
	case b.entered <- struct{}{}:
	default:
	}
	<-b.release
	return nil
}

func TestRunNow_BusyWhilePassRuns(t *testing.T) {
	st := memstore.New()
	st.AddProfile(store.Profile{ChatID: "1", LanguageCode: i18n.EN})
	sender := &blockingSender{entered: make(chan struct{}, 1), release: make(chan struct{})}
	d, _ := NewDeliverer(DelivererOpts{Profiles: st, Content: st, Sender: sender})
	s, err := NewScheduler(SchedulerOpts{Deliverer: d})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	first := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), TriggerManual)
		first <- err
	}()
	<-sender.entered

	if _, err := s.RunNow(context.Background(), TriggerManual); !errors.Is(err, ErrBusy) {
		t.Errorf("second RunNow err = %v, want ErrBusy", err)
	}
	close(sender.release)
	if err := <-first; err != nil {
		t.Fatalf("first RunNow: %v", err)
	}

	if _, err := s.RunNow(context.Background(), TriggerManual); err != nil {
		t.Errorf("RunNow after release: %v", err)
	}
}

func TestTick_WaitsForManualPass(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC))
	st := memstore.New()
	st.AddProfile(store.Profile{ChatID: "1", LanguageCode: i18n.EN})
	sender := &blockingSender{entered: make(chan struct{}, 1), release: make(chan struct{})}
	d, _ := NewDeliverer(DelivererOpts{Profiles: st, Content: st, Sender: sender, Clock: clock})
	s, err := NewScheduler(SchedulerOpts{Deliverer: d, Clock: clock})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	manual := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), TriggerManual)
		manual <- err
	}()
	<-sender.entered

	clock.Set(s.Next().Add(time.Second))
	ticked := make(chan bool, 1)
	go func() { ticked <- s.Tick(context.Background()) }()

	select {
	case <-sender.entered:
		t.Fatal("scheduled pass started while the manual pass was still sending")
	case <-ticked:
		t.Fatal("Tick returned while the manual pass was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(sender.release)
	if err := <-manual; err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	select {
	case fired := <-ticked:
		if !fired {
			t.Error("Tick = false, want a pass once the manual pass finished")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Tick never ran after the manual pass finished")
	}
}
