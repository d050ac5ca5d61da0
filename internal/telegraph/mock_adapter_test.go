package telegraph

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Compile-time interface compliance checks.
var (
	_ Adapter          = (*MockAdapter)(nil)
	_ BotUserIDer      = (*MockAdapter)(nil)
	_ CommandRegistrar = (*MockAdapter)(nil)
)

func TestMockAdapter_ConnectAndClose(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Connect after close should fail.
	if err := m.Connect(ctx); err == nil {
		t.Fatal("Connect after Close should fail")
	}

	// Double close should be safe.
	if err := m.Close(); err != nil {
		t.Fatalf("double Close should succeed: %v", err)
	}
}

func TestMockAdapter_ListenRequiresConnect(t *testing.T) {
	m := NewMockAdapter()
	if _, err := m.Listen(context.Background()); err == nil {
		t.Fatal("Listen before Connect should fail")
	}
}

func TestMockAdapter_SendRequiresConnect(t *testing.T) {
	m := NewMockAdapter()
	if err := m.Send(context.Background(), OutboundMessage{ChatID: "1", Text: "hello"}); err == nil {
		t.Fatal("Send before Connect should fail")
	}
}

func TestMockAdapter_SimulateInbound(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.Connect(ctx)
	ch, err := m.Listen(ctx)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}

	m.SimulateInbound(InboundMessage{Platform: "test", ChatID: "1001", UserID: "7", Locale: "uk", Text: "/start"})

	select {
	case msg := <-ch:
		if msg.ChatID != "1001" || msg.Text != "/start" || msg.Locale != "uk" {
			t.Errorf("msg = %+v", msg)
		}
		if msg.Timestamp.IsZero() {
			t.Error("Timestamp should be filled in")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

func TestMockAdapter_SendRecords(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.Connect(ctx)

	if _, ok := m.LastSent(); ok {
		t.Fatal("LastSent before any Send should report false")
	}

	m.Send(ctx, OutboundMessage{ChatID: "1", Text: "a"})
	m.Send(ctx, OutboundMessage{ChatID: "2", Text: "b", Options: []string{"x", "y"}})
	m.Send(ctx, OutboundMessage{ChatID: "1", Text: "c"})

	if m.SentCount() != 3 {
		t.Errorf("SentCount = %d, want 3", m.SentCount())
	}
	last, _ := m.LastSent()
	if last.Text != "c" {
		t.Errorf("LastSent.Text = %q, want c", last.Text)
	}
	to1 := m.SentTo("1")
	if len(to1) != 2 || to1[0].Text != "a" || to1[1].Text != "c" {
		t.Errorf("SentTo(1) = %+v", to1)
	}
	if all := m.AllSent(); len(all) != 3 || len(all[1].Options) != 2 {
		t.Errorf("AllSent = %+v", all)
	}

	m.Reset()
	if m.SentCount() != 0 {
		t.Errorf("SentCount after Reset = %d, want 0", m.SentCount())
	}
}

func TestMockAdapter_RejectImage(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.Connect(ctx)
	m.RejectImage("broken.jpg")

	err := m.Send(ctx, OutboundMessage{ChatID: "1", ImageURL: "broken.jpg"})
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("err = %v, want ErrInvalidImage", err)
	}
	if err := m.Send(ctx, OutboundMessage{ChatID: "1", ImageURL: "ok.jpg"}); err != nil {
		t.Errorf("good image: %v", err)
	}
	if m.SentCount() != 1 {
		t.Errorf("SentCount = %d, want 1 (rejected image not recorded)", m.SentCount())
	}
}

func TestMockAdapter_SetSendError(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.Connect(ctx)

	boom := errors.New("network down")
	m.SetSendError(boom)
	if err := m.Send(ctx, OutboundMessage{ChatID: "1", Text: "x"}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	m.SetSendError(nil)
	if err := m.Send(ctx, OutboundMessage{ChatID: "1", Text: "x"}); err != nil {
		t.Errorf("after clearing: %v", err)
	}
}

func TestMockAdapter_CommandsAndBotUserID(t *testing.T) {
	m := NewMockAdapter()
	m.SetBotUserID("B1")
	if m.BotUserID() != "B1" {
		t.Errorf("BotUserID = %q, want B1", m.BotUserID())
	}
	cmds := []Command{{Name: "start", Description: "Start"}}
	if err := m.RegisterCommands(context.Background(), cmds); err != nil {
		t.Fatalf("RegisterCommands: %v", err)
	}
	cmds[0].Name = "mutated"
	if got := m.Commands(); len(got) != 1 || got[0].Name != "start" {
		t.Errorf("Commands = %+v", got)
	}
}

func TestMockAdapter_CloseClosesInbound(t *testing.T) {
	m := NewMockAdapter()
	ctx := context.Background()
	m.Connect(ctx)
	ch, _ := m.Listen(ctx)
	m.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("inbound channel not closed")
	}
}
