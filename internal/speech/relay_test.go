package speech

import (
	"context"
	"sync"
	"testing"
)

func TestRelayDirectiveSupersedes(t *testing.T) {
	r := NewRelay()
	defer r.Close()

	ctx := context.Background()
	if err := r.Speak(ctx, SpeakRequest{SessionID: "s1", Generation: 1, Text: "first", Locale: "en-US"}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}
	if err := r.Listen(ctx, ListenRequest{SessionID: "s1", Generation: 2, Locale: "hi-IN"}); err != nil {
		t.Fatalf("Listen failed: %v", err)
	}

	// Only the newest directive survives.
	d := r.NextDirective("s1")
	if d.Action != ActionListen || d.Generation != 2 || d.Locale != "hi-IN" {
		t.Fatalf("directive = %+v, want listen generation 2", d)
	}

	// Popping empties the slot.
	if d := r.NextDirective("s1"); d.Action != ActionNone {
		t.Errorf("second poll = %+v, want none", d)
	}
}

func TestRelayDirectivesPerSession(t *testing.T) {
	r := NewRelay()
	defer r.Close()

	ctx := context.Background()
	_ = r.Speak(ctx, SpeakRequest{SessionID: "a", Generation: 1, Text: "hello"})
	_ = r.Stop(ctx, "b")

	if d := r.NextDirective("a"); d.Action != ActionSpeak || d.Text != "hello" {
		t.Errorf("session a directive = %+v", d)
	}
	if d := r.NextDirective("b"); d.Action != ActionStop {
		t.Errorf("session b directive = %+v", d)
	}
}

func TestRelayPushEvent(t *testing.T) {
	r := NewRelay()
	defer r.Close()

	ev := Event{SessionID: "s1", Kind: EventRecognized, Generation: 3, Text: "hindi"}
	if err := r.PushEvent(ev); err != nil {
		t.Fatalf("PushEvent failed: %v", err)
	}
	got := <-r.Events()
	if got != ev {
		t.Errorf("event = %+v, want %+v", got, ev)
	}
}

func TestRelayPushEventRejectsUnknownKind(t *testing.T) {
	r := NewRelay()
	defer r.Close()

	if err := r.PushEvent(Event{SessionID: "s1", Kind: "bogus"}); err == nil {
		t.Fatal("unknown event kind accepted")
	}
}

func TestRelayClosedDropsWork(t *testing.T) {
	r := NewRelay()
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := r.Speak(context.Background(), SpeakRequest{SessionID: "s1"}); err == nil {
		t.Error("Speak succeeded on closed relay")
	}
	// Events after close are dropped without error.
	if err := r.PushEvent(Event{SessionID: "s1", Kind: EventSpeechDone}); err != nil {
		t.Errorf("PushEvent on closed relay returned %v, want silent drop", err)
	}
}

func TestRelayPushEventConcurrentWithClose(t *testing.T) {
	r := NewRelay()

	// Concurrent senders racing Close must either deliver or drop, never
	// panic on a closed channel.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 4; j++ {
				_ = r.PushEvent(Event{SessionID: "s1", Kind: EventSpeechDone})
			}
		}()
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	wg.Wait()
}

func TestErrorKindFatal(t *testing.T) {
	if ErrorNoSpeech.Fatal() {
		t.Error("no-speech reported fatal")
	}
	if !ErrorNotAllowed.Fatal() || !ErrorServiceNotAllowed.Fatal() {
		t.Error("permission errors not reported fatal")
	}
}
