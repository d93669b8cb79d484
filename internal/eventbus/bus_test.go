package eventbus

import "testing"

func TestBusPublishSubscribe(t *testing.T) {
	bus := New()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()

	bus.Publish("hello")

	if got := <-ch1; got != "hello" {
		t.Fatalf("expected hello, got %v", got)
	}
	if got := <-ch2; got != "hello" {
		t.Fatalf("expected hello, got %v", got)
	}
}

func TestBusDropsWhenSubscriberFull(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	for i := 0; i < 100; i++ {
		bus.Publish(i)
	}
	// The buffer holds 16 events; the rest are dropped, not blocked on.
	if len(ch) != 16 {
		t.Fatalf("expected a full buffer of 16, got %d", len(ch))
	}
}

func TestBusClose(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()
	bus.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected a closed channel")
	}
	// Publishing after close must not panic.
	bus.Publish("late")
	// Subscribing after close yields a closed channel.
	if _, ok := <-bus.Subscribe(); ok {
		t.Fatal("expected a closed channel from a closed bus")
	}
	// Double close is safe.
	bus.Close()
}
