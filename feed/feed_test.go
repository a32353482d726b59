package feed

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gocloud.dev/pubsub"
	"gocloud.dev/pubsub/mempubsub"
)

func TestEvent_Codec(t *testing.T) {
	want := Event{EntityID: "inst-1", Version: "01HV"}
	p, err := want.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(p)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	if _, err := Decode([]byte("not gob")); err == nil {
		t.Errorf("expected error decoding garbage")
	}
}

func TestPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	topic := mempubsub.NewTopic()
	defer topic.Shutdown(ctx)
	sub := mempubsub.NewSubscription(topic, time.Minute)
	defer sub.Shutdown(ctx)

	pub := NewPublisher(topic)
	sent := []Event{
		{EntityID: "inst-1", Version: "v1"},
		{EntityID: "inst-2", Version: "v1"},
		{EntityID: "inst-1", Version: "v2"},
	}
	for _, e := range sent {
		if err := pub.Publish(ctx, e); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	// A message that is not an event must be skipped.
	if err := topic.Send(ctx, &pubsub.Message{Body: []byte("garbage")}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if err := pub.Publish(ctx, Event{EntityID: "inst-3", Version: "v9"}); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	var got []Event
	done := make(chan error, 1)
	go func() {
		done <- NewSubscriber(sub).Run(runCtx, func(_ context.Context, e Event) error {
			got = append(got, e)
			if len(got) == 4 {
				stop()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for events")
	}

	want := append(sent, Event{EntityID: "inst-3", Version: "v9"})
	byKey := cmpopts.SortSlices(func(a, b Event) bool {
		return a.EntityID+a.Version < b.EntityID+b.Version
	})
	if diff := cmp.Diff(want, got, byKey); diff != "" {
		t.Errorf("received events mismatch (-want +got):\n%s", diff)
	}
}
