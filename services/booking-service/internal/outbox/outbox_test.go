package outbox

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/portfolio-site/meetbook/libs/kafkax"
	"github.com/portfolio-site/meetbook/services/booking-service/internal/model"
)

func TestMeetingEventTypes(t *testing.T) {
	start := time.Date(2024, 1, 2, 19, 0, 0, 0, time.UTC)
	cases := map[string]string{
		model.MeetingRequested: EventMeetingRequested,
		model.MeetingConfirmed: EventMeetingConfirmed,
		model.MeetingDeclined:  EventMeetingDeclined,
	}
	for status, want := range cases {
		evt, err := MeetingEvent(model.Meeting{ID: "m-1", Status: status, StartTime: start, EndTime: start.Add(time.Hour)})
		if err != nil {
			t.Fatalf("%s: %v", status, err)
		}
		if evt.EventType != want || evt.AggregateID != "m-1" || evt.AggregateType != AggregateMeeting {
			t.Fatalf("%s: unexpected event %+v", status, evt)
		}
		var payload map[string]any
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if payload["status"] != status || payload["start_time"] != "2024-01-02T19:00:00Z" {
			t.Fatalf("unexpected payload %v", payload)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	r := Record{
		ID:          7,
		EventID:     "evt-1",
		AggregateID: "m-1",
		EventType:   EventMeetingConfirmed,
		Payload:     []byte(`{}`),
		Traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
	}
	msg := BuildMessage(context.Background(), r)
	if msg.Topic != EventMeetingConfirmed || string(msg.Key) != "m-1" {
		t.Fatalf("unexpected routing %s/%s", msg.Topic, msg.Key)
	}
	if kafkax.HeaderValue(msg.Headers, kafkax.HeaderEventID) != "evt-1" {
		t.Fatalf("missing event id header")
	}
	if kafkax.HeaderValue(msg.Headers, "traceparent") != r.Traceparent {
		t.Fatalf("trace context not propagated: %v", msg.Headers)
	}
}
