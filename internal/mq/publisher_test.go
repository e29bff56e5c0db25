package mq

import (
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestAwaitAck_TimeoutReturnsNil(t *testing.T) {
	deliveries := make(chan amqp.Delivery)

	start := time.Now()
	ack := awaitAck(deliveries, "msg-1", 50*time.Millisecond)
	if ack != nil {
		t.Fatalf("expected nil ack on timeout, got %+v", ack)
	}
	if time.Since(start) < 50*time.Millisecond {
		t.Error("awaitAck returned before the timeout elapsed")
	}
}

func TestAwaitAck_CorrelationIDMatch(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{
		CorrelationId: "msg-2",
		Body:          []byte(`{"code":200}`),
	}

	ack := awaitAck(deliveries, "msg-2", time.Second)
	if ack == nil {
		t.Fatal("expected ack for matching correlation id")
	}
	if ack.MessageID != "msg-2" {
		t.Errorf("expected ack message id msg-2, got %s", ack.MessageID)
	}
	if string(ack.Body) != `{"code":200}` {
		t.Errorf("unexpected ack body: %s", ack.Body)
	}
}

func TestAwaitAck_PayloadEcho(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- amqp.Delivery{
		Body: []byte(`{"operator":"EditPerson-Ack","info":{"messageId":"msg-3","result":"ok"}}`),
	}

	ack := awaitAck(deliveries, "msg-3", time.Second)
	if ack == nil {
		t.Fatal("expected ack for payload-echoed message id")
	}
}

func TestAwaitAck_IgnoresUnrelatedAcks(t *testing.T) {
	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- amqp.Delivery{CorrelationId: "other-1"}
	deliveries <- amqp.Delivery{Body: []byte(`{"messageId":"other-2"}`)}
	deliveries <- amqp.Delivery{CorrelationId: "msg-4"}

	ack := awaitAck(deliveries, "msg-4", time.Second)
	if ack == nil {
		t.Fatal("expected awaitAck to skip unrelated acks and find the match")
	}
}

func TestAwaitAck_ClosedChannelReturnsNil(t *testing.T) {
	deliveries := make(chan amqp.Delivery)
	close(deliveries)

	if ack := awaitAck(deliveries, "msg-5", time.Second); ack != nil {
		t.Fatalf("expected nil ack when delivery channel closes, got %+v", ack)
	}
}

func TestAckMatches(t *testing.T) {
	tests := []struct {
		name      string
		delivery  amqp.Delivery
		messageID string
		want      bool
	}{
		{
			name:      "correlation id property",
			delivery:  amqp.Delivery{CorrelationId: "abc"},
			messageID: "abc",
			want:      true,
		},
		{
			name:      "top-level payload field",
			delivery:  amqp.Delivery{Body: []byte(`{"messageId":"abc"}`)},
			messageID: "abc",
			want:      true,
		},
		{
			name:      "nested info field",
			delivery:  amqp.Delivery{Body: []byte(`{"info":{"messageId":"abc"}}`)},
			messageID: "abc",
			want:      true,
		},
		{
			name:      "no correlation anywhere",
			delivery:  amqp.Delivery{CorrelationId: "xyz", Body: []byte(`{"messageId":"xyz"}`)},
			messageID: "abc",
			want:      false,
		},
		{
			name:      "malformed payload",
			delivery:  amqp.Delivery{Body: []byte(`not json`)},
			messageID: "abc",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ackMatches(tt.delivery, tt.messageID); got != tt.want {
				t.Errorf("ackMatches() = %v, want %v", got, tt.want)
			}
		})
	}
}
