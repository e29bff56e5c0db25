package parser

import (
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

const recTopic = "mqtt/face/52084890/Rec"

func validPayload(similarity float64) []byte {
	return []byte(fmt.Sprintf(`{
		"operator": "RecPush",
		"info": {
			"customId": "EMP-0042",
			"personId": 17,
			"RecordID": 9051,
			"time": "2025-02-13 19:35:00",
			"similarity1": %f,
			"VerifyStatus": 1,
			"persionName": "Maria Santos"
		}
	}`, similarity))
}

func newTestParser() *Parser {
	return NewParser(zap.NewNop())
}

func TestDeviceSerialFromTopic(t *testing.T) {
	serial, ok := DeviceSerialFromTopic(recTopic)
	if !ok {
		t.Fatal("expected recognition topic to match")
	}
	if serial != "52084890" {
		t.Errorf("expected serial 52084890, got %s", serial)
	}

	for _, topic := range []string{
		"mqtt/face/52084890/Snap",
		"mqtt/heartbeat",
		"face//Rec",
		"mqtt/face/abc/Rec",
		"",
	} {
		if _, ok := DeviceSerialFromTopic(topic); ok {
			t.Errorf("expected topic %q not to match", topic)
		}
	}
}

func TestParse_ValidEvent(t *testing.T) {
	p := newTestParser()

	event, ok := p.Parse(recTopic, validPayload(98.5))
	if !ok {
		t.Fatal("expected valid payload to parse")
	}

	if event.DeviceSerial != "52084890" {
		t.Errorf("expected device serial 52084890, got %s", event.DeviceSerial)
	}
	if event.EmployeeCode != "EMP-0042" {
		t.Errorf("expected employee code EMP-0042, got %s", event.EmployeeCode)
	}
	if event.PersonID != "17" || event.RecordID != "9051" {
		t.Errorf("unexpected ids: person=%s record=%s", event.PersonID, event.RecordID)
	}
	if event.Confidence != 98.5 {
		t.Errorf("expected confidence 98.5, got %f", event.Confidence)
	}
	if event.TimeDefaulted {
		t.Error("timestamp parsed, must not be defaulted")
	}

	expected := time.Date(2025, 2, 13, 19, 35, 0, 0, time.UTC)
	if !event.Timestamp.Equal(expected) {
		t.Errorf("expected timestamp %v, got %v", expected, event.Timestamp)
	}
}

func TestParse_ConfidenceClamped(t *testing.T) {
	p := newTestParser()

	event, ok := p.Parse(recTopic, validPayload(250))
	if !ok {
		t.Fatal("expected payload to parse")
	}
	if event.Confidence != 100 {
		t.Errorf("expected confidence clamped to 100, got %f", event.Confidence)
	}

	event, ok = p.Parse(recTopic, validPayload(-3))
	if !ok {
		t.Fatal("expected payload to parse")
	}
	if event.Confidence != 0 {
		t.Errorf("expected confidence clamped to 0, got %f", event.Confidence)
	}
}

func TestParse_RejectsBadTopic(t *testing.T) {
	p := newTestParser()

	if _, ok := p.Parse("mqtt/face/52084890/Snap", validPayload(90)); ok {
		t.Error("expected non-recognition topic to be rejected")
	}
}

func TestParse_RejectsBadJSON(t *testing.T) {
	p := newTestParser()

	if _, ok := p.Parse(recTopic, []byte("{not json")); ok {
		t.Error("expected undecodable payload to be rejected")
	}
}

func TestParse_RejectsMissingFields(t *testing.T) {
	p := newTestParser()

	payloads := [][]byte{
		[]byte(`{"info": {"customId": "EMP-1", "personId": 1, "RecordID": 2, "time": "2025-02-13 08:00:00"}}`),
		[]byte(`{"operator": "RecPush", "info": {"personId": 1, "RecordID": 2, "time": "2025-02-13 08:00:00"}}`),
		[]byte(`{"operator": "RecPush", "info": {"customId": "EMP-1", "RecordID": 2, "time": "2025-02-13 08:00:00"}}`),
		[]byte(`{"operator": "RecPush", "info": {"customId": "EMP-1", "personId": 1, "time": "2025-02-13 08:00:00"}}`),
		[]byte(`{"operator": "RecPush", "info": {"customId": "EMP-1", "personId": 1, "RecordID": 2}}`),
	}

	for i, payload := range payloads {
		if _, ok := p.Parse(recTopic, payload); ok {
			t.Errorf("payload %d: expected rejection for missing required field", i)
		}
	}
}

func TestParse_UnparsableTimeDefaultsToNow(t *testing.T) {
	p := newTestParser()
	fixed := time.Date(2025, 2, 13, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	payload := []byte(`{
		"operator": "RecPush",
		"info": {"customId": "EMP-1", "personId": 1, "RecordID": 2, "time": "garbage"}
	}`)

	event, ok := p.Parse(recTopic, payload)
	if !ok {
		t.Fatal("a bad timestamp must not reject the event")
	}
	if !event.TimeDefaulted {
		t.Error("expected TimeDefaulted flag")
	}
	if !event.Timestamp.Equal(fixed) {
		t.Errorf("expected fallback timestamp %v, got %v", fixed, event.Timestamp)
	}
}

func TestNormalizeDirection(t *testing.T) {
	cases := map[string]Direction{
		"in":       DirectionIn,
		"IN":       DirectionIn,
		"enter":    DirectionIn,
		"out":      DirectionOut,
		"Checkout": DirectionOut,
		"":         DirectionNone,
		"  ":       DirectionNone,
		"lobby":    Direction("lobby"),
	}

	for raw, expected := range cases {
		if got := NormalizeDirection(raw); got != expected {
			t.Errorf("NormalizeDirection(%q): expected %q, got %q", raw, expected, got)
		}
	}
}
