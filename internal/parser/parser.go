package parser

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/workpulse-hris/attendance-worker/tools/timeparser"
	"go.uber.org/zap"
)

// Direction is a normalized punch direction hint
type Direction string

const (
	DirectionIn   Direction = "in"
	DirectionOut  Direction = "out"
	DirectionNone Direction = ""
)

// AttendanceEvent is a decoded face-terminal recognition event. It is
// ephemeral: the ingest pipeline turns it into a persisted attendance log.
type AttendanceEvent struct {
	DeviceSerial  string
	PersonID      string
	RecordID      string
	EmployeeCode  string
	Confidence    float64
	VerifyStatus  int
	Timestamp     time.Time
	TimeDefaulted bool
	Direction     Direction
	PersonName    string
	RawPayload    []byte
}

// recTopicPattern captures the numeric device serial from topics shaped
// like "mqtt/face/12345/Rec".
var recTopicPattern = regexp.MustCompile(`face/(\d+)/Rec$`)

// recPayload mirrors the terminal's recognition push message
type recPayload struct {
	Operator string `json:"operator"`
	Info     struct {
		CustomID     string      `json:"customId"`
		PersonID     json.Number `json:"personId"`
		RecordID     json.Number `json:"RecordID"`
		Time         string      `json:"time"`
		Similarity   float64     `json:"similarity1"`
		VerifyStatus int         `json:"VerifyStatus"`
		Direction    string      `json:"direction"`
		PersonName   string      `json:"persionName"`
	} `json:"info"`
}

// Parser decodes topic+payload pairs from the device exchange
type Parser struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewParser creates a new message parser
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger, now: time.Now}
}

// DeviceSerialFromTopic extracts the device serial from a recognition
// topic. Returns false when the topic is not a recognition topic.
func DeviceSerialFromTopic(topic string) (string, bool) {
	m := recTopicPattern.FindStringSubmatch(topic)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Parse decodes an attendance event from a topic and raw payload.
// All rejections are logged and reported as ok=false; Parse never
// propagates an error to the caller.
func (p *Parser) Parse(topic string, payload []byte) (*AttendanceEvent, bool) {
	serial, ok := DeviceSerialFromTopic(topic)
	if !ok {
		p.logger.Debug("topic is not a recognition topic", zap.String("topic", topic))
		return nil, false
	}

	var msg recPayload
	if err := json.Unmarshal(payload, &msg); err != nil {
		p.logger.Warn("rejecting undecodable recognition payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return nil, false
	}

	if msg.Operator == "" {
		p.logger.Warn("rejecting payload without operator discriminator",
			zap.String("topic", topic))
		return nil, false
	}

	personID := msg.Info.PersonID.String()
	recordID := msg.Info.RecordID.String()
	if personID == "" || recordID == "" || msg.Info.CustomID == "" || msg.Info.Time == "" {
		p.logger.Warn("rejecting recognition payload with missing required fields",
			zap.String("topic", topic),
			zap.String("person_id", personID),
			zap.String("record_id", recordID),
			zap.String("custom_id", msg.Info.CustomID),
		)
		return nil, false
	}

	event := &AttendanceEvent{
		DeviceSerial: serial,
		PersonID:     personID,
		RecordID:     recordID,
		EmployeeCode: msg.Info.CustomID,
		Confidence:   clampConfidence(msg.Info.Similarity),
		VerifyStatus: msg.Info.VerifyStatus,
		Direction:    NormalizeDirection(msg.Info.Direction),
		PersonName:   msg.Info.PersonName,
		RawPayload:   payload,
	}

	ts, err := timeparser.ParseDeviceTimestamp(msg.Info.Time)
	if err != nil {
		// A punch with an unreadable time is still a punch; keep it on
		// the current instant and flag it for reconciliation.
		event.Timestamp = p.now()
		event.TimeDefaulted = true
		p.logger.Warn("punch timestamp unparsable, defaulting to now",
			zap.String("device_serial", serial),
			zap.String("raw_time", msg.Info.Time),
			zap.Error(err),
		)
	} else {
		event.Timestamp = ts
	}

	return event, true
}

// NormalizeDirection maps a raw direction hint into the closed set the
// matcher understands. Unrecognized non-empty values pass through
// verbatim so downstream logic can still inspect them.
func NormalizeDirection(raw string) Direction {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "in", "checkin", "enter":
		return DirectionIn
	case "out", "checkout", "exit":
		return DirectionOut
	case "":
		return DirectionNone
	default:
		return Direction(strings.TrimSpace(raw))
	}
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
