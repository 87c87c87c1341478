package makemkv

import (
	"strconv"
	"strings"
)

// Robot-mode line tags emitted on stdout by makemkvcon.
const (
	tagDrive         = "DRV:"
	tagMessage       = "MSG:"
	tagProgressValue = "PRGV:"
	tagProgressTitle = "PRGT:"
	tagProgressStep  = "PRGC:"
)

// Drive flags values on DRV records. 2 marks a drive holding readable media;
// 0 and 256 both appear for empty trays across makemkvcon versions.
const (
	FlagsMediaPresent  = 2
	FlagsDriveEmpty    = 0
	FlagsDriveEmptyAlt = 256
)

// TypeCodeBluRay is the DRV type code for Blu-ray media. Other recognized
// codes (0, 1) denote DVD.
const TypeCodeBluRay = 12

// LineKind discriminates parsed robot-output lines.
type LineKind int

const (
	LineUnrecognized LineKind = iota
	LineDrive
	LineMessage
	LineProgressValue
	LineProgressTitle
	LineProgressStep
)

// DriveRecord is one drive row from makemkvcon's enumeration output.
type DriveRecord struct {
	Index       int
	Flags       int
	TypeCode    int
	Description string
	DiscName    string
	DriveLetter string
}

// Message is a free-text diagnostic line with its numeric code.
type Message struct {
	Code int
	Text string
	// Args are the raw sprintf fields following the text, when present.
	Args []string
}

// ProgressValue carries PRGV current/total/max counters.
type ProgressValue struct {
	Current int64
	Total   int64
	Max     int64
}

// Line is the total-parse result for one robot-output line. Exactly one of
// the payload fields is meaningful, selected by Kind; unrecognized input is
// returned as LineUnrecognized with Raw preserved, never dropped.
type Line struct {
	Kind     LineKind
	Raw      string
	Drive    DriveRecord
	Message  Message
	Progress ProgressValue
	// Title is the stage or step name for PRGT/PRGC lines.
	Title string
}

// ParseLine classifies a single line of robot output. It is total: any input,
// including empty or malformed text, yields a Line.
func ParseLine(raw string) Line {
	trimmed := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(trimmed, tagDrive):
		if record, ok := parseDriveRecord(strings.TrimPrefix(trimmed, tagDrive)); ok {
			return Line{Kind: LineDrive, Raw: raw, Drive: record}
		}
	case strings.HasPrefix(trimmed, tagMessage):
		if message, ok := parseMessage(strings.TrimPrefix(trimmed, tagMessage)); ok {
			return Line{Kind: LineMessage, Raw: raw, Message: message}
		}
	case strings.HasPrefix(trimmed, tagProgressValue):
		if progress, ok := parseProgressValue(strings.TrimPrefix(trimmed, tagProgressValue)); ok {
			return Line{Kind: LineProgressValue, Raw: raw, Progress: progress}
		}
	case strings.HasPrefix(trimmed, tagProgressTitle):
		if title, ok := parseProgressName(strings.TrimPrefix(trimmed, tagProgressTitle)); ok {
			return Line{Kind: LineProgressTitle, Raw: raw, Title: title}
		}
	case strings.HasPrefix(trimmed, tagProgressStep):
		if title, ok := parseProgressName(strings.TrimPrefix(trimmed, tagProgressStep)); ok {
			return Line{Kind: LineProgressStep, Raw: raw, Title: title}
		}
	}
	return Line{Kind: LineUnrecognized, Raw: raw}
}

// parseDriveRecord parses the payload of a DRV line:
//
//	index,flags,unused,typeCode,"description","discName","driveLetter"
func parseDriveRecord(payload string) (DriveRecord, bool) {
	fields := splitRobotFields(payload)
	if len(fields) < 7 {
		return DriveRecord{}, false
	}
	index, err := strconv.Atoi(fields[0])
	if err != nil {
		return DriveRecord{}, false
	}
	flags, err := strconv.Atoi(fields[1])
	if err != nil {
		return DriveRecord{}, false
	}
	typeCode, err := strconv.Atoi(fields[3])
	if err != nil {
		return DriveRecord{}, false
	}
	return DriveRecord{
		Index:       index,
		Flags:       flags,
		TypeCode:    typeCode,
		Description: fields[4],
		DiscName:    fields[5],
		DriveLetter: fields[6],
	}, true
}

// parseMessage parses the payload of a MSG line:
//
//	code,flags,count,"formatted text","format",args...
func parseMessage(payload string) (Message, bool) {
	fields := splitRobotFields(payload)
	if len(fields) < 4 {
		return Message{}, false
	}
	code, err := strconv.Atoi(fields[0])
	if err != nil {
		return Message{}, false
	}
	message := Message{Code: code, Text: fields[3]}
	if len(fields) > 5 {
		message.Args = fields[5:]
	}
	return message, true
}

func parseProgressValue(payload string) (ProgressValue, bool) {
	fields := splitRobotFields(payload)
	if len(fields) < 3 {
		return ProgressValue{}, false
	}
	current, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return ProgressValue{}, false
	}
	total, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return ProgressValue{}, false
	}
	max, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil || max <= 0 {
		return ProgressValue{}, false
	}
	return ProgressValue{Current: current, Total: total, Max: max}, true
}

// parseProgressName parses PRGT/PRGC payloads: code,id,"name".
func parseProgressName(payload string) (string, bool) {
	fields := splitRobotFields(payload)
	if len(fields) < 3 {
		return "", false
	}
	name := strings.TrimSpace(fields[2])
	if name == "" {
		return "", false
	}
	return name, true
}

// splitRobotFields splits a robot-output payload on commas while respecting
// double-quoted fields. Quotes are stripped from the returned values.
func splitRobotFields(payload string) []string {
	var fields []string
	var current strings.Builder
	inQuote := false
	for i := 0; i < len(payload); i++ {
		switch payload[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if inQuote {
				current.WriteByte(payload[i])
				continue
			}
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(payload[i])
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	return fields
}
