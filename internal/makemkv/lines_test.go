package makemkv

import "testing"

func TestParseLineDriveRecord(t *testing.T) {
	line := ParseLine(`DRV:0,2,999,12,"BD-RE ASUS BW-16D1HT","THE_DARK_KNIGHT","E:"`)
	if line.Kind != LineDrive {
		t.Fatalf("expected drive record, got kind %d", line.Kind)
	}
	drive := line.Drive
	if drive.Index != 0 {
		t.Fatalf("unexpected index: %d", drive.Index)
	}
	if drive.Flags != FlagsMediaPresent {
		t.Fatalf("unexpected flags: %d", drive.Flags)
	}
	if drive.TypeCode != TypeCodeBluRay {
		t.Fatalf("unexpected type code: %d", drive.TypeCode)
	}
	if drive.Description != "BD-RE ASUS BW-16D1HT" {
		t.Fatalf("unexpected description: %q", drive.Description)
	}
	if drive.DiscName != "THE_DARK_KNIGHT" {
		t.Fatalf("unexpected disc name: %q", drive.DiscName)
	}
	if drive.DriveLetter != "E:" {
		t.Fatalf("unexpected drive letter: %q", drive.DriveLetter)
	}
}

func TestParseLineDriveRecordWithCommaInQuotes(t *testing.T) {
	line := ParseLine(`DRV:1,2,999,1,"DVD+R, dual layer","MOVIE_DISC","F:"`)
	if line.Kind != LineDrive {
		t.Fatalf("expected drive record, got kind %d", line.Kind)
	}
	if line.Drive.Description != "DVD+R, dual layer" {
		t.Fatalf("quoted comma mangled: %q", line.Drive.Description)
	}
	if line.Drive.DriveLetter != "F:" {
		t.Fatalf("unexpected drive letter: %q", line.Drive.DriveLetter)
	}
}

func TestParseLineMessage(t *testing.T) {
	line := ParseLine(`MSG:5004,0,2,"2 titles saved, 1 failed","%1 titles saved, %2 failed","2","1"`)
	if line.Kind != LineMessage {
		t.Fatalf("expected message, got kind %d", line.Kind)
	}
	if line.Message.Code != MsgCompleted {
		t.Fatalf("unexpected code: %d", line.Message.Code)
	}
	if line.Message.Text != "2 titles saved, 1 failed" {
		t.Fatalf("unexpected text: %q", line.Message.Text)
	}
	if len(line.Message.Args) != 2 || line.Message.Args[0] != "2" || line.Message.Args[1] != "1" {
		t.Fatalf("unexpected args: %v", line.Message.Args)
	}
}

func TestParseLineProgress(t *testing.T) {
	line := ParseLine("PRGV:1024,2048,65536")
	if line.Kind != LineProgressValue {
		t.Fatalf("expected progress value, got kind %d", line.Kind)
	}
	if line.Progress.Total != 2048 || line.Progress.Max != 65536 {
		t.Fatalf("unexpected progress: %+v", line.Progress)
	}

	title := ParseLine(`PRGT:5018,0,"Backing up disc"`)
	if title.Kind != LineProgressTitle || title.Title != "Backing up disc" {
		t.Fatalf("unexpected title line: %+v", title)
	}
}

func TestParseLineTotality(t *testing.T) {
	inputs := []string{
		"",
		"garbage",
		"DRV:not,enough",
		"DRV:x,y,z,w,\"a\",\"b\",\"c\"",
		"MSG:",
		"PRGV:1,2",
		"PRGV:1,2,0",
		`TCOUNT:3`,
	}
	for _, input := range inputs {
		line := ParseLine(input)
		if line.Kind != LineUnrecognized {
			t.Fatalf("expected %q to be unrecognized, got kind %d", input, line.Kind)
		}
		if line.Raw != input {
			t.Fatalf("raw input not preserved for %q", input)
		}
	}
}

func TestParseLineEmptyDriveRecordsStillParse(t *testing.T) {
	line := ParseLine(`DRV:2,0,999,0,"DVD drive","",""`)
	if line.Kind != LineDrive {
		t.Fatalf("expected drive record, got kind %d", line.Kind)
	}
	if line.Drive.Flags != FlagsDriveEmpty {
		t.Fatalf("unexpected flags: %d", line.Drive.Flags)
	}
}
