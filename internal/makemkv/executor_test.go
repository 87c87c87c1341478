package makemkv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

// The default executor feeds stdout and stderr into one callback. Callers
// mutate maps and counters inside it, so overlapping invocations corrupt
// state; the race detector flags any regression here.
func TestCommandExecutorSerializesCallback(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("sh not available: %v", err)
	}

	const perStream = 200
	script := filepath.Join(t.TempDir(), "emit.sh")
	body := fmt.Sprintf(`#!/bin/sh
i=0
while [ $i -lt %d ]; do
  echo "DRV:$i,2,999,12,\"BD-RE\",\"DISC\",\"E:\"" &
  echo "MSG:2003,0,1,\"line $i\",\"line $i\"" >&2 &
  i=$((i+1))
done
wait
`, perStream)
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	seen := make(map[string]int)
	depth := 0
	err := commandExecutor{}.Run(context.Background(), "sh", []string{script}, func(line string) {
		depth++
		if depth != 1 {
			t.Errorf("callback reentered, depth %d", depth)
		}
		seen[line]++
		depth--
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	total := 0
	for _, count := range seen {
		total += count
	}
	if total != 2*perStream {
		t.Fatalf("expected %d callback invocations, got %d", 2*perStream, total)
	}
}
