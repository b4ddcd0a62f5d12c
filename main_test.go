package main

import (
	"os"
	"os/exec"
	"strings"
	"testing"
)

// TestMain_TableCommand runs main in a subprocess and checks it reaches the command tree.
func TestMain_TableCommand(t *testing.T) {
	if os.Getenv("MORSEKEY_RUN_MAIN") == "1" {
		os.Args = []string{"morsekey", "table"}
		main()
		return
	}

	home := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=TestMain_TableCommand")
	cmd.Env = append(os.Environ(), "MORSEKEY_RUN_MAIN=1", "HOME="+home, "XDG_CONFIG_HOME=")
	cmd.Dir = home
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("main() failed: %v\n%s", err, out)
	}
	if !strings.Contains(string(out), "S  ...") {
		t.Errorf("main() output missing table rows:\n%s", out)
	}
}
