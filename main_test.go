package main

import (
	"bytes"
	"os"
	"os/exec"
	"testing"
)

// TestMain_Encode runs the binary entry point in a subprocess.
func TestMain_Encode(t *testing.T) {
	if os.Getenv("CWKEYER_RUN_MAIN") == "1" {
		os.Args = []string{"cwkeyer", "encode", "sos"}
		main()
		return
	}

	home := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=TestMain_Encode")
	cmd.Env = append(os.Environ(), "CWKEYER_RUN_MAIN=1", "HOME="+home, "XDG_CONFIG_HOME=")

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		t.Fatalf("subprocess error = %v", err)
	}
	if !bytes.Contains(stdout.Bytes(), []byte("... --- ...")) {
		t.Errorf("stdout should contain the code for SOS, got: %s", stdout.String())
	}
}
