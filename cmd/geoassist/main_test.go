package main

import "testing"

func TestMainWiring(t *testing.T) {
	origSetVersion := setVersionInfo
	origExecute := executeCmd
	t.Cleanup(func() {
		setVersionInfo = origSetVersion
		executeCmd = origExecute
	})

	var versioned, executed bool
	setVersionInfo = func(v, c, d string) {
		versioned = true
		if v == "" || c == "" || d == "" {
			t.Fatalf("expected version info to be set")
		}
	}
	executeCmd = func() {
		if !versioned {
			t.Fatal("version info must be set before execution")
		}
		executed = true
	}

	main()

	if !versioned || !executed {
		t.Fatalf("expected both wiring calls, got version=%v exec=%v", versioned, executed)
	}
}
