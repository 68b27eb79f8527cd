package config

import (
	"os"
	"testing"
)

// chdirForTest changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which requires Go 1.24).
func chdirForTest(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("chdir: getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("chdir: restore %s: %v", oldwd, err)
		}
	})
}
