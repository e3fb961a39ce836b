package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func TestCheck(t *testing.T) {
	logger := log.StandardLogger()
	var out bytes.Buffer
	exitCode := -1
	oldOut, oldExit := logger.Out, logger.ExitFunc
	logger.SetOutput(&out)
	logger.ExitFunc = func(code int) { exitCode = code }
	defer func() {
		logger.SetOutput(oldOut)
		logger.ExitFunc = oldExit
	}()

	Check(nil)
	if exitCode != -1 || out.Len() != 0 {
		t.Fatalf("Check(nil) exited with %d and logged %q", exitCode, out.String())
	}

	Check(errors.New("address in use"))
	if exitCode != 1 {
		t.Errorf("exit code = %d, want 1", exitCode)
	}
	if logged := out.String(); !strings.Contains(logged, "Exiting: address in use") || strings.Contains(logged, "[") {
		t.Errorf("logged %q, want the plain error message", logged)
	}
}
