package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/mergereport/cmd/cli"
	"github.com/temirov/mergereport/internal/audit"
)

const exitErrorTemplateConstant = "%v\n"

// main executes the mergereport command-line application.
func main() {
	executionError := cli.Execute()
	if executionError == nil {
		return
	}

	fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)

	var exitCodeError audit.ExitCodeError
	if errors.As(executionError, &exitCodeError) {
		os.Exit(exitCodeError.Code)
	}
	os.Exit(audit.ExitCodeGeneralFailure)
}
