package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplicationExecutesHelpWithoutArguments(testInstance *testing.T) {
	application := NewApplication()
	outputBuffer := &bytes.Buffer{}
	application.rootCommand.SetOut(outputBuffer)
	application.rootCommand.SetErr(outputBuffer)
	application.rootCommand.SetArgs([]string{})

	require.NoError(testInstance, application.Execute())
	require.Contains(testInstance, outputBuffer.String(), "report")
}

func TestApplicationRegistersReportCommand(testInstance *testing.T) {
	application := NewApplication()

	registeredCommandNames := make([]string, 0)
	for _, registeredCommand := range application.rootCommand.Commands() {
		registeredCommandNames = append(registeredCommandNames, registeredCommand.Name())
	}
	require.Contains(testInstance, registeredCommandNames, "report")
}

func TestApplicationRejectsUnsupportedLogLevel(testInstance *testing.T) {
	application := NewApplication()
	application.rootCommand.SetOut(&bytes.Buffer{})
	application.rootCommand.SetErr(&bytes.Buffer{})
	application.rootCommand.SetArgs([]string{"--log-level", "verbose"})

	require.Error(testInstance, application.Execute())
}

func TestPersistentFlagChangedDetectsRootFlags(testInstance *testing.T) {
	application := NewApplication()
	require.False(testInstance, application.persistentFlagChanged(application.rootCommand, logLevelFlagNameConstant))

	require.NoError(testInstance, application.rootCommand.PersistentFlags().Set(logLevelFlagNameConstant, "debug"))
	require.True(testInstance, application.persistentFlagChanged(application.rootCommand, logLevelFlagNameConstant))
}
