package cli_test

import (
	"testing"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v3"

	"github.com/temirov/mergereport/cmd/cli"
	"github.com/temirov/mergereport/internal/audit"
)

func TestEmbeddedDefaultConfigurationDecodes(testInstance *testing.T) {
	var rawConfiguration map[string]any
	require.NoError(testInstance, yaml.Unmarshal(cli.EmbeddedDefaultConfiguration(), &rawConfiguration))

	var decodedConfiguration cli.ApplicationConfiguration
	require.NoError(testInstance, mapstructure.Decode(rawConfiguration, &decodedConfiguration))

	require.Equal(testInstance, "info", decodedConfiguration.Common.LogLevel)
	require.Equal(testInstance, "structured", decodedConfiguration.Common.LogFormat)
	require.Equal(testInstance, audit.DefaultWindowStartConstant, decodedConfiguration.Tools.Report.WindowStart)
	require.Equal(testInstance, audit.DefaultWindowEndConstant, decodedConfiguration.Tools.Report.WindowEnd)
	require.Equal(testInstance, audit.DefaultBaseBranchConstant, decodedConfiguration.Tools.Report.BaseBranch)
	require.Equal(testInstance, audit.DefaultTicketPatternConstant, decodedConfiguration.Tools.Report.TicketPattern)
	require.Equal(testInstance, audit.DefaultReportPrefixConstant, decodedConfiguration.Tools.Report.ReportPrefix)
	require.False(testInstance, decodedConfiguration.Tools.Report.StrictTickets)
}
