package audit

import "strings"

// Built-in configuration defaults.
const (
	DefaultWindowStartConstant     = "2024-01-01"
	DefaultWindowEndConstant       = "2024-12-31"
	DefaultBaseBranchConstant      = "main"
	DefaultTicketPatternConstant   = "[A-Z][A-Z0-9]+-[0-9]+"
	DefaultReportPrefixConstant    = "merged_prs_"
	DefaultCloneRootConstant       = ".mergereport/clones"
	DefaultReportDirectoryConstant = "."
)

// CommandConfiguration captures persistent settings for the report command.
type CommandConfiguration struct {
	Organization    string `mapstructure:"organization"`
	WindowStart     string `mapstructure:"window_start"`
	WindowEnd       string `mapstructure:"window_end"`
	BaseBranch      string `mapstructure:"base_branch"`
	TicketPattern   string `mapstructure:"ticket_pattern"`
	TicketURLPrefix string `mapstructure:"ticket_url_prefix"`
	ReportPrefix    string `mapstructure:"report_prefix"`
	CloneRoot       string `mapstructure:"clone_root"`
	ReportDirectory string `mapstructure:"report_dir"`
	StrictTickets   bool   `mapstructure:"strict_tickets"`
	StrictSubjects  bool   `mapstructure:"strict_subjects"`
	StrictApprovers bool   `mapstructure:"strict_approvers"`
	Debug           bool   `mapstructure:"debug"`
}

// DefaultCommandConfiguration returns baseline configuration values for the report command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		WindowStart:     DefaultWindowStartConstant,
		WindowEnd:       DefaultWindowEndConstant,
		BaseBranch:      DefaultBaseBranchConstant,
		TicketPattern:   DefaultTicketPatternConstant,
		ReportPrefix:    DefaultReportPrefixConstant,
		CloneRoot:       DefaultCloneRootConstant,
		ReportDirectory: DefaultReportDirectoryConstant,
	}
}

// DefaultConfigurationValues returns viper defaults registered under the provided key prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + ".window_start":   defaults.WindowStart,
		configurationKeyPrefix + ".window_end":     defaults.WindowEnd,
		configurationKeyPrefix + ".base_branch":    defaults.BaseBranch,
		configurationKeyPrefix + ".ticket_pattern": defaults.TicketPattern,
		configurationKeyPrefix + ".report_prefix":  defaults.ReportPrefix,
		configurationKeyPrefix + ".clone_root":     defaults.CloneRoot,
		configurationKeyPrefix + ".report_dir":     defaults.ReportDirectory,
	}
}

// sanitize trims whitespace and applies defaults to unset configuration values.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.Organization = strings.TrimSpace(configuration.Organization)
	sanitized.WindowStart = fallbackWhenBlank(configuration.WindowStart, DefaultWindowStartConstant)
	sanitized.WindowEnd = fallbackWhenBlank(configuration.WindowEnd, DefaultWindowEndConstant)
	sanitized.BaseBranch = fallbackWhenBlank(configuration.BaseBranch, DefaultBaseBranchConstant)
	sanitized.TicketPattern = fallbackWhenBlank(configuration.TicketPattern, DefaultTicketPatternConstant)
	sanitized.TicketURLPrefix = strings.TrimSpace(configuration.TicketURLPrefix)
	sanitized.ReportPrefix = fallbackWhenBlank(configuration.ReportPrefix, DefaultReportPrefixConstant)
	sanitized.CloneRoot = fallbackWhenBlank(configuration.CloneRoot, DefaultCloneRootConstant)
	sanitized.ReportDirectory = fallbackWhenBlank(configuration.ReportDirectory, DefaultReportDirectoryConstant)

	return sanitized
}

func fallbackWhenBlank(rawValue string, defaultValue string) string {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return defaultValue
	}
	return trimmedValue
}
