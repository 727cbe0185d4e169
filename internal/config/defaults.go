package config

const (
	defaultDataDir               = "~/.local/share/mnemo"
	defaultLogDir                = "~/.local/share/mnemo/logs"
	defaultLogFormat             = "auto"
	defaultLogLevel              = "info"
	defaultPollIntervalSeconds   = 5
	defaultStaleTimeoutSeconds   = 600
	defaultMaxRetries            = 3
	defaultTopK                  = 5
	defaultRevisionKeep          = 5
	defaultFailedMaxAgeDays      = 14
	defaultFailedMaxFiles        = 500
	defaultFailedCleanupInterval = 120
	defaultStaleRecoveryInterval = 12
	defaultMinFreeSpaceGiB       = 1
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Cognitive: Cognitive{
			Enabled:               true,
			PollIntervalSeconds:   defaultPollIntervalSeconds,
			StaleTimeoutSeconds:   defaultStaleTimeoutSeconds,
			MaxRetries:            defaultMaxRetries,
			TopK:                  defaultTopK,
			RevisionKeep:          defaultRevisionKeep,
			FailedMaxAgeDays:      defaultFailedMaxAgeDays,
			FailedMaxFiles:        defaultFailedMaxFiles,
			FailedCleanupInterval: defaultFailedCleanupInterval,
			StaleRecoveryInterval: defaultStaleRecoveryInterval,
			MinFreeSpaceGiB:       defaultMinFreeSpaceGiB,
		},
	}
}
