package config

const (
	defaultWorkspaceDir        = "~/.local/share/kiln/workspace"
	defaultLogDir              = "~/.local/share/kiln/logs"
	defaultWorkerBinary        = "blender"
	defaultWorkerLimit         = 4
	defaultStopGraceSeconds    = 5
	defaultResolution          = 2048
	defaultValueResolution     = 4
	defaultBatchTimeoutSeconds = 1800
	defaultTickIntervalMS      = 250
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			LogDir:       defaultLogDir,
		},
		Worker: Worker{
			Binary:           defaultWorkerBinary,
			Limit:            defaultWorkerLimit,
			StopGraceSeconds: defaultStopGraceSeconds,
		},
		Bake: Bake{
			Resolution:          defaultResolution,
			ValueResolution:     defaultValueResolution,
			BatchTimeoutSeconds: defaultBatchTimeoutSeconds,
			TickIntervalMS:      defaultTickIntervalMS,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
