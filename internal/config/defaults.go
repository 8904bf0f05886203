package config

const (
	defaultIncomingDir        = "~/.local/share/packflow/incoming"
	defaultWorkDir            = "~/.local/share/packflow/work"
	defaultPublicDir          = "~/.local/share/packflow/publish"
	defaultLogDir             = "~/.local/share/packflow/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultScanInterval       = 10
	defaultErrorRetryInterval = 5
	defaultMergePollInterval  = 2
	defaultMergeTimeout       = 600
	defaultMaxConcurrent      = 4
	defaultMetadataFileName   = ".session"
	defaultSpriteCellWidth    = 142
	defaultSpriteCellHeight   = 80
	defaultSpriteColumns      = 5
	defaultSpriteMaxRows      = 5
	defaultSpriteQuality      = 90
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			IncomingDir: defaultIncomingDir,
			WorkDir:     defaultWorkDir,
			PublicDir:   defaultPublicDir,
			LogDir:      defaultLogDir,
		},
		Workflow: Workflow{
			ScanInterval:       defaultScanInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			MergePollInterval:  defaultMergePollInterval,
			MergeTimeout:       defaultMergeTimeout,
			MaxConcurrent:      defaultMaxConcurrent,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Points: Points{
			MetadataFileName: defaultMetadataFileName,
			SpriteCellWidth:  defaultSpriteCellWidth,
			SpriteCellHeight: defaultSpriteCellHeight,
			SpriteColumns:    defaultSpriteColumns,
			SpriteMaxRows:    defaultSpriteMaxRows,
			SpriteQuality:    defaultSpriteQuality,
			ImageExtensions:  []string{"jpg", "jpeg", "gif"},
		},
		Platforms: map[string]Platform{},
	}
}
