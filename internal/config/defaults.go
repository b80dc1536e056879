package config

const (
	defaultConfigPath            = "~/.config/framecloak/config.toml"
	defaultWorkDir               = "~/.local/share/framecloak/sessions"
	defaultLogDir                = "~/.local/share/framecloak/logs"
	defaultStateDir              = "~/.local/share/framecloak"
	defaultKeyDir                = "~/.config/framecloak/keys"
	defaultServerBind            = "127.0.0.1:5000"
	defaultMaxUploadMB           = 512
	defaultRequestTimeoutSeconds = 600
	defaultPartCount             = 10
	defaultMetadataWindow        = 5
	defaultFallbackFrames        = 15
	defaultOverflowPolicy        = OverflowError
	defaultDecodeMode            = DecodeAuto
	defaultFFmpegBinary          = "ffmpeg"
	defaultFFprobeBinary         = "ffprobe"
	defaultStaleAfterMinutes     = 60
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Overflow policies accepted by covert.overflow_policy.
const (
	OverflowError    = "error"
	OverflowTruncate = "truncate"
)

// Decode modes accepted by covert.decode_mode.
const (
	DecodeAuto   = "auto"
	DecodeStrict = "strict"
	DecodeRaw    = "raw"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			KeyDir:   defaultKeyDir,
			StateDir: defaultStateDir,
		},
		Server: Server{
			Bind:                  defaultServerBind,
			MaxUploadMB:           defaultMaxUploadMB,
			AllowedOrigins:        []string{"*"},
			RequestTimeoutSeconds: defaultRequestTimeoutSeconds,
		},
		Covert: Covert{
			PartCount:      defaultPartCount,
			MetadataWindow: defaultMetadataWindow,
			FallbackFrames: defaultFallbackFrames,
			OverflowPolicy: defaultOverflowPolicy,
			DecodeMode:     defaultDecodeMode,
		},
		Media: Media{
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobeBinary,
			KeepAudio:     true,
		},
		Sessions: Sessions{
			StaleAfterMinutes: defaultStaleAfterMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
