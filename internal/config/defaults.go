package config

const (
	defaultLibraryDir    = "~/music/bootlegs"
	defaultLogDir        = "~/.local/share/cratedig/logs"
	defaultCacheDir      = "~/.cache/cratedig"
	defaultRefDBPath     = "~/.local/share/cratedig/refdb.sqlite"
	defaultLiveDir       = "Live"
	defaultOuttakesDir   = "Outtakes"
	defaultOfficialDir   = "Official"
	defaultUnofficialDir = "Unofficial"

	defaultAcoustIDBaseURL        = "https://api.acoustid.org/v2/lookup"
	defaultAcoustIDTimeoutSeconds = 10
	defaultFpcalcBinary           = "fpcalc"

	defaultMusicBrainzBaseURL   = "https://musicbrainz.org/ws/2"
	defaultMusicBrainzUserAgent = "cratedig/0.1 (cratedig@example.com)"
	defaultMusicBrainzTimeout   = 10
	defaultMaxMetadataLookups   = 5
	defaultMusicBrainzRateLimit = 1

	defaultRefDBSimilarityThreshold = 0.6
	defaultRefDBMaxResults          = 10

	defaultLLMBackend        = "openrouter"
	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMReferer        = "https://github.com/cratedig/cratedig"
	defaultLLMTitle          = "Cratedig Tag Normalizer"
	defaultLLMTimeoutSeconds = 30

	// Auto-apply is never permitted: a zero min_auto_score means every
	// proposal requires explicit human review regardless of confidence.
	defaultMinAutoScore           = 0.0
	defaultAlternateProximity     = 0.15
	defaultDurationToleranceSecs  = 5
	defaultDurationPenaltyFactor  = 0.6
	defaultCorroborationTolerance = 0.85

	defaultFFmpegBinary   = "ffmpeg"
	defaultCollectWorkers = 4

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
			RefDBPath:  defaultRefDBPath,
		},
		Library: Library{
			LiveDir:       defaultLiveDir,
			OuttakesDir:   defaultOuttakesDir,
			OfficialDir:   defaultOfficialDir,
			UnofficialDir: defaultUnofficialDir,
		},
		AcoustID: AcoustID{
			BaseURL:        defaultAcoustIDBaseURL,
			FpcalcBinary:   defaultFpcalcBinary,
			TimeoutSeconds: defaultAcoustIDTimeoutSeconds,
		},
		MusicBrainz: MusicBrainz{
			BaseURL:            defaultMusicBrainzBaseURL,
			UserAgent:          defaultMusicBrainzUserAgent,
			TimeoutSeconds:     defaultMusicBrainzTimeout,
			MaxLookups:         defaultMaxMetadataLookups,
			RateLimitPerSecond: defaultMusicBrainzRateLimit,
		},
		RefDB: RefDB{
			SimilarityThreshold: defaultRefDBSimilarityThreshold,
			MaxResults:          defaultRefDBMaxResults,
		},
		LLM: LLM{
			Backend:        defaultLLMBackend,
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Fusion: Fusion{
			MinAutoScore:           defaultMinAutoScore,
			AlternateProximity:     defaultAlternateProximity,
			DurationToleranceSecs:  defaultDurationToleranceSecs,
			DurationPenaltyFactor:  defaultDurationPenaltyFactor,
			CorroborationTolerance: defaultCorroborationTolerance,
		},
		Apply: Apply{
			FFmpegBinary: defaultFFmpegBinary,
			KeepTags:     []string{"LINEAGE", "TAPER", "TRANSFER"},
		},
		Batch: Batch{
			CollectWorkers: defaultCollectWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
