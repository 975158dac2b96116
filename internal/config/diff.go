package config

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RebuildRequired is set when the normalizer must be rebuilt, e.g.
	// because the language or the whitelist changed.
	RebuildRequired bool

	// OptionsChanged is set when only per-call options changed.
	OptionsChanged bool

	// RestartRequired is set for settings that only take effect on a
	// restart, such as the listen address or the log file.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.LogLevel != new.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.LogLevel
	}

	d.RebuildRequired = old.Language != new.Language ||
		old.InputCase != new.InputCase ||
		old.Whitelist != new.Whitelist ||
		old.MaxPermutationsPerSplit != new.MaxPermutationsPerSplit ||
		old.MaxDepth != new.MaxDepth ||
		old.Workers != new.Workers ||
		old.VerbalizeCacheSize != new.VerbalizeCacheSize ||
		old.VerbalizeCacheTTL != new.VerbalizeCacheTTL ||
		old.Cache != new.Cache

	d.OptionsChanged = old.PreProcess != new.PreProcess || old.PostProcess != new.PostProcess

	d.RestartRequired = old.LogFile != new.LogFile || old.Server != new.Server

	return d
}

// Changed reports whether d records any change.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.RebuildRequired || d.OptionsChanged || d.RestartRequired
}
