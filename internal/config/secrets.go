package config

// RedactedConfig returns a deep copy of cfg with every credential replaced by
// a placeholder so the result is safe to log.
func RedactedConfig(cfg Config) Config {
	out := cfg

	// Postgres
	redact(&out.Postgres.Password)
	if out.Postgres.DSN != "" {
		out.Postgres.DSN = redacted
	}

	// Redis
	redact(&out.Redis.Password)

	// S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Server
	redact(&out.Server.APIKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = make([]string, len(cfg.Server.CORSOrigins))
		copy(out.Server.CORSOrigins, cfg.Server.CORSOrigins)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
