package config

import "time"

func applyDefaults(cfg Config) Config {
	if cfg.Execution.PythonPath == "" {
		cfg.Execution.PythonPath = "python3"
	}
	if cfg.Execution.IdleTimeout <= 0 {
		cfg.Execution.IdleTimeout = Duration(10 * time.Second)
	}
	if cfg.Execution.CaseTimeout <= 0 {
		cfg.Execution.CaseTimeout = Duration(10 * time.Second)
	}
	if cfg.Execution.CourtesySleep <= 0 {
		cfg.Execution.CourtesySleep = Duration(500 * time.Millisecond)
	}
	if cfg.Execution.BufferLines <= 0 {
		cfg.Execution.BufferLines = 100
	}

	if cfg.Translator.Model == "" {
		cfg.Translator.Model = "gemini-2.0-flash"
	}
	if cfg.Translator.APIKeyEnv == "" {
		cfg.Translator.APIKeyEnv = "GEMINI_API_KEY"
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "isipython.db"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg
}
