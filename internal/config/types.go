package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that decodes from YAML strings like
// "10s" or "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ExecutionConfig controls how student programs are run.
type ExecutionConfig struct {
	// PythonPath is the interpreter used to run transpiled programs.
	PythonPath string `yaml:"python_path"`

	// IdleTimeout is how long a session may produce no output, while
	// not waiting for input, before it is killed as a runaway.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// CaseTimeout is the wall-clock budget for one grading test case.
	CaseTimeout Duration `yaml:"case_timeout"`

	// CourtesySleep is how long Start and SupplyInput wait before
	// snapshotting, giving the child time to produce its first output.
	CourtesySleep Duration `yaml:"courtesy_sleep"`

	// BufferLines caps the per-session stdout scrollback.
	BufferLines int `yaml:"buffer_lines"`
}

// TranslatorConfig selects the LLM used for isiXhosa diagnostics.
type TranslatorConfig struct {
	// Model is the Gemini model name.
	Model string `yaml:"model"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never appears in config files.
	APIKeyEnv string `yaml:"api_key_env"`
}

// StoreConfig locates the challenge database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `yaml:"level"`
	// File, when set, appends JSON logs there instead of stderr.
	File string `yaml:"file"`
}

// Config is the root configuration document.
type Config struct {
	Execution  ExecutionConfig  `yaml:"execution"`
	Translator TranslatorConfig `yaml:"translator"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}
