package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "sitepulse.yaml"

// Load resolves the configuration: defaults, then the YAML file, then
// SITEPULSE_* environment variables, validated as a whole. A missing file
// is an error only when the path was given explicitly; the default path is
// allowed to be absent so environment-only setups work.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err) && !explicit:
		// Defaults plus environment only
	default:
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.applyTokenFallbacks()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyTokenFallbacks fills empty per-project credentials from the global
// environment-supplied ones.
func (c *Config) applyTokenFallbacks() {
	for i := range c.Projects {
		if c.Projects[i].Tracker.Token == "" {
			c.Projects[i].Tracker.Token = c.TrackerToken
		}
		if c.Projects[i].CodeHost.Token == "" {
			c.Projects[i].CodeHost.Token = c.CodeHostToken
		}
	}
}

const starter = `# sitepulse configuration
#
# Values here override built-in defaults; SITEPULSE_* environment
# variables override both. API tokens are best supplied through
# SITEPULSE_TRACKER_TOKEN and SITEPULSE_CODEHOST_TOKEN.

storage_path: sitepulse.db
poll_interval: 15m
max_verdict_age: 24h

# Variance between the tracker's story and the camera's story
# variance_thresholds:
#   yellow: 0.15
#   red: 0.25

# Schedule share of each construction phase
# phase_weights:
#   foundation: 0.2
#   framing: 0.3
#   exterior: 0.2
#   interior: 0.2
#   finishing: 0.1

projects:
  - id: site-demo
    name: Demo build
    target_date: 2027-06-30T00:00:00Z
    budget: 250000
    actual_cost: 0
    tracker:
      base_url: https://tracker.example.com
      board: DEMO
    code_host:
      base_url: https://api.github.com
      repo: example/demo
    verdict_dir: verdicts/site-demo
`

// WriteStarter writes a commented starter configuration. It refuses to
// overwrite an existing file.
func WriteStarter(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(starter); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
