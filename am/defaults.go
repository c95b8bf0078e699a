package am

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultTimeoutSeconds    = 30
	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
	DefaultPageSize          = 20
	DefaultConcurrency       = 1
	DefaultSnapshotPath      = "composr.db"

	DefaultPhrasesCollection        = "composr:Phrase"
	DefaultSnippetsCollection       = "composr:Snippet"
	DefaultVirtualDomainsCollection = "composr:VirtualDomain"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("remote.requests_per_second", DefaultRequestsPerSecond)
	v.SetDefault("remote.burst", DefaultBurst)
	v.SetDefault("remote.allow_private", false)

	v.SetDefault("dao.page_size", DefaultPageSize)

	v.SetDefault("collections.phrases", DefaultPhrasesCollection)
	v.SetDefault("collections.snippets", DefaultSnippetsCollection)
	v.SetDefault("collections.virtual_domains", DefaultVirtualDomainsCollection)

	v.SetDefault("manager.concurrency", DefaultConcurrency)

	v.SetDefault("snapshot.enabled", false)
	v.SetDefault("snapshot.path", DefaultSnapshotPath)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("remote.token", "COMPOSR_REMOTE_TOKEN")
	v.BindEnv("remote.base_url", "COMPOSR_REMOTE_BASE_URL")
	v.BindEnv("snapshot.path", "COMPOSR_SNAPSHOT_PATH")
}

// Timeout returns the remote request timeout
func (c *Config) Timeout() time.Duration {
	if c.Remote.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// GetSnapshotPath returns the snapshot database path
func (c *Config) GetSnapshotPath() string {
	if c.Snapshot.Path == "" {
		return DefaultSnapshotPath
	}
	return c.Snapshot.Path
}

// String returns a string representation of the config. The token is never printed.
func (c *Config) String() string {
	token := ""
	if c.Remote.Token != "" {
		token = "***"
	}
	return fmt.Sprintf("Config{Remote: {BaseURL: %s, Token: %s}, DAO: {PageSize: %d}, Manager: {Concurrency: %d}, Snapshot: {Enabled: %t}}",
		c.Remote.BaseURL, token, c.DAO.PageSize, c.Manager.Concurrency, c.Snapshot.Enabled)
}
