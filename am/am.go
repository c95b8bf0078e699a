// Package am loads composr's configuration.
//
// Sources, lowest precedence first: built-in defaults, /etc/composr/config.toml,
// ~/.composr/am.toml, the nearest am.toml above the working directory, then
// COMPOSR_* environment variables (COMPOSR_REMOTE_BASE_URL, ...).
package am

// Config is the full composr configuration.
type Config struct {
	Remote      RemoteConfig      `mapstructure:"remote" toml:"remote"`
	DAO         DAOConfig         `mapstructure:"dao" toml:"dao"`
	Collections CollectionsConfig `mapstructure:"collections" toml:"collections"`
	Manager     ManagerConfig     `mapstructure:"manager" toml:"manager"`
	Snapshot    SnapshotConfig    `mapstructure:"snapshot" toml:"snapshot"`
	Log         LogConfig         `mapstructure:"log" toml:"log"`
}

// RemoteConfig configures the remote collection store client
type RemoteConfig struct {
	BaseURL           string  `mapstructure:"base_url" toml:"base_url"`
	Token             string  `mapstructure:"token" toml:"token,omitempty"` // bearer token, prefer COMPOSR_REMOTE_TOKEN
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" toml:"burst"`
	AllowPrivate      bool    `mapstructure:"allow_private" toml:"allow_private"` // permit loopback/private remotes
}

// DAOConfig configures collection paging
type DAOConfig struct {
	PageSize int `mapstructure:"page_size" toml:"page_size"`
}

// CollectionsConfig names the remote collection of each item kind
type CollectionsConfig struct {
	Phrases        string `mapstructure:"phrases" toml:"phrases"`
	Snippets       string `mapstructure:"snippets" toml:"snippets"`
	VirtualDomains string `mapstructure:"virtual_domains" toml:"virtual_domains"`
}

// ManagerConfig configures the registration pipeline
type ManagerConfig struct {
	Concurrency int `mapstructure:"concurrency" toml:"concurrency"` // items processed at once per Register call
}

// SnapshotConfig configures the local SQLite snapshot
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path" toml:"path"`
}

// LogConfig configures logger output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
