package am

import "github.com/teranos/composr/errors"

// Validate checks that the configuration is usable. A missing base URL is
// only an error for commands that talk to the remote; see ValidateRemote.
func (c *Config) Validate() error {
	if c.DAO.PageSize <= 0 {
		return errors.Newf("dao.page_size must be > 0, got %d", c.DAO.PageSize)
	}
	if c.Remote.TimeoutSeconds <= 0 {
		return errors.Newf("remote.timeout_seconds must be > 0, got %d", c.Remote.TimeoutSeconds)
	}
	if c.Remote.RequestsPerSecond <= 0 {
		return errors.Newf("remote.requests_per_second must be > 0, got %g", c.Remote.RequestsPerSecond)
	}
	if c.Remote.Burst < 0 {
		return errors.Newf("remote.burst must be >= 0, got %d", c.Remote.Burst)
	}
	if c.Manager.Concurrency < 0 {
		return errors.Newf("manager.concurrency must be >= 0, got %d", c.Manager.Concurrency)
	}

	collections := map[string]string{
		"collections.phrases":         c.Collections.Phrases,
		"collections.snippets":        c.Collections.Snippets,
		"collections.virtual_domains": c.Collections.VirtualDomains,
	}
	for key, name := range collections {
		if name == "" {
			return errors.Newf("%s cannot be empty", key)
		}
	}

	if c.Snapshot.Enabled && c.Snapshot.Path == "" {
		return errors.New("snapshot.path cannot be empty when snapshot is enabled")
	}
	return nil
}

// ValidateRemote checks that the remote can be reached with this config.
func (c *Config) ValidateRemote() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Remote.BaseURL == "" {
		return errors.WithHint(errors.New("remote.base_url is not set"), "set it in am.toml or COMPOSR_REMOTE_BASE_URL")
	}
	return nil
}
