package config

import (
	"fmt"
	"strings"
	"time"
)

// PolicyConfig configures the external policy decision endpoint used for
// request admission.
type PolicyConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// String returns a string representation of the policy configuration.
func (c *PolicyConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Policy ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  url: %s\n", c.URL))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	return b.String()
}

func (c *PolicyConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return fmt.Errorf("policy is enabled but decision URL is not configured")
	}
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
	return nil
}
