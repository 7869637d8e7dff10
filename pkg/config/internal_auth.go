package config

import (
	"fmt"
	"strings"
)

// InternalAuthConfig lists the peer services allowed to call the
// /internal namespace, matched against the X-Service-Id header.
type InternalAuthConfig struct {
	TrustedServices []string `koanf:"trustedservices"`
}

// String returns a string representation of the internal auth configuration.
func (c *InternalAuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Internal Auth ---\n")
	b.WriteString(fmt.Sprintf("  trustedservices: %s\n", strings.Join(c.TrustedServices, ",")))
	return b.String()
}

func (c *InternalAuthConfig) Validate() error {
	if len(c.TrustedServices) == 0 {
		return fmt.Errorf("internal auth trusted services list is empty")
	}
	return nil
}
