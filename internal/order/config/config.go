// Package config defines the configuration for the Order service.
package config

import (
	"fmt"
	"strings"

	"github.com/abelikov/storefront/pkg/config"
	"github.com/abelikov/storefront/pkg/config/configloader"
)

var _ configloader.Validator = (*Config)(nil)

type Config struct {
	HTTPServer config.HTTPConfig           `koanf:"server"`
	Database   config.DatabaseConfig       `koanf:"database"`
	Log        config.LogConfig            `koanf:"log"`
	Policy     config.PolicyConfig         `koanf:"policy"`
	PProf      config.PProfConfig          `koanf:"pprof"`
	Shutdown   config.ShutdownConfig       `koanf:"shutdown"`
	Nats       config.NATSConfig           `koanf:"nats"`
	Services   ServicesConfig              `koanf:"services"`
	Breaker    config.CircuitBreakerConfig `koanf:"breaker"`
	Internal   config.InternalAuthConfig   `koanf:"internal"`
}

// ServicesConfig groups the peer services the Order service calls.
type ServicesConfig struct {
	Product config.HTTPClientConfig `koanf:"product"`
}

// Defaults documents the default configuration of the Order service.
// Every value can be overridden via config.yaml, .env or ORDER_* env vars.
func Defaults() map[string]any {
	return map[string]any{
		"server.port":                 8081,
		"server.maxHeaderBytes":       1 << 20,
		"server.timeout.read":         "5s",
		"server.timeout.write":        "10s",
		"server.timeout.idle":         "60s",
		"server.timeout.readHeader":   "2s",
		"database.host":               "localhost",
		"database.port":               5432,
		"database.user":               "postgres",
		"database.password":           "postgres",
		"database.name":               "orderdb",
		"database.sslmode":            "disable",
		"database.timeout":            "10s",
		"log.level":                   "info",
		"policy.enabled":              true,
		"policy.url":                  "http://localhost:8181/v1/data/orderservice/allow",
		"policy.timeout":              "2s",
		"pprof.enabled":               false,
		"pprof.addr":                  ":6061",
		"shutdown.timeout":            "5s",
		"nats.url":                    "nats://localhost:4222",
		"nats.timeout":                "5s",
		"services.product.url":        "http://localhost:8080",
		"services.product.timeout":    "3s",
		"breaker.consecutivefailures": 5,
		"breaker.errorratepercent":    60,
		"breaker.opentimeout":         "5s",
		"internal.trustedservices":    []string{"product-service", "inventory-service"},
	}
}

func (c *Config) String() string {
	var b strings.Builder

	b.WriteString("\n--- Server Configuration ---\n")
	b.WriteString(fmt.Sprintf("  server.port: %d\n", c.HTTPServer.Port))
	b.WriteString(fmt.Sprintf("  server.maxHeaderBytes: %d\n", c.HTTPServer.MaxHeaderBytes))
	b.WriteString(fmt.Sprintf("  server.timeout.read: %v\n", c.HTTPServer.Timeout.Read))
	b.WriteString(fmt.Sprintf("  server.timeout.write: %v\n", c.HTTPServer.Timeout.Write))
	b.WriteString(fmt.Sprintf("  server.timeout.idle: %v\n", c.HTTPServer.Timeout.Idle))
	b.WriteString(fmt.Sprintf("  server.timeout.readHeader: %v\n", c.HTTPServer.Timeout.ReadHeader))
	b.WriteString(c.Database.String())
	b.WriteString(c.Policy.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Nats.String())
	b.WriteString(c.Services.Product.String())
	b.WriteString(c.Breaker.String())
	b.WriteString(c.Internal.String())

	return b.String()
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Shutdown.Validate(); err != nil {
		return err
	}
	if err := c.Nats.Validate(); err != nil {
		return err
	}
	if err := c.Services.Product.Validate(); err != nil {
		return err
	}
	if err := c.Breaker.Validate(); err != nil {
		return err
	}
	if err := c.Internal.Validate(); err != nil {
		return err
	}
	return nil
}
