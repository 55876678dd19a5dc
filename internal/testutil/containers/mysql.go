//go:build integration

package containers

import (
	"context"
	"fmt"

	"github.com/testcontainers/testcontainers-go/modules/mysql"
)

// MySQLContainer wraps a testcontainers MySQL instance.
type MySQLContainer struct {
	container *mysql.MySQLContainer
	dsn       string
}

// MySQLConfig holds configuration for MySQL container creation.
type MySQLConfig struct {
	Database string
	Username string
	Password string
	// Image defaults to mysql:8.0
	Image string
}

// DefaultMySQLConfig returns a MySQLConfig with test defaults.
func DefaultMySQLConfig() MySQLConfig {
	return MySQLConfig{
		Database: "alertd_test",
		Username: "testuser",
		Password: "testpass",
		Image:    "mysql:8.0",
	}
}

// NewMySQLContainer starts a MySQL container. A nil config uses DefaultMySQLConfig.
func NewMySQLContainer(ctx context.Context, config *MySQLConfig) (*MySQLContainer, error) {
	if config == nil {
		defaultCfg := DefaultMySQLConfig()
		config = &defaultCfg
	}

	// mysql.Run waits for the server to accept connections.
	c, err := mysql.Run(ctx, config.Image,
		mysql.WithDatabase(config.Database),
		mysql.WithUsername(config.Username),
		mysql.WithPassword(config.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	// gorm needs parseTime to scan DATETIME columns into time.Time.
	dsn, err := c.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		_ = c.Terminate(context.Background())
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &MySQLContainer{container: c, dsn: dsn}, nil
}

// GetDSN returns the connection string for the test database.
func (c *MySQLContainer) GetDSN() string {
	return c.dsn
}

// Terminate stops and removes the container.
func (c *MySQLContainer) Terminate(ctx context.Context) error {
	if c.container == nil {
		return nil
	}
	if err := c.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate container: %w", err)
	}
	return nil
}
