// Package migrations holds the PostgreSQL schema scripts.
package migrations

import (
	"embed"
	"fmt"
)

//go:embed *.sql
var files embed.FS

// Script returns the SQL of the schema migration in the given direction
func Script(direction string) (string, error) {
	if direction != "up" && direction != "down" {
		return "", fmt.Errorf("invalid migration direction %q, expected up or down", direction)
	}

	content, err := files.ReadFile("001_create_schema." + direction + ".sql")
	if err != nil {
		return "", fmt.Errorf("failed to read migration: %w", err)
	}
	return string(content), nil
}
