package driver

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Tables lists the tables created by Migrate, children first.
var Tables = []string{
	"mdchat_messages",
	"mdchat_conversations",
	"mdchat_documents",
}

// Migrate creates the mdchat tables if they do not exist.
func Migrate(ctx context.Context, exec Executor) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
