package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// RunClickhouseMigrations applies all embedded SQL files in lexical order.
// ClickHouse executes one statement per call, so files are split on ";".
func RunClickhouseMigrations(ctx context.Context, conn driver.Conn) error {
	entries, err := fs.ReadDir(ClickhouseFS, "clickhouse")
	if err != nil {
		return fmt.Errorf("read embedded clickhouse migrations: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		data, err := fs.ReadFile(ClickhouseFS, "clickhouse/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		for _, stmt := range strings.Split(string(data), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}

	return nil
}
