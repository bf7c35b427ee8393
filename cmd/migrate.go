package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/store/sqlite"
)

// storeSets pairs each migration set with its database path. Both stores
// migrate together; `serve` applies the same embedded sources on open.
func storeSets() [][2]string {
	return [][2]string{
		{sqlite.SetChannels, config.ChannelsDBPath()},
		{sqlite.SetTasks, config.TasksDBPath()},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Store schema management",
	}
	cmd.AddCommand(migrateUpCmd())
	cmd.AddCommand(migrateVersionCmd())
	return cmd
}

func migrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to both stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(config.CompanyDir(), 0o755); err != nil {
				return fmt.Errorf("create state dir: %w", err)
			}
			for _, set := range storeSets() {
				name, path := set[0], set[1]
				db, err := sqlite.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				err = sqlite.Migrate(db, name)
				if err != nil {
					db.Close()
					return fmt.Errorf("migrate %s: %w", name, err)
				}
				v, dirty, _ := sqlite.Version(db, name)
				db.Close()
				fmt.Printf("%s: version %d, dirty %v\n", name, v, dirty)
			}
			return nil
		},
	}
}

func migrateVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show each store's migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, set := range storeSets() {
				name, path := set[0], set[1]
				if _, err := os.Stat(path); os.IsNotExist(err) {
					fmt.Printf("%s: no database at %s\n", name, path)
					continue
				}
				db, err := sqlite.Open(path)
				if err != nil {
					return fmt.Errorf("open %s: %w", path, err)
				}
				v, dirty, err := sqlite.Version(db, name)
				db.Close()
				if err != nil {
					return fmt.Errorf("version of %s: %w", name, err)
				}
				fmt.Printf("%s: version %d, dirty %v\n", name, v, dirty)
			}
			return nil
		},
	}
}
