package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/foodle-app/foodle/config"
	"github.com/foodle-app/foodle/database/seeders"
	"github.com/foodle-app/foodle/pkg/database"
	"github.com/foodle-app/foodle/pkg/migration"
)

// bootDB loads config and opens the database connection.
func bootDB(cmd *cobra.Command) error {
	if err := config.Load(); err != nil {
		return err
	}
	return database.Connect(cmd.Context())
}

// foodle migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(cmd); err != nil {
			return err
		}
		fmt.Println("Running migrations…")
		n, err := migration.New(database.DB, os.Stdout).Run()
		if err != nil {
			return err
		}
		fmt.Printf("✅ %d migration(s) applied\n", n)
		return nil
	},
}

// foodle migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(cmd); err != nil {
			return err
		}
		fmt.Println("Rolling back last batch…")
		_, err := migration.New(database.DB, os.Stdout).Rollback()
		return err
	},
}

// foodle migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(cmd); err != nil {
			return err
		}
		states, err := migration.New(database.DB, os.Stdout).Status()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "RAN?\tMIGRATION\tBATCH")
		for _, s := range states {
			ran, batch := "No", "-"
			if s.Ran {
				ran, batch = "Yes", fmt.Sprint(s.Batch)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", ran, s.Name, batch)
		}
		return w.Flush()
	},
}

// foodle seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(cmd); err != nil {
			return err
		}
		fmt.Println("Running seeders…")
		if err := seeders.RunAll(database.DB, os.Stdout); err != nil {
			return err
		}
		fmt.Println("✅ Seeding complete")
		return nil
	},
}
