package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/tracker/internal/config"
	"github.com/steveyegge/tracker/internal/storage/sqlite"
	"github.com/steveyegge/tracker/internal/types"
)

var (
	initProjectKey  string
	initProjectName string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the tracker database, optionally seeding a first project",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := sqlite.New(cmd.Context(), config.GetString(config.KeyDB),
			sqlite.WithBusyTimeout(config.GetDuration(config.KeyBusyTimeout)))
		if err != nil {
			return fmt.Errorf("create database: %w", err)
		}
		defer func() { _ = store.Close() }()

		fmt.Printf("Initialized tracker database at %s\n", store.Path())

		if initProjectKey == "" {
			return nil
		}
		name := initProjectName
		if name == "" {
			name = initProjectKey
		}
		project := &types.Project{Key: initProjectKey, Name: name}
		if err := store.CreateProject(cmd.Context(), project); err != nil {
			return fmt.Errorf("create project %s: %w", initProjectKey, err)
		}
		fmt.Printf("Created project %s (%q); first item will be %s-1\n", project.Key, project.Name, project.Key)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initProjectKey, "project-key", "", "Seed a project with this key (e.g. PROJ)")
	initCmd.Flags().StringVar(&initProjectName, "project-name", "", "Name for the seeded project (defaults to the key)")
}
