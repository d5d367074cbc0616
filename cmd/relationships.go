// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bonial-oss/workspace-brain/internal/logparse"
	"github.com/bonial-oss/workspace-brain/internal/output"
	"github.com/bonial-oss/workspace-brain/internal/relationship"
	"github.com/bonial-oss/workspace-brain/internal/types"
)

const defaultRefreshDays = 7

func newRelationshipsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "relationships",
		Aliases: []string{"rel"},
		Short:   "Track which workspace projects are related",
	}
	cmd.AddCommand(
		newRelRefreshCommand(a),
		newRelListCommand(a),
		newRelRelatedCommand(a),
		newRelAddCommand(a),
		newRelRemoveCommand(a),
	)
	return cmd
}

func (a *app) relationships() (*relationship.Engine, error) {
	if err := a.requireBrain(); err != nil {
		return nil, err
	}
	store := relationship.NewFileStore(a.cfg.RelationshipsPath())
	return relationship.New(store, relationship.WithClock(a.utcNow)), nil
}

func newRelRefreshCommand(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Learn relationships from the recent daily logs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return &ExitError{Code: 2, Message: "--days must be at least 1"}
			}
			engine, err := a.relationships()
			if err != nil {
				return err
			}
			entries, err := logparse.InRange(a.cfg.LogsPath(), days, a.now())
			if err != nil {
				return fmt.Errorf("reading logs: %w", err)
			}
			// InRange is newest first; the engine needs oldest first so the
			// earliest mention sets discovered_at and the latest sets reason.
			slices.Reverse(entries)
			graph, err := engine.RefreshFromEntries(entries)
			if err != nil {
				return fmt.Errorf("refreshing relationships: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Read %d sessions, %d projects have relationships\n",
				len(entries), countLinked(graph))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", defaultRefreshDays, "Number of daily logs to read, counting back from today")
	return cmd
}

func countLinked(g types.Graph) int {
	n := 0
	for _, name := range g.Projects() {
		if len(g.Related(name)) > 0 {
			n++
		}
	}
	return n
}

func newRelListCommand(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the stored relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.relationships()
			if err != nil {
				return err
			}
			return writeRelationships(cmd.OutOrStdout(), engine.All(), format)
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json")
	return cmd
}

func writeRelationships(w io.Writer, edges []types.Relationship, format string) error {
	switch format {
	case "json":
		return output.WriteRelationshipsJSON(w, edges)
	case "table":
		if len(edges) == 0 {
			fmt.Fprintln(w, "No relationships recorded.")
			return nil
		}
		return output.WriteRelationshipTable(w, edges, output.IsOutputToTerminal(w))
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unsupported output format: %s", format)}
	}
}

func newRelRelatedCommand(a *app) *cobra.Command {
	var withSelf bool
	cmd := &cobra.Command{
		Use:   "related <project>",
		Short: "Print the projects related to a project, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.relationships()
			if err != nil {
				return err
			}
			names := engine.Related(args[0])
			if withSelf {
				names = engine.ContextProjects(args[0])
			}
			if len(names) > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSelf, "with-self", false, "Print the project itself first, as used for context loading")
	return cmd
}

func newRelAddCommand(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "add <source> <target>",
		Short: "Record a relationship by hand",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.relationships()
			if err != nil {
				return err
			}
			r, err := engine.Add(args[0], args[1], reason)
			if err != nil {
				return fmt.Errorf("adding relationship: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked %s -> %s\n", r.Source, r.Target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the projects are related")
	return cmd
}

func newRelRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source> <target>",
		Short: "Delete a stored relationship",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := a.relationships()
			if err != nil {
				return err
			}
			removed, err := engine.Remove(args[0], args[1])
			if err != nil {
				return fmt.Errorf("removing relationship: %w", err)
			}
			if !removed {
				fmt.Fprintf(cmd.OutOrStdout(), "No relationship %s -> %s\n", args[0], args[1])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s -> %s\n", args[0], args[1])
			return nil
		},
	}
}
