package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veilhq/veil/internal/model"
)

func patternsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Manage the disambiguation pattern database",
	}

	cmd.AddCommand(patternsInitCmd())
	cmd.AddCommand(patternsListCmd())
	cmd.AddCommand(patternsAddCmd())

	return cmd
}

func patternsInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the pattern database and seed built-in patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			store, err := initPatternStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Seed(cmd.Context()); err != nil {
				return fmt.Errorf("failed to seed patterns: %w", err)
			}

			count, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pattern database ready at %s (%d patterns)\n", cfg.PatternDBPath, count)
			return nil
		},
	}
}

func patternsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored patterns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			store, err := initPatternStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			patterns, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			if len(patterns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No patterns stored. Run 'veil patterns init' to seed the defaults.")
				return nil
			}
			for _, p := range patterns {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", p.Type, p.PatternText)
				if p.ExampleText != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "%-16s   e.g. %s\n", "", p.ExampleText)
				}
			}
			return nil
		},
	}
}

func patternsAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <type> <pattern-text>",
		Short: "Add a disambiguation pattern",
		Long: `Add stores one pattern used to disambiguate low-confidence candidates.
The type must be a known PII type (person_name, account_number, ssn, ...).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			typ, ok := model.ParsePIIType(args[0])
			if !ok {
				var names []string
				for _, t := range model.AllPIITypes() {
					names = append(names, string(t))
				}
				return fmt.Errorf("unknown PII type %q (valid: %s)", args[0], strings.Join(names, ", "))
			}

			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			store, err := initPatternStore(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			example, _ := cmd.Flags().GetString("example")
			pattern := model.RAGPattern{
				Type:        typ,
				PatternText: args[1],
				ExampleText: example,
			}
			if err := store.Add(cmd.Context(), pattern); err != nil {
				return fmt.Errorf("failed to add pattern: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pattern added.")
			return nil
		},
	}

	cmd.Flags().String("example", "", "example text matching the pattern")

	return cmd
}
