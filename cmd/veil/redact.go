package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/veilhq/veil/internal/common"
	"github.com/veilhq/veil/internal/model"
)

func redactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "redact <input-file>",
		Short: "Detect and mask PII in a statement",
		Long: `Redact runs the full detection and masking pipeline over one statement.

The input is either a JSON document with positioned text blocks (as produced
by a PDF layout extractor) or a plain text file. The masked result is written
as JSON, including the entity ledger and the financial-integrity report.`,
		Args: cobra.ExactArgs(1),
		RunE: runRedact,
	}

	cmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	cmd.Flags().Bool("text-only", false, "write only the masked text instead of the full JSON result")
	cmd.Flags().Bool("no-rag", false, "disable retrieval-augmented disambiguation")
	cmd.Flags().Int("workers", 0, "concurrent chunk workers (0 = configured default)")
	cmd.Flags().Bool("fail-on-integrity", false, "exit non-zero when the financial integrity check fails")

	return cmd
}

func runRedact(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}
	if noRAG, _ := cmd.Flags().GetBool("no-rag"); noRAG {
		cfg.RAGEnabled = false
	}
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		cfg.Workers = workers
	}

	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}

	eng, cleanup, err := buildEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	var bar *progressbar.ProgressBar
	eng.SetProgress(func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("redacting"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	})

	result, err := eng.Redact(cmd.Context(), doc)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("redaction failed: %w", err)
	}

	for _, w := range result.Warnings {
		logger.Warn(w)
	}

	if err := writeResult(cmd, result); err != nil {
		return err
	}

	if failHard, _ := cmd.Flags().GetBool("fail-on-integrity"); failHard && !result.IntegrityOK {
		return fmt.Errorf("%w for run %s", common.ErrIntegrityViolated, result.RunID)
	}
	return nil
}

// loadDocument reads either a block-structured JSON document or a plain
// text file.
func loadDocument(path string) (model.Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied input path
	if err != nil {
		return model.Document{}, common.NewUserError("failed to read input file", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var doc model.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return model.Document{}, common.NewUserError("failed to parse document JSON", err)
		}
		return doc, nil
	}
	return model.Document{FullText: string(data)}, nil
}

func writeResult(cmd *cobra.Command, result *model.Result) error {
	var payload []byte
	if textOnly, _ := cmd.Flags().GetBool("text-only"); textOnly {
		payload = []byte(result.MaskedText)
	} else {
		var err error
		payload, err = json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		payload = append(payload, '\n')
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		_, err := cmd.OutOrStdout().Write(payload)
		return err
	}
	if err := os.WriteFile(output, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	slog.Info("result written", "path", output, "run_id", result.RunID)
	return nil
}
