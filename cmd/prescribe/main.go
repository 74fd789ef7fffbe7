// cmd/prescribe/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"clinqo-prescriber/internal/common/config"
	"clinqo-prescriber/internal/common/logger"
	"clinqo-prescriber/internal/prescription"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "prescribe",
		Short:         "Generate prescription suggestions from patient transcripts",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a config YAML (default: configs/config.yaml)")

	rootCmd.AddCommand(generateCmd(), symptomsCmd(), promptCmd())
	return rootCmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the full pipeline and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, _ := cmd.Flags().GetString("transcript")
			schemaMode, _ := cmd.Flags().GetString("schema-mode")
			configPath, _ := cmd.Flags().GetString("config")

			if !cmd.Flags().Changed("transcript") {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read transcript from stdin: %w", err)
				}
				transcript = strings.TrimRight(string(data), "\r\n")
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if schemaMode != "" {
				cfg.Pipeline.SchemaMode = schemaMode
			}

			zapLog, err := logger.NewWithOutput(cfg.Logging.Level, "console", "stderr")
			if err != nil {
				return err
			}
			defer zapLog.Sync()

			gen := prescription.NewFromApp(cfg, logger.NewZapAdapter(zapLog))
			result, err := gen.Generate(context.Background(), transcript)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().String("transcript", "", "Patient transcript; read from stdin when omitted")
	cmd.Flags().String("schema-mode", "", "Override pipeline.schema_mode (permissive or strict)")
	return cmd
}

func symptomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symptoms <transcript>",
		Short: "Print the symptom tags found in a transcript",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), prescription.ExtractSymptoms(strings.Join(args, " ")))
		},
	}
}

func promptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <transcript>",
		Short: "Print the prompt document that would be sent to the model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript := strings.Join(args, " ")
			_, err := fmt.Fprintln(cmd.OutOrStdout(),
				prescription.BuildPrompt(transcript, prescription.ExtractSymptoms(transcript)))
			return err
		},
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
