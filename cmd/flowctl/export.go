package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/workflow/document"
	"github.com/meikuraledutech/workflow/graph"
)

var (
	exportFormat string
	exportCopy   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <workflow.json>",
	Short: "Print the logical workflow of a saved document",
	Long: `Reads a workflow.json document, restores its flow state and prints the
name-keyed workflow data as json, yaml or a mermaid diagram.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportFile(cmd.OutOrStdout(), systemClipboard, logger, args[0], exportFormat, exportCopy)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json, yaml or mermaid")
	exportCmd.Flags().BoolVar(&exportCopy, "copy", false, "also copy the output to the clipboard")
}

// loadFile restores the document at path into a scratch store.
func loadFile(path string, maxBytes int64) (*graph.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	store := graph.New()
	if err := document.Import(f, store, document.WithMaxBytes(maxBytes)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return store, nil
}

func render(data document.WorkflowData, format string) (string, error) {
	switch format {
	case "json":
		out, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return "", err
		}
		return string(out) + "\n", nil
	case "yaml":
		out, err := data.YAML()
		if err != nil {
			return "", err
		}
		return string(out), nil
	case "mermaid":
		return document.Mermaid(data), nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or mermaid)", format)
}

func exportFile(w io.Writer, clip Clipboard, logger *slog.Logger, path, format string, copyOut bool) error {
	store, err := loadFile(path, cfg.Import.MaxBytes)
	if err != nil {
		return err
	}
	doc := document.Export(store)
	if dups := document.DuplicateNames(doc.FlowState.Nodes); len(dups) > 0 {
		logger.Warn("duplicate node names merge in the adjacency list", "names", dups)
	}

	out, err := render(doc.WorkflowData, format)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, out); err != nil {
		return err
	}

	if copyOut {
		if err := clip.Copy(out); err != nil {
			logger.Warn("could not copy to clipboard", "error", err)
		}
	}
	return nil
}
