package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/observability"
	"github.com/jonathan/search-wizard/internal/server/middleware"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/structure"
	"github.com/jonathan/search-wizard/internal/types"
)

var (
	analyzeName  string
	analyzeOwner string
	analyzeOut   string
	analyzeSave  bool
	textOnly     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE [FILE...]",
	Short: "Derive a structure template from example documents",
	Long: `Analyze one or more example documents (PDF, DOCX, HTML or text) and print the structure template as JSON.
A single PDF is also sent as page images; several files are analyzed together as one example.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeName, "name", "n", "", "Structure name, used as the document type (default: first file name)")
	analyzeCmd.Flags().StringVar(&analyzeOwner, "owner", middleware.AnonymousOwner, "Owner of the saved structure")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Write the template here instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Save the template to the structure store")
	analyzeCmd.Flags().BoolVar(&textOnly, "text-only", false, "Do not render PDF pages for vision analysis")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	docs := make([]structure.Document, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, structure.Document{Filename: filepath.Base(path), Data: data})
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	x := ingestion.DefaultExtractor{}
	var template types.StructureTemplate
	if len(docs) == 1 {
		var pages structure.PageRenderer
		if !textOnly {
			pages = ingestion.PageImages
		}
		template, err = a.extractor.AnalyzeFile(cmd.Context(), x, pages, docs[0])
	} else {
		template, err = a.extractor.ExtractFromDocuments(cmd.Context(), x, docs)
	}
	if err != nil {
		return err
	}

	name := analyzeName
	if name == "" {
		name = strings.TrimSuffix(docs[0].Filename, filepath.Ext(docs[0].Filename))
	}

	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintStructure(name, template)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, template, "", "  "); err != nil {
		return fmt.Errorf("template is not valid JSON: %w", err)
	}
	pretty.WriteByte('\n')

	if analyzeOut != "" {
		if err := os.WriteFile(analyzeOut, pretty.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	} else {
		_, _ = cmd.OutOrStdout().Write(pretty.Bytes())
	}

	if analyzeSave {
		st := &store.Structure{
			OwnerID:      analyzeOwner,
			Name:         name,
			DocumentType: name,
			Template:     template,
		}
		if err := a.store.SaveStructure(cmd.Context(), st); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Structure %q saved\n", name)
	}

	return nil
}
