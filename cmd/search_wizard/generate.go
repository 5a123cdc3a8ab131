package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/search-wizard/internal/generation"
	"github.com/jonathan/search-wizard/internal/observability"
	"github.com/jonathan/search-wizard/internal/render"
	"github.com/jonathan/search-wizard/internal/schemas"
	"github.com/jonathan/search-wizard/internal/server/middleware"
	"github.com/jonathan/search-wizard/internal/store"
	"github.com/jonathan/search-wizard/internal/types"
)

var (
	requestFile  string
	templateFile string
	genOwner     string
	genOut       string
	genPDF       string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one document from a JSON request file",
	Long: `Generate a document from a request file with the same body as POST /generate-document.
The structure for the request's document type must already be stored, or be supplied with --template.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&requestFile, "request", "r", "", "Path to the generation request JSON (required)")
	generateCmd.Flags().StringVarP(&templateFile, "template", "t", "", "Structure template JSON to save for the document type first")
	generateCmd.Flags().StringVar(&genOwner, "owner", middleware.AnonymousOwner, "Owner of the structure and the document")
	generateCmd.Flags().StringVarP(&genOut, "out", "o", "", "Write the HTML here instead of stdout")
	generateCmd.Flags().StringVar(&genPDF, "pdf", "", "Also print the document to this PDF file")

	_ = generateCmd.MarkFlagRequired("request")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	req, err := readRequest(requestFile)
	if err != nil {
		return err
	}
	req.OwnerID = genOwner

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if templateFile != "" {
		if err := saveTemplate(cmd.Context(), a.store, genOwner, req.DocumentType, templateFile); err != nil {
			return err
		}
	}

	var onProgress generation.ProgressCallback
	if verbose {
		printer := observability.NewPrinter(cmd.ErrOrStderr())
		onProgress = func(e generation.ProgressEvent) { printer.PrintStage(string(e.Stage), e.Message) }
	}
	generator, err := a.generator(onProgress)
	if err != nil {
		return err
	}

	doc, err := generator.Generate(cmd.Context(), req)
	if err != nil {
		return err
	}

	if genOut != "" {
		if err := os.WriteFile(genOut, []byte(doc.HTML), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Document %s written to %s\n", doc.ID, genOut)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), doc.HTML)
	}

	if genPDF != "" {
		pdf, err := render.NewPDFRenderer(render.Options{
			ExecPath: a.cfg.Render.ChromePath,
			Timeout:  a.cfg.RenderTimeout(),
			Logger:   a.log,
		}).PDF(cmd.Context(), doc.HTML)
		if err != nil {
			return err
		}
		if err := os.WriteFile(genPDF, pdf, 0o644); err != nil {
			return fmt.Errorf("failed to write PDF: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "PDF written to %s\n", genPDF)
	}

	return nil
}

func readRequest(path string) (generation.Request, error) {
	var req generation.Request
	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read request: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse request: %w", err)
	}
	if strings.TrimSpace(req.DocumentType) == "" {
		return req, fmt.Errorf("request has no document_type")
	}
	return req, nil
}

// saveTemplate validates a template file and stores it as the structure for
// docType
func saveTemplate(ctx context.Context, st store.Store, owner, docType, path string) error {
	if err := schemas.ValidateStructureFile(path); err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	return st.SaveStructure(ctx, &store.Structure{
		OwnerID:      owner,
		Name:         docType,
		DocumentType: docType,
		Template:     types.StructureTemplate(data),
	})
}
