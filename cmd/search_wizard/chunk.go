package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/search-wizard/internal/artifact"
	"github.com/jonathan/search-wizard/internal/chunking"
	"github.com/jonathan/search-wizard/internal/knowledge"
	"github.com/jonathan/search-wizard/internal/observability"
	"github.com/jonathan/search-wizard/internal/types"
)

var (
	chunkMaxLength int
	chunkOverlap   int
	chunkName      string
	chunkKind      string
	chunkURL       string
	chunkJSON      bool
)

var chunkCmd = &cobra.Command{
	Use:   "chunk [FILE]",
	Short: "Show how an artifact is resolved and split into chunks",
	Long: `Resolve a local file or URL the way generation requests do and print the chunks it becomes.
Useful for checking extraction and chunk boundaries without calling a model.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChunk,
}

func init() {
	chunkCmd.Flags().IntVar(&chunkMaxLength, "max-length", chunking.DefaultMaxLength, "Largest chunk in characters")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", chunking.DefaultOverlap, "Characters shared by consecutive chunks")
	chunkCmd.Flags().StringVarP(&chunkName, "name", "n", "", "Artifact name (default: file name)")
	chunkCmd.Flags().StringVarP(&chunkKind, "kind", "k", string(types.KindCompany), "Artifact kind (company or role)")
	chunkCmd.Flags().StringVarP(&chunkURL, "url", "u", "", "Resolve this URL instead of a file")
	chunkCmd.Flags().BoolVar(&chunkJSON, "json", false, "Print chunks as JSON")

	rootCmd.AddCommand(chunkCmd)
}

func runChunk(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (chunkURL == "") {
		return fmt.Errorf("provide exactly one of FILE or --url")
	}
	kind := types.Kind(chunkKind)
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q", chunkKind)
	}

	a := types.Artifact{Name: chunkName, Kind: kind, FileURL: chunkURL}
	if len(args) == 1 {
		a.FilePath = args[0]
	}
	if a.Name == "" {
		a.Name = defaultArtifactName(a)
	}

	resolver := artifact.NewResolver(artifact.Options{})
	chunks, err := resolver.Chunks(cmd.Context(), []types.Artifact{a}, kind, chunking.Options{
		MaxLength: chunkMaxLength,
		Overlap:   chunkOverlap,
	})
	if err != nil {
		return err
	}

	// Same lookup generation does, so a bad name shows up here too
	base := knowledge.NewBase()
	base.Add(chunks...)
	if _, tier, found := base.Select(a.Name, kind); found && tier != knowledge.TierExact {
		fmt.Fprintf(cmd.ErrOrStderr(), "note: %q matched with tier %s\n", a.Name, tier)
	}

	if chunkJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintChunks(chunks)
	return nil
}

func defaultArtifactName(a types.Artifact) string {
	source := a.FilePath
	if source == "" {
		source = strings.SplitN(a.FileURL, "?", 2)[0]
	}
	base := filepath.Base(source)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
