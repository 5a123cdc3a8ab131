package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/search-wizard/internal/ingestion"
	"github.com/jonathan/search-wizard/internal/render"
	"github.com/jonathan/search-wizard/internal/server"
	"github.com/jonathan/search-wizard/internal/server/ratelimit"
)

var (
	servePort int
	noPDF     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes document generation, structure analysis and document retrieval endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config and PORT)")
	serveCmd.Flags().BoolVar(&noPDF, "no-pdf", false, "Disable PDF rendering when Chrome is not installed")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Port
	if servePort != 0 {
		port = servePort
	}

	generator, err := a.generator(nil)
	if err != nil {
		return err
	}

	blobs, err := openBlobs(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}

	deps := server.Deps{
		Store:     a.store,
		Generator: generator,
		Extractor: a.extractor,
		Pages:     ingestion.PageImages,
		Blobs:     blobs,
		Provider:  a.client.Provider(),
		Logger:    a.log,
	}
	if !noPDF {
		deps.PDF = render.NewPDFRenderer(render.Options{
			ExecPath: a.cfg.Render.ChromePath,
			Timeout:  a.cfg.RenderTimeout(),
			Logger:   a.log,
		})
	}

	srv, err := server.New(server.Config{
		Port:        port,
		JWT:         a.cfg.JWT(),
		RateLimit:   ratelimit.LoadConfig(os.Getenv),
		SupabaseKey: a.cfg.Supabase.Key,
	}, deps)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start(cmd.Context())
}
