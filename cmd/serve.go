/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/josephgoksu/LinkWing/internal/knowledge"
	"github.com/josephgoksu/LinkWing/internal/server"
	"github.com/spf13/cobra"
)

var (
	servePort    int
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP linking API",
	Long: `Serve exposes the linking engine over HTTP:
  - POST /api/link            link a document's mentions
  - GET  /api/entities        list entities
  - POST /api/entities        upsert an entity
  - GET  /api/review          pending review queue (sqlite backend)
  - POST /api/review/{id}     confirm or reject a link

With the file backend the knowledge snapshot is watched for changes and
the index follows it. Press Ctrl+C to stop.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "API server port (default from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "disable knowledge file watching (file backend)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	c, err := buildComponents(ctx, true)
	if err != nil {
		return err
	}
	defer c.close()

	port := servePort
	if port == 0 {
		port = c.cfg.Server.Port
	}

	var records server.RecordStore
	if c.records != nil {
		records = c.records
	}

	srv := server.New(port, server.Deps{
		Store:      c.store,
		Records:    records,
		Index:      c.index,
		Session:    c.session,
		NewContext: c.newContext,
		Version:    GetVersion(),
	})

	var wg sync.WaitGroup
	errChan := make(chan error, 2)
	srv.Start(&wg, errChan)

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if c.fileStore != nil && !serveNoWatch {
		if err := startKnowledgeWatch(watchCtx, c, &wg, errChan); err != nil {
			_ = srv.Shutdown(context.Background())
			return err
		}
	}

	fmt.Printf("LinkWing API listening on http://localhost:%d (%d entities, %s backend)\n",
		port, c.index.Size(), c.cfg.Knowledge.Backend)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		fmt.Printf("\nReceived %v, shutting down...\n", sig)
	case err := <-errChan:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	cancelWatch()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "Server shutdown error: %v\n", err)
	}

	wg.Wait()
	fmt.Println("LinkWing stopped")
	return nil
}

// startKnowledgeWatch runs the snapshot watcher in a goroutine and feeds
// its deltas to the index.
func startKnowledgeWatch(ctx context.Context, c *components, wg *sync.WaitGroup, errChan chan<- error) error {
	watcher, err := knowledge.NewWatcher(c.fileStore, c.index.ApplyDelta)
	if err != nil {
		return fmt.Errorf("create knowledge watcher: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errChan <- fmt.Errorf("knowledge watcher: %w", err)
		}
	}()
	return nil
}
