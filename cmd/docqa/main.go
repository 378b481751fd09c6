// Package main provides the docqa CLI for asking questions about PDF files.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/pdf-rag-server/internal/app"
	"github.com/bull/pdf-rag-server/internal/config"
	"github.com/bull/pdf-rag-server/internal/rag"
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "PDF question answering tool",
	Long:  "CLI tool for asking questions about PDF documents and maintaining their vector indexes",
}

var askCmd = &cobra.Command{
	Use:   "ask <file.pdf> <question>...",
	Short: "Index a PDF and answer questions about it",
	Long: `Indexes a PDF and answers each question from its content.

This command:
1. Extracts the text of every page with pdftotext
2. Splits it into overlapping chunks and embeds them
3. Stores the chunks in a collection of their own
4. Answers each question from the most relevant chunks
5. Deletes the document again unless --keep is set

Environment variables:
  VECTOR_STORE   qdrant or memory (default: qdrant)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings and answers (optional)
  LLM_MODEL      Chat model used for answers (default: gpt-4o-mini)`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete document collections from Qdrant",
	Long: `Deletes every document collection from Qdrant.

The document registry lives in server memory, so collections created by a
previous server process can no longer be queried. Do not run this while a
server is serving documents from the same Qdrant instance.`,
	RunE: runPrune,
}

var (
	keepDocument bool
	storeFlag    string
	dryRun       bool
)

func init() {
	askCmd.Flags().BoolVar(&keepDocument, "keep", false, "keep the document and its collection after answering")
	askCmd.Flags().StringVar(&storeFlag, "store", "", "vector store override: qdrant or memory")
	pruneCmd.Flags().BoolVar(&dryRun, "dry-run", false, "list collections without deleting them")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(pruneCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	config.LoadDotEnv()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadApp(store string) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("Invalid configuration: %w", err)
	}
	if store != "" {
		cfg.VectorStore = store
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("Invalid configuration: %w", err)
		}
	}
	return app.New(cfg, nil)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path, questions := args[0], args[1:]

	for _, q := range questions {
		if err := rag.ValidateQuestion(q); err != nil {
			return err
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("Failed to read %s: %w", path, err)
	}

	a, err := loadApp(storeFlag)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := rag.ValidateUpload(info.Name(), info.Size(), a.Config.MaxUploadBytes()); err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("Failed to open %s: %w", path, err)
	}
	defer file.Close()

	fmt.Printf("Indexing %s...\n", info.Name())
	start := time.Now()
	doc, err := a.Service.Ingest(ctx, file, info.Name())
	if err != nil {
		return fmt.Errorf("Indexing failed: %w", err)
	}
	fmt.Printf("Indexed %d pages, %d chunks in %s\n", doc.PageCount, doc.ChunkCount, time.Since(start).Round(time.Millisecond))

	if !keepDocument {
		defer func() {
			if _, err := a.Service.Delete(ctx, doc.ID); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to delete document %s: %v\n", doc.ID, err)
			}
		}()
	}

	for _, q := range questions {
		answer, err := a.Service.Ask(ctx, doc.ID, q)
		if err != nil {
			return fmt.Errorf("Question failed: %w", err)
		}
		printAnswer(q, answer)
	}

	if keepDocument {
		fmt.Printf("\nDocument kept: %s\n", doc.ID)
	}
	return nil
}

func printAnswer(question string, answer *rag.Answer) {
	fmt.Println()
	fmt.Printf("Q: %s\n", question)
	fmt.Println(strings.Repeat("-", 40))
	fmt.Println(answer.Text)
	if answer.Mode != rag.ModeGenerated {
		fmt.Printf("(mode: %s)\n", answer.Mode)
	}

	if len(answer.Citations) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, c := range answer.Citations {
			fmt.Printf("  [page %s, score %.2f] %s\n", c.Page, c.Score, strings.ReplaceAll(c.Snippet, "\n", " "))
		}
	}
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := loadApp(config.StoreQdrant)
	if err != nil {
		return err
	}
	defer a.Close()

	names, err := a.Index.Collections(ctx)
	if err != nil {
		return fmt.Errorf("Failed to list collections: %w", err)
	}
	if len(names) == 0 {
		fmt.Println("No document collections found")
		return nil
	}

	deleted := 0
	for _, name := range names {
		if dryRun {
			fmt.Printf("  would delete %s\n", name)
			continue
		}
		if err := a.Index.DropCollection(ctx, name); err != nil {
			fmt.Fprintf(os.Stderr, "  failed to delete %s: %v\n", name, err)
			continue
		}
		fmt.Printf("  deleted %s\n", name)
		deleted++
	}

	if dryRun {
		fmt.Printf("%d collections would be deleted\n", len(names))
	} else {
		fmt.Printf("Deleted %d of %d collections\n", deleted, len(names))
	}
	return nil
}
