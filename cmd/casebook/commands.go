package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmarek/casebook/internal/api"
	"github.com/dmarek/casebook/internal/config"
	"github.com/dmarek/casebook/internal/embedding"
	"github.com/dmarek/casebook/internal/knowledge"
	"github.com/dmarek/casebook/internal/ollama"
	"github.com/dmarek/casebook/internal/retrieval"
	"github.com/dmarek/casebook/internal/seed"
	"github.com/dmarek/casebook/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a legal research question",
	Long: `Ask a legal research question.

Examples:
  casebook ask "What is the limitation period for breach of contract?"
  casebook ask --matter m1 --effort thorough "Summarize the termination provisions"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		matter, _ := cmd.Flags().GetString("matter")
		effort, _ := cmd.Flags().GetString("effort")
		caseContext, _ := cmd.Flags().GetString("context")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"question": question}
		if matter != "" {
			req["matter_id"] = matter
		}
		if effort != "" {
			req["effort"] = effort
		}
		if caseContext != "" {
			req["case_context"] = caseContext
		}

		resp, err := client.post(cmd.Context(), "/ask", req)
		if err != nil {
			return err
		}

		var result api.AskResponse
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		fmt.Println()
		printStatus("Provider", "%s (complexity: %s, effort: %s)",
			result.Provider, result.Complexity, result.Effort)
		if len(result.Citations) > 0 {
			printStatus("Citations", "%s", strings.Join(result.Citations, ", "))
		}
		for i, s := range result.Sources {
			printStatus(fmt.Sprintf("Source %d", i+1), "%s", s.SourceFileName)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("matter", "", "matter whose documents should be searched for sources")
	askCmd.Flags().String("effort", "", "effort level: quick, standard, thorough, or deep")
	askCmd.Flags().String("context", "", "case-specific context to include in the prompt")
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a matter's documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		matter, _ := cmd.Flags().GetString("matter")
		fileType, _ := cmd.Flags().GetString("type")
		limit, _ := cmd.Flags().GetInt("limit")

		if matter == "" {
			return fmt.Errorf("--matter is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/search", map[string]any{
			"query":     query,
			"matter_id": matter,
			"file_type": fileType,
			"limit":     limit,
		})
		if err != nil {
			return err
		}

		var results []retrieval.SearchResult
		if err := decodeJSON(resp, &results); err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		for i, r := range results {
			header := fmt.Sprintf("Result %d", i+1)
			fmt.Printf("\n%s [score: %.4f] %s", colorize(colorBold, header), r.Score, r.SourceFileName)
			if r.PageNumber != nil {
				fmt.Printf(" p.%d", *r.PageNumber)
			}
			fmt.Println()
			content := r.Content
			if len(content) > 500 {
				content = content[:500] + "..."
			}
			fmt.Printf("  %s\n", content)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().String("matter", "", "matter to search within")
	searchCmd.Flags().String("type", "", "file type filter (pdf, html, text, audio)")
	searchCmd.Flags().Int("limit", 10, "maximum number of results")
}

// --- seed ---

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the curated corpus and ingest matter documents",
	Long: `Load the curated corpus and ingest matter documents.

Seeding works directly against the data directory and does not require a
running server.

Examples:
  casebook seed --corpus ./corpus
  casebook seed --docs ./matters/smith --matter m1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		corpusDir, _ := cmd.Flags().GetString("corpus")
		docsDir, _ := cmd.Flags().GetString("docs")
		matter, _ := cmd.Flags().GetString("matter")

		if corpusDir == "" && docsDir == "" {
			return fmt.Errorf("one of --corpus or --docs is required")
		}
		if docsDir != "" && matter == "" {
			return fmt.Errorf("--matter is required with --docs")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		gateway := embedding.NewGateway(
			embedding.NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.EmbedModel),
			embedding.NewOllamaProvider(ollama.New(cfg.Ollama.BaseURL), cfg.Ollama.EmbedModel),
		)
		seeder := seed.NewSeeder(
			knowledge.NewSQLiteCorpus(store.DB()),
			retrieval.NewSQLiteBackend(store.DB()),
			gateway,
		)

		ctx := cmd.Context()

		if corpusDir != "" {
			printStep("Loading corpus from %s...", corpusDir)
			counts, err := seeder.LoadCorpus(ctx, corpusDir)
			if err != nil {
				return err
			}
			printSuccess("Loaded %d cases, %d principles, %d legislation sections",
				counts.Cases, counts.Principles, counts.Legislation)
		}

		if docsDir != "" {
			printStep("Ingesting documents from %s into matter %s...", docsDir, matter)
			n, err := seeder.IngestDir(ctx, docsDir, matter)
			if err != nil {
				return err
			}
			printSuccess("Ingested %d chunks", n)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().String("corpus", "", "directory with cases.json, principles.json, legislation.json")
	seedCmd.Flags().String("docs", "", "directory of documents to ingest")
	seedCmd.Flags().String("matter", "", "matter ID for ingested documents")
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/interactions?limit=%d", limit))
		if err != nil {
			return err
		}

		var interactions []storage.Interaction
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		if len(interactions) == 0 {
			fmt.Println("No interactions found.")
			return nil
		}

		for _, ix := range interactions {
			question := ix.Question
			if len(question) > 70 {
				question = question[:70] + "..."
			}
			fmt.Printf("%s  %s  %-9s %-15s %s\n",
				colorize(colorCyan, ix.ID[:8]),
				ix.CreatedAt.Format("2006-01-02 15:04"),
				ix.Complexity,
				ix.Provider,
				question,
			)
		}
		return nil
	},
}

func init() {
	interactionsCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
}
