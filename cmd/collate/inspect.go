package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	internal "github.com/ZanzyTHEbar/glm-collator/collator"
	"github.com/ZanzyTHEbar/glm-collator/collator/batch"
	"github.com/ZanzyTHEbar/glm-collator/collator/common"
	"github.com/ZanzyTHEbar/glm-collator/collator/config"
	"github.com/ZanzyTHEbar/glm-collator/collator/labeling"
	"github.com/ZanzyTHEbar/glm-collator/collator/prompt"
	"github.com/ZanzyTHEbar/glm-collator/collator/tokenizer"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect DATA.jsonl",
		Short: "Label a JSONL dataset, collate it and print batch shapes",
		Args:  cobra.ExactArgs(1),
		RunE:  InspectHandler,
	}
	inspectCmd.Flags().Int("batch-size", 4, "Examples per batch")
	inspectCmd.Flags().Int("limit", 0, "Only inspect the first N examples (0 = all)")
	return inspectCmd
}

// InspectHandler labels and collates the dataset named by args[0].
func InspectHandler(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	limit, _ := cmd.Flags().GetInt("limit")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive, got %d", batchSize)
	}

	logger := internal.GetLogger().Level(zerolog.InfoLevel)
	if verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tok, err := tokenizer.NewSugarFromFile(cfg.Tokenizer.Path, specialsFromConfig(cfg))
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	examples, err := readExamples(f, limit)
	if err != nil {
		return err
	}

	labeler, err := labeling.NewLabeler(tok, cfg.Collator.CutoffLen)
	if err != nil {
		return err
	}
	mapper := labeling.NewMapper(labeler, cfg.Workers.Labeling, logger)
	labeled, err := mapper.Map(cmd.Context(), examples)
	if err != nil {
		return err
	}

	collator, err := batch.NewCollator(batch.Options{
		Scheme:             batch.SchemeName(cfg.Collator.Scheme),
		PadTo:              cfg.Collator.PadTo,
		PositionEncoding2D: cfg.Collator.PositionEncoding2D,
	}, tok.Specials(), logger)
	if err != nil {
		return err
	}

	var batches []*batch.Batch
	for start := 0; start < len(labeled); start += batchSize {
		end := min(start+batchSize, len(labeled))
		b, err := collator.Collate(labeled[start:end])
		if err != nil {
			return fmt.Errorf("batch starting at %d: %w", start, err)
		}
		batches = append(batches, b)
	}

	renderSummary(cmd.OutOrStdout(), batches, mapper.Metrics())
	return nil
}

func specialsFromConfig(cfg *config.Config) tokenizer.SpecialTokens {
	s := cfg.Tokenizer.Specials
	return tokenizer.SpecialTokens{
		Pad:     s.Pad,
		BOS:     s.BOS,
		EOS:     s.EOS,
		Mask:    s.Mask,
		GMask:   s.GMask,
		EOSText: s.EOSText,
		Suffix:  cfg.Tokenizer.Suffix,
	}
}

// readExamples decodes one record per non-blank line.
func readExamples(r io.Reader, limit int) ([]prompt.Example, error) {
	return decodeJSONL[prompt.Example](r, limit)
}

func renderSummary(w io.Writer, batches []*batch.Batch, stats common.PerformanceMetrics) {
	tableRender := func(header string, rows [][]string) {
		fmt.Fprintln(w, " ", header)
		table := tablewriter.NewWriter(w)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetNoWhiteSpace(true)
		table.SetTablePadding("    ")
		table.AppendBulk(rows)
		table.Render()
		fmt.Fprintln(w)
	}

	var rows [][]string
	for i, b := range batches {
		rows = append(rows, []string{
			"",
			fmt.Sprintf("#%d", i),
			string(b.Scheme),
			fmt.Sprintf("%dx%d", b.Size(), b.SeqLen()),
			shape(b.AttentionMask.Shape()),
			shape(b.PositionIDs.Shape()),
			fmt.Sprint(supervised(b)),
		})
	}
	tableRender("Batches", rows)

	metrics := stats.GetMetrics()
	keys := make([]string, 0, len(metrics))
	for k := range metrics {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows = nil
	for _, k := range keys {
		rows = append(rows, []string{"", k, fmt.Sprint(metrics[k])})
	}
	tableRender("Labeling", rows)
}

func shape(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func supervised(b *batch.Batch) int {
	n := 0
	for _, row := range b.Labels {
		for _, l := range row {
			if l != labeling.IgnoreIndex {
				n++
			}
		}
	}
	return n
}
