package main

import (
	"context"
	"errors"

	internal "github.com/ZanzyTHEbar/glm-collator/collator"
	"github.com/ZanzyTHEbar/glm-collator/collator/config"
	"github.com/ZanzyTHEbar/glm-collator/collator/eval"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	evalCmd := &cobra.Command{
		Use:   "eval ITEMS.jsonl GENERATIONS.jsonl",
		Short: "Attach recorded model generations to evaluation items",
		Long: "Reads evaluation items and a file of {\"prompt\", \"text\"} generations produced by an\n" +
			"inference server, extracts each response and writes the items with ac_output as JSONL.",
		Args: cobra.ExactArgs(2),
		RunE: EvalHandler,
	}
	return evalCmd
}

// EvalHandler replays recorded generations through the evaluator.
func EvalHandler(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	items, err := readJSONL[eval.Item](args[0])
	if err != nil {
		return err
	}
	gen, err := loadReplay(args[1])
	if err != nil {
		return err
	}

	evaluator := eval.NewEvaluator(gen, cfg.Tokenizer.Specials.EOSText, cfg.Workers.Eval, internal.GetLogger())
	return writeJSONL(cmd.OutOrStdout(), evaluator.Evaluate(cmd.Context(), items))
}

// replayGenerator serves generations recorded ahead of time, keyed by prompt.
type replayGenerator map[string]string

type generation struct {
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

func loadReplay(path string) (replayGenerator, error) {
	records, err := readJSONL[generation](path)
	if err != nil {
		return nil, err
	}
	gen := make(replayGenerator, len(records))
	for _, r := range records {
		gen[r.Prompt] = r.Text
	}
	return gen, nil
}

func (g replayGenerator) Generate(_ context.Context, prompt string) (string, error) {
	text, ok := g[prompt]
	if !ok {
		return "", errors.New("no recorded generation for prompt")
	}
	return text, nil
}
