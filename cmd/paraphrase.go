package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"paratext/internal/paraphrase"
)

const paraphraseUsage = `Usage:
  paratext paraphrase --config <path> [--mode natural|longer|same_length] [--in <file>] [--env <path>]

Flags:
  --config string   Path to YAML configuration file (required)
  --mode   string   Rewrite mode (default "natural")
  --in     string   Input document; stdin when omitted
  --env    string   Environment file loaded before the config (default ".env")`

type paraphraseOutput struct {
	Paraphrased string         `json:"paraphrased"`
	Mode        string         `json:"mode"`
	Model       string         `json:"model"`
	Profile     string         `json:"profile"`
	Paragraphs  int            `json:"paragraphs"`
	Chunks      int            `json:"chunks"`
	Outcomes    map[string]int `json:"outcomes"`
}

func paraphraseOnce(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("paraphrase", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, paraphraseUsage)
	}

	var cfgPath, envFile, modeName, inPath string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")
	fs.StringVar(&envFile, "env", defaultEnvFile, "environment file")
	fs.StringVar(&modeName, "mode", "natural", "rewrite mode")
	fs.StringVar(&inPath, "in", "", "input document")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse paraphrase flags: %w", err)
	}
	if cfgPath == "" {
		return errors.New("paraphrase command requires --config <path>")
	}

	cfg, err := loadConfig(cfgPath, envFile)
	if err != nil {
		return err
	}

	document, err := readDocument(inPath, os.Stdin)
	if err != nil {
		return err
	}

	handle := paraphrase.NewHandle(newBackendLoader(cfg))
	mode := paraphrase.ParseMode(modeName)
	res, err := handle.Paraphrase(ctx, document, mode)
	if err != nil {
		return err
	}
	backend, err := handle.Get(ctx)
	if err != nil {
		return err
	}

	return writeResult(os.Stdout, backend, mode, res)
}

func readDocument(path string, stdin io.Reader) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read input %q: %w", path, err)
	}
	return string(data), nil
}

func writeResult(w io.Writer, backend *paraphrase.Backend, mode paraphrase.Mode, res paraphrase.Result) error {
	out := paraphraseOutput{
		Paraphrased: res.Text,
		Mode:        mode.String(),
		Model:       backend.Model.ID,
		Profile:     backend.Profile.String(),
		Paragraphs:  res.Paragraphs,
		Chunks:      res.Chunks,
		Outcomes:    make(map[string]int, len(res.Outcomes)),
	}
	for outcome, n := range res.Outcomes {
		out.Outcomes[string(outcome)] = n
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(out)
}
