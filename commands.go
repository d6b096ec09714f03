package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/Manjussha/insightlab/internal/insight"
	"github.com/Manjussha/insightlab/internal/pricing"
	"github.com/Manjussha/insightlab/internal/render"
	"github.com/Manjussha/insightlab/internal/share"
	"github.com/Manjussha/insightlab/internal/tokenizer"
)

// promptArg joins the positional arguments into one prompt.
func promptArg(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() == 0 {
		return "", errors.New("a prompt is required")
	}
	return strings.Join(cmd.Args().Slice(), " "), nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func simulateCmd(out io.Writer) *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:      "simulate",
		Usage:     "Show the simulated next-token probabilities of a prompt",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the sequence as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text, err := promptArg(cmd)
			if err != nil {
				return err
			}
			seq := tokenizer.Simulate(text)
			if asJSON {
				return writeJSON(out, map[string]interface{}{"seed": tokenizer.Seed(text), "tokens": seq})
			}
			render.New(out).Sequence(seq)
			return nil
		},
	}
}

func tokenizeCmd(out io.Writer) *cli.Command {
	var asJSON bool
	return &cli.Command{
		Name:      "tokenize",
		Usage:     "Split a prompt into display tokens",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "print the tokens as JSON", Destination: &asJSON},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text, err := promptArg(cmd)
			if err != nil {
				return err
			}
			tokens := tokenizer.Tokenize(text)
			if asJSON {
				return writeJSON(out, tokens)
			}
			render.New(out).Tokens(tokens)
			return nil
		},
	}
}

func analyzeCmd(out io.Writer) *cli.Command {
	var (
		model       string
		pricingFile string
	)
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Estimate tokens and cost of a prompt and suggest improvements",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "model to price the prompt for",
				Value:       "gpt-4",
				Destination: &model,
			},
			&cli.StringFlag{
				Name:        "pricing",
				Usage:       "YAML pricing table (defaults to the built-in table)",
				Sources:     cli.EnvVars("PRICING_FILE"),
				Destination: &pricingFile,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text, err := promptArg(cmd)
			if err != nil {
				return err
			}
			table := pricing.DefaultTable()
			if pricingFile != "" {
				if table, err = pricing.LoadFile(pricingFile); err != nil {
					return err
				}
			}
			catalog := pricing.NewCatalog(table)
			rep, err := insight.Measure(text, model, catalog)
			if errors.Is(err, pricing.ErrUnknownModel) {
				return fmt.Errorf("unknown model %q (known: %s)", model, strings.Join(catalog.Models(), ", "))
			}
			if err != nil {
				return err
			}
			render.New(out).Report(rep)
			return nil
		},
	}
}

func shareCmd(out io.Writer) *cli.Command {
	var base string
	return &cli.Command{
		Name:      "share",
		Usage:     "Build a link that reproduces the visualization of a prompt",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "base",
				Usage:       "base URL of the lab",
				Value:       "http://localhost:8080/",
				Destination: &base,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			text, err := promptArg(cmd)
			if err != nil {
				return err
			}
			link, err := share.Encode(base, text)
			if err != nil {
				return err
			}
			render.New(out).Line(link)
			return nil
		},
	}
}
