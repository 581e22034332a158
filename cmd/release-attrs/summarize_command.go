package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/release-attributes/internal/batch"
)

func newSummarizeCommand(ctx *commandContext) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Count blank and internet releases per title",
		Long: `Reads a title,attributes CSV written by scrape and writes
title,blank,internet,total rows to --output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rows []batch.OutputRow
			err := readFile(strings.TrimSpace(input), func(r io.Reader) error {
				var err error
				rows, err = batch.ReadOutput(r)
				return err
			})
			if err != nil {
				return err
			}

			summaries := batch.Summarize(rows)
			if err := writeFile(strings.TrimSpace(output), func(w io.Writer) error {
				return batch.WriteSummaries(w, summaries)
			}); err != nil {
				return err
			}

			ctx.logger.Info().
				Int("rows", len(summaries)).
				Str("output", output).
				Msg("Summaries written")
			fmt.Fprintf(cmd.OutOrStdout(), "Summarized %d titles\n", len(summaries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "CSV of title,attributes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV of title,blank,internet,total")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
