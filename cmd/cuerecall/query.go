package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
)

func newQueryCmd() *cobra.Command {
	var (
		ownerID    int32
		maxCues    int
		showPrompt bool
		showStats  bool
	)

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Build the personalization context for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			core, err := newRetrievalCore(s)
			if err != nil {
				return err
			}
			defer core.Close()

			query := strings.Join(args, " ")
			rag, err := core.BuildContext(cmd.Context(), ownerID, query, maxCues)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showPrompt {
				fmt.Fprintln(out, retrieval.RenderPrompt(rag, query))
				return nil
			}
			printContext(out, rag)
			if showStats {
				printStats(out, core)
			}
			return nil
		},
	}

	cmd.Flags().Int32Var(&ownerID, "owner", 1, "owner ID")
	cmd.Flags().IntVar(&maxCues, "max", 5, "maximum number of cues")
	cmd.Flags().BoolVar(&showPrompt, "prompt", false, "print the rendered prompt instead of the context")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print encoder and cache statistics")
	return cmd
}

func printContext(w io.Writer, rag *retrieval.RAGContext) {
	fmt.Fprintf(w, "Summary:    %s\n", rag.Summary)
	fmt.Fprintf(w, "Confidence: %.2f\n", rag.Confidence)
	if len(rag.PersonalityFactors) > 0 {
		fmt.Fprintln(w, "Factors:")
		for _, f := range rag.PersonalityFactors {
			fmt.Fprintf(w, "  - %s\n", f)
		}
	}
	if len(rag.Cues) > 0 {
		fmt.Fprintln(w, "Cues:")
		for _, c := range rag.Cues {
			fmt.Fprintf(w, "  - %s (%s, %s) confidence=%.2f\n", c.Key, c.Type, c.Category, c.Confidence)
		}
	}
}

func printStats(w io.Writer, core *retrieval.Core) {
	snap := core.Metrics()
	fmt.Fprintln(w, "Stats:")
	fmt.Fprintf(w, "  remote embeddings: %d, fallbacks: %d\n", snap.RemoteEmbedding, snap.Fallbacks)
	fmt.Fprintf(w, "  cache hit rate: %.1f%% (%d entries)\n", snap.CacheHitRate(), core.CacheStats().Size)
	fmt.Fprintf(w, "  build time: %s\n", snap.AverageDuration)
}
