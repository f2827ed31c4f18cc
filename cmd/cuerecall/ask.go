package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/cuerecall/plugin/ai"
	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
)

func newAskCmd() *cobra.Command {
	var (
		ownerID int32
		maxCues int
		stream  bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question with the user's personalization context",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ai.NewConfigFromProfile(instanceProfile)
			if !cfg.HasLLM() {
				return errors.New("no chat model configured; set CUERECALL_AI_ENABLED and CUERECALL_AI_LLM_PROVIDER with its API key")
			}
			llm, err := ai.NewLLMService(&cfg.LLM)
			if err != nil {
				return errors.Wrap(err, "failed to create LLM service")
			}

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

			question := strings.Join(args, " ")
			rag, err := core.BuildContext(cmd.Context(), ownerID, question, maxCues)
			if err != nil {
				return err
			}
			messages := ai.FormatMessages("", retrieval.RenderPrompt(rag, question))

			out := cmd.OutOrStdout()
			if !stream {
				answer, err := llm.Chat(cmd.Context(), messages)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, answer)
				return nil
			}

			contentChan, errChan := llm.ChatStream(cmd.Context(), messages)
			for chunk := range contentChan {
				fmt.Fprint(out, chunk)
			}
			fmt.Fprintln(out)
			return <-errChan
		},
	}

	cmd.Flags().Int32Var(&ownerID, "owner", 1, "owner ID")
	cmd.Flags().IntVar(&maxCues, "max", 5, "maximum number of cues")
	cmd.Flags().BoolVar(&stream, "stream", true, "stream the answer as it is generated")
	return cmd
}
