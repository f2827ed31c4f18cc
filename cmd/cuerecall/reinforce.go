package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/hrygo/cuerecall/plugin/ai/memory"
	"github.com/hrygo/cuerecall/plugin/ai/reinforce"
	"github.com/hrygo/cuerecall/plugin/ai/retrieval"
)

func newReinforceCmd() *cobra.Command {
	var (
		ownerID  int32
		key      string
		cueType  string
		category string
		evidence string
		payload  map[string]string
	)

	cmd := &cobra.Command{
		Use:   "reinforce",
		Short: "Record evidence for a cue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			cues := memory.NewCueStore(s)
			worker := reinforce.NewWorker(cues, reinforce.WithQueueSize(1))

			event := reinforce.Event{
				OwnerID:         ownerID,
				Key:             key,
				Type:            retrieval.CueType(cueType),
				Category:        category,
				Payload:         payload,
				EvidenceQuality: retrieval.EvidenceQuality(evidence),
				ObservedAt:      time.Now(),
			}
			if err := event.Validate(); err != nil {
				return err
			}

			done := make(chan error, 1)
			go func() { done <- worker.Run(cmd.Context()) }()
			if !worker.Submit(event) {
				worker.Close()
				<-done
				return errors.New("reinforcement event was not accepted")
			}
			worker.Close()
			if err := <-done; err != nil && !errors.Is(err, reinforce.ErrClosed) && !errors.Is(err, context.Canceled) {
				return err
			}
			if worker.Metrics().Reinforced == 0 {
				return errors.New("reinforcement was not applied; see logs")
			}

			cue, err := cues.FindCue(cmd.Context(), ownerID, key, event.Type)
			if err != nil {
				return err
			}
			if cue == nil {
				return errors.Errorf("cue %s/%s not found after reinforcement", key, cueType)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s) confidence=%.2f evidence=%s\n",
				cue.Key, cue.Type, cue.Category, cue.Confidence, cue.EvidenceQuality)
			return nil
		},
	}

	cmd.Flags().Int32Var(&ownerID, "owner", 1, "owner ID")
	cmd.Flags().StringVar(&key, "key", "", "cue key, e.g. prefers_react")
	cmd.Flags().StringVar(&cueType, "type", string(retrieval.CueTypePreference), "cue type (preference, behavior, pattern, skill, context)")
	cmd.Flags().StringVar(&category, "category", "", "cue category, e.g. technical")
	cmd.Flags().StringVar(&evidence, "evidence", string(retrieval.EvidenceMedium), "evidence quality (low, medium, high)")
	cmd.Flags().StringToStringVar(&payload, "payload", nil, "payload entries as key=value")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}
