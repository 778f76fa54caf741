package main

import (
	"context"
	"os"
	"strings"

	"github.com/chraibi/ZoteroTidy/internal/intent"
	"github.com/chraibi/ZoteroTidy/internal/snapshot"
)

// MutationResponse is the response for commands that write to the library.
type MutationResponse struct {
	Command string `json:"command" yaml:"command"`

	intent.Result `yaml:",inline"`

	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// applyIntents runs intents through the executor, gated by the snapshot's
// sync guard. Once anything has been written the cached snapshot is marked
// stale, even if a later write fails.
func (a *app) applyIntents(ctx context.Context, snap *snapshot.Snapshot, intents []intent.Intent, dryRun bool) (intent.Result, error) {
	exec := intent.NewExecutor(a.client, snap.Guard(a.client),
		intent.WithLogger(a.log.With().Str("component", "executor").Logger()),
		intent.WithDryRun(dryRun),
	)
	res, err := exec.Apply(ctx, intents)
	if res.Applied > 0 {
		if markErr := a.db.MarkStale(context.WithoutCancel(ctx)); markErr != nil {
			a.log.Warn().Err(markErr).Msg("could not mark snapshot stale")
		}
	}
	return res, err
}

// finishMutation reports the outcome of a write command and exits non-zero
// if the run failed.
func finishMutation(command string, res intent.Result, err error) error {
	resp := MutationResponse{Command: command, Result: res}
	if err != nil {
		resp.Error = err.Error()
	}

	if humanOutput {
		printMutationHuman(resp)
		if err != nil {
			exitOnError(err, command)
		}
		return nil
	}

	if outErr := outputResult(resp); outErr != nil {
		return outErr
	}
	if err != nil {
		os.Exit(exitCode(err))
	}
	return nil
}

func printMutationHuman(resp MutationResponse) {
	res := resp.Result
	if len(res.Planned) == 0 {
		outputHuman("%s %s: nothing to do\n", okMark, resp.Command)
		return
	}

	prefix := ""
	if res.DryRun {
		prefix = "would "
	}
	for _, in := range res.Planned {
		line := prefix + in.String()
		if in.Title != "" {
			line += "  " + truncateString(in.Title, ListTitleMaxLen)
		}
		outputHuman("  %s\n", strings.TrimSpace(line))
	}

	switch {
	case res.DryRun:
		outputHuman("%s Dry run: %d change(s) planned, nothing written\n", warnMark, len(res.Planned))
	case res.Failed != nil:
		outputHuman("%s Applied %d of %d, halted at: %s\n", failMark, res.Applied, len(res.Planned), res.Failed)
	default:
		outputHuman("%s Applied %d, skipped %d (run %s)\n", okMark, res.Applied, res.Skipped, res.RunID)
		if res.Applied > 0 {
			outputHuman("  Run 'zotidy load' before the next change.\n")
		}
	}
}
