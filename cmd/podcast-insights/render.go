package main

import (
	"fmt"
	"io"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/workflow"
)

const summaryRounding = time.Second

func renderEvent(out io.Writer, event workflow.Event) {
	switch event.Type {
	case workflow.EventStageStarted:
		fmt.Fprintf(out, "  %s: %s...\n", event.EpisodeTitle, event.Stage)
	case workflow.EventStageCompleted:
		fmt.Fprintf(out, "  %s: %s done\n", event.EpisodeTitle, event.Stage)
	case workflow.EventStageSkipped:
		fmt.Fprintf(out, "  %s: %s already done\n", event.EpisodeTitle, event.Stage)
	case workflow.EventStageFailed:
		fmt.Fprintf(out, "  %s: %s failed: %v\n", event.EpisodeTitle, event.Stage, event.Err)
	case workflow.EventEpisodeCompleted:
		fmt.Fprintf(out, "✓ %s\n", event.EpisodeTitle)
	case workflow.EventEpisodeSkipped:
		fmt.Fprintf(out, "- %s (nothing to do)\n", event.EpisodeTitle)
	case workflow.EventEpisodeFailed:
		fmt.Fprintf(out, "✗ %s\n", event.EpisodeTitle)
	}
}
