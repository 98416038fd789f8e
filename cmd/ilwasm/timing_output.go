package main

import (
	"fmt"
	"io"
	"time"

	"ilwasm/internal/buildpipeline"
	"ilwasm/internal/observ"
)

var timingLabels = map[buildpipeline.Stage]string{
	buildpipeline.StageLoad:      "loaded",
	buildpipeline.StageTranslate: "translated",
	buildpipeline.StageEncode:    "encoded",
	buildpipeline.StageWrite:     "written",
}

// printStageTimings prints the per-stage totals summed over all programs,
// followed by the per-phase timer breakdown when one was recorded.
func printStageTimings(out io.Writer, timings buildpipeline.Timings, timer *observ.Timer) {
	if out == nil {
		return
	}
	for _, stage := range buildpipeline.Stages {
		if !timings.Has(stage) {
			continue
		}
		if _, err := fmt.Fprintf(out, "%s %.1f ms\n", timingLabels[stage], toMillis(timings.Duration(stage))); err != nil {
			return
		}
	}
	if timer != nil && len(timer.Report().Phases) > 0 {
		fmt.Fprint(out, timer.Summary())
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
