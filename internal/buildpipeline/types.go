package buildpipeline

import (
	"fmt"
	"strings"
	"time"
)

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad decodes and links the program container.
	StageLoad Stage = "load"
	// StageTranslate emits the WAT module.
	StageTranslate Stage = "translate"
	// StageEncode runs the external assembler.
	StageEncode Stage = "encode"
	// StageWrite writes artefacts to the output directory.
	StageWrite Stage = "write"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageLoad, StageTranslate, StageEncode, StageWrite}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusDone indicates the task is done.
	StatusDone Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for an input file (or for the whole build when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use: programs are built in parallel.
type ProgressSink interface {
	OnEvent(Event)
}

// Output selects which artefacts a build produces.
type Output string

const (
	// OutputWAT writes only the text module.
	OutputWAT Output = "wat"
	// OutputWasm assembles the text module into a binary.
	OutputWasm Output = "wasm"
	// OutputBoth keeps the text module next to the binary.
	OutputBoth Output = "both"
)

// ParseOutput validates an output selector.
func ParseOutput(s string) (Output, error) {
	switch o := Output(strings.ToLower(strings.TrimSpace(s))); o {
	case OutputWAT, OutputWasm, OutputBoth:
		return o, nil
	case "":
		return OutputWAT, nil
	default:
		return "", fmt.Errorf("unsupported output %q (supported: wat, wasm, both)", s)
	}
}

func (o Output) wantsWat() bool  { return o == OutputWAT || o == OutputBoth || o == "" }
func (o Output) wantsWasm() bool { return o == OutputWasm || o == OutputBoth }

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Add accumulates the durations recorded in other.
func (t *Timings) Add(other Timings) {
	if t == nil {
		return
	}
	t.ensure()
	for stage, dur := range other.stages {
		t.stages[stage] += dur
	}
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
