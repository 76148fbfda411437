package buslog_test

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"time"

	"github.com/canlabs/buslog/pkg/buslog"
	"github.com/canlabs/buslog/pkg/log"
)

// Example demonstrates the minimal embedding flow: create, start, stop.
func Example() {
	cfg := buslog.Config{OutputDir: os.TempDir()}

	agent, err := buslog.New(cfg)
	if err != nil {
		stdlog.Fatal(err)
	}
	if err := agent.Start(context.Background()); err != nil {
		stdlog.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	_ = agent.Stop()
}

// ExampleWithEventHandler shows how to observe pipeline activity.
func ExampleWithEventHandler() {
	handler := &printHandler{}

	agent, err := buslog.New(
		buslog.Config{OutputDir: os.TempDir()},
		buslog.WithLogger(log.NewZerologAdapter()),
		buslog.WithEventHandler(handler),
	)
	if err != nil {
		stdlog.Fatal(err)
	}
	if err := agent.Start(context.Background()); err != nil {
		stdlog.Fatal(err)
	}
	_ = agent.Stop()
}

type printHandler struct{}

func (printHandler) OnStateChange(e buslog.StateChangeEvent) {
	fmt.Printf("state: %s -> %s (%s)\n", e.Previous, e.Current, e.Reason)
}

func (printHandler) OnBlockWritten(e buslog.BlockWrittenEvent) {
	fmt.Printf("block written: %d bytes in %s\n", e.Bytes, e.Duration)
}

func (printHandler) OnOverrun(e buslog.OverrunEvent) {
	fmt.Printf("overrun with %d blocks pending\n", e.PendingBlocks)
}

func (printHandler) OnWriteError(e buslog.WriteErrorEvent) {
	fmt.Printf("write error (attempt %d): %v\n", e.Attempt, e.Error)
}
