package main

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mindful-auto/maa-core/pkg/assistant"
	"github.com/mindful-auto/maa-core/pkg/live"
)

// runVoice holds the prompt inside a live audio session until the operator
// presses Enter.
func (c *console) runVoice(ctx context.Context, scanner *bufio.Scanner) {
	if c.client == nil {
		fmt.Fprintln(c.errOut, "voice requires GEMINI_API_KEY")
		return
	}

	mic, speaker, cleanup, err := live.OpenDevices()
	if err != nil {
		fmt.Fprintf(c.errOut, "voice: %v\n", err)
		return
	}
	defer cleanup()

	session, err := live.NewSession(c.cfg.APIKey, c.cfg.VoiceModel, mic, speaker,
		live.WithVoice(c.cfg.VoiceName),
		live.WithSystemInstruction(assistant.SystemInstruction),
		live.WithConnectTimeout(c.cfg.ConnectTimeout),
		live.WithWriteTimeout(c.cfg.WriteTimeout),
		live.WithSessionLogger(c.logger))
	if err != nil {
		fmt.Fprintf(c.errOut, "voice: %v\n", err)
		return
	}

	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(c.errOut, "voice: %v\n", err)
		return
	}

	fmt.Fprintln(c.out, "Voice session connected. Speak freely; press Enter to hang up.")
	scanner.Scan()

	_ = session.Stop()
	if err := session.Err(); err != nil {
		fmt.Fprintf(c.errOut, "voice session ended with error: %v\n", err)
		return
	}
	fmt.Fprintln(c.out, "Voice session closed.")
}
