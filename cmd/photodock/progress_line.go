package main

import (
	"fmt"
	"io"
	"strings"

	"photodock/internal/progress"
)

// progressLine redraws a single status line on a terminal as snapshots arrive.
type progressLine struct {
	out  io.Writer
	obs  *progress.ChannelObserver
	done chan struct{}
	last int
}

func startProgressLine(out io.Writer) *progressLine {
	p := &progressLine{
		out:  out,
		obs:  progress.NewChannelObserver(16),
		done: make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *progressLine) Observer() progress.Observer { return p.obs }

// Stop drains queued snapshots, redraws the last one if it was dropped, and
// terminates the line.
func (p *progressLine) Stop() {
	p.obs.Close()
	<-p.done
	if snap, ok := p.obs.Pending(); ok {
		p.render(snap)
	}
	if p.last > 0 {
		fmt.Fprintln(p.out)
	}
}

func (p *progressLine) loop() {
	defer close(p.done)
	for snap := range p.obs.C() {
		p.render(snap)
	}
}

func (p *progressLine) render(snap progress.Snapshot) {
	line := formatProgress(snap)
	pad := ""
	if n := p.last - len(line); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(p.out, "\r%s%s", line, pad)
	p.last = len(line)
}

func formatProgress(s progress.Snapshot) string {
	switch s.Phase {
	case progress.PhaseUpload, progress.PhaseDone:
		return fmt.Sprintf("[%s] %5.1f%% %d/%d uploaded=%d failed=%d linked=%d",
			s.Phase, s.UploadPercent, s.Uploaded+s.Failed, s.UploadTotal, s.Uploaded, s.Failed, s.Linked)
	default:
		return fmt.Sprintf("[%s] %5.1f%% %d/%d matched=%d unmatched=%d",
			s.Phase, s.Percent, s.Processed, s.Total, s.Matched, s.Unmatched)
	}
}
