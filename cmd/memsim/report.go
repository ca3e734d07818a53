package main

import (
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/QuangTung97/memsim"
	"github.com/QuangTung97/memsim/blocklist"
	"github.com/QuangTung97/memsim/frame"
)

const timeFormat = "15:04:05.000"

func ownerName(owner int) string {
	if owner == blocklist.NoOwner {
		return "free"
	}
	return "P" + strconv.Itoa(owner)
}

// printReport prints a snapshot taken from a single engine state
func printReport(w io.Writer, title string, snap memsim.Snapshot) {
	p := message.NewPrinter(language.English)

	stats := snap.Stats
	p.Fprintf(w, "== %s ==\n", title)
	p.Fprintf(w, "memory: %d used / %d free / %d total (%.1f%%)\n",
		stats.Used, stats.Free, stats.Total, stats.UsedPercentage)
	p.Fprintf(w, "processes: %d  page faults: %d\n", stats.LiveProcesses, stats.PageFaults)
	p.Fprintf(w, "fragmentation: external %.3f  internal %d (live %d)\n",
		stats.ExternalFragmentation, stats.InternalFragmentationTotal, stats.InternalFragmentationLive)

	p.Fprintf(w, "ranges:\n")
	for _, r := range snap.Ranges {
		p.Fprintf(w, "  [%6d, %6d] %6d %s\n", r.Start, r.End(), r.Length, ownerName(r.Owner))
	}

	p.Fprintf(w, "frames:")
	for _, entry := range snap.Frames {
		p.Fprintf(w, " %s", frameCell(entry))
	}
	p.Fprintf(w, "\n")

	if len(snap.Events) > 0 {
		p.Fprintf(w, "events:\n")
	}
	for _, ev := range snap.Events {
		p.Fprintf(w, "  %s %-12s %s\n", ev.Timestamp.Format(timeFormat), ev.Kind, ev.Detail)
	}
}

func frameCell(entry frame.Entry) string {
	switch {
	case entry.Owner != frame.NoOwner:
		return ownerName(entry.Owner)
	case entry.Held > 0:
		return "seg"
	default:
		return "."
	}
}
