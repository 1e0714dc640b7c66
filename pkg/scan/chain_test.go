package scan

import (
	"strings"
	"testing"
)

// table builds a correctly-offset device table from IR lengths, flagging one
// index as the router TAP.
func table(irLens []int, routerIdx int) []*Device {
	total := 0
	for _, n := range irLens {
		total += n
	}
	devices := make([]*Device, len(irLens))
	pre := 0
	for i, n := range irLens {
		devices[i] = &Device{
			Name:       string(rune('a' + i)),
			Router:     i == routerIdx,
			IRLength:   n,
			IRPrescan:  pre,
			IRPostscan: total - pre - n,
			DRPrescan:  i,
			DRPostscan: len(irLens) - 1 - i,
			CurrentIR:  BypassIR,
		}
		pre += n
	}
	return devices
}

type nopSequencer struct{}

func (nopSequencer) Reset() error                       { return nil }
func (nopSequencer) EnterShiftIR() error                { return nil }
func (nopSequencer) ShiftIR(bool, []bool) error         { return nil }
func (nopSequencer) UpdateIR(int) error                 { return nil }
func (nopSequencer) ReadDR(_, _, _ int) ([]bool, error) { return nil, nil }

func TestNewValidatesTable(t *testing.T) {
	devices := table([]int{4, 6, 4}, 1)
	ch, err := New("am335x", nopSequencer{}, devices)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ch.Name() != "am335x" {
		t.Fatalf("Name = %q", ch.Name())
	}
	if ch.TotalIRBits() != 14 {
		t.Fatalf("TotalIRBits = %d, want 14", ch.TotalIRBits())
	}

	for _, d := range ch.Devices() {
		if d.IRPrescan+d.IRLength+d.IRPostscan != ch.TotalIRBits() {
			t.Fatalf("device %q offsets do not tile the chain", d.Name)
		}
		if !ch.Contains(d) {
			t.Fatalf("Contains(%q) = false", d.Name)
		}
	}

	router, ok := ch.Router()
	if !ok || router.Name != "b" || router.Index != 1 {
		t.Fatalf("Router = %+v, %v", router, ok)
	}
	if _, ok := ch.Device("c"); !ok {
		t.Fatalf("Device(c) not found")
	}
	if _, ok := ch.Device("nope"); ok {
		t.Fatalf("Device(nope) found")
	}
}

func TestNewRejectsBadTables(t *testing.T) {
	if _, err := New("x", nil, table([]int{4}, 0)); err == nil {
		t.Fatalf("nil sequencer accepted")
	}
	if _, err := New("x", nopSequencer{}, nil); err == nil {
		t.Fatalf("empty table accepted")
	}

	short := table([]int{4, 1}, 0)
	if _, err := New("x", nopSequencer{}, short); err == nil {
		t.Fatalf("IR length 1 accepted")
	}

	skewed := table([]int{4, 6}, 1)
	skewed[1].IRPrescan = 3
	_, err := New("x", nopSequencer{}, skewed)
	if err == nil || !strings.Contains(err.Error(), "tile") {
		t.Fatalf("skewed IR offsets accepted: %v", err)
	}

	misplaced := table([]int{4, 6}, 1)
	misplaced[0].DRPostscan = 5
	if _, err := New("x", nopSequencer{}, misplaced); err == nil {
		t.Fatalf("bad DR offsets accepted")
	}
}

func TestContainsIsIdentity(t *testing.T) {
	devices := table([]int{4, 6}, 1)
	ch, err := New("x", nopSequencer{}, devices)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	clone := *devices[0]
	if ch.Contains(&clone) {
		t.Fatalf("Contains matched a copy, not the table entry")
	}
}
