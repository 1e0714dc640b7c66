package chainfile

import (
	"testing"

	"github.com/OpenTraceLab/OpenTraceICEPick/pkg/scan"
)

func parseDecl(t *testing.T, input, name string) *ChainDecl {
	t.Helper()
	p, err := NewParser()
	if err != nil {
		t.Fatalf("NewParser failed: %v", err)
	}
	file, err := p.ParseString(input)
	if err != nil {
		t.Fatalf("ParseString failed: %v", err)
	}
	decl, ok := file.Chain(name)
	if !ok {
		t.Fatalf("chain %q not found", name)
	}
	return decl
}

func TestBuildDevicesComputesOffsets(t *testing.T) {
	decl := parseDecl(t, sampleChain, "am335x")
	devices, err := BuildDevices(decl)
	if err != nil {
		t.Fatalf("BuildDevices failed: %v", err)
	}

	wantPre := []int{0, 4, 10}
	wantPost := []int{10, 4, 0}
	for i, d := range devices {
		if d.IRPrescan != wantPre[i] || d.IRPostscan != wantPost[i] {
			t.Fatalf("device %q IR offsets = %d/%d, want %d/%d",
				d.Name, d.IRPrescan, d.IRPostscan, wantPre[i], wantPost[i])
		}
		if d.DRPrescan != i || d.DRPostscan != len(devices)-1-i {
			t.Fatalf("device %q DR offsets = %d/%d", d.Name, d.DRPrescan, d.DRPostscan)
		}
		if d.CurrentIR != scan.BypassIR {
			t.Fatalf("device %q does not start in bypass", d.Name)
		}
	}
}

func TestBuildChainRoundTrip(t *testing.T) {
	decl := parseDecl(t, sampleChain, "am335x")

	sim := &recordingSeq{}
	ch, err := BuildChain(decl, sim)
	if err != nil {
		t.Fatalf("BuildChain failed: %v", err)
	}
	if ch.Name() != "am335x" || ch.TotalIRBits() != 14 {
		t.Fatalf("chain = %q/%d bits", ch.Name(), ch.TotalIRBits())
	}
	router, ok := ch.Router()
	if !ok || router.Name != "icepick" {
		t.Fatalf("router = %+v, %v", router, ok)
	}
}

func TestBuildDevicesRejectsBadDecls(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{"empty", "chain x { }"},
		{"short IR", "chain x { device a ir 1; }"},
		{"duplicate", "chain x { device a ir 4; device a ir 6; }"},
	}
	for _, tc := range cases {
		decl := parseDecl(t, tc.input, "x")
		if _, err := BuildDevices(decl); err == nil {
			t.Fatalf("%s: BuildDevices accepted %q", tc.name, tc.input)
		}
	}
}

type recordingSeq struct{}

func (recordingSeq) Reset() error                       { return nil }
func (recordingSeq) EnterShiftIR() error                { return nil }
func (recordingSeq) ShiftIR(bool, []bool) error         { return nil }
func (recordingSeq) UpdateIR(int) error                 { return nil }
func (recordingSeq) ReadDR(_, _, _ int) ([]bool, error) { return nil, nil }
