package vm

import "fmt"

// Revision identifies an EVM hard fork. Revisions are totally ordered;
// fork-conditional behavior is expressed as ordinary comparisons
// against these constants. The numeric values match evmc_revision so
// the type can cross an EVMC boundary unmodified.
type Revision int32

const (
	Frontier Revision = iota
	Homestead
	TangerineWhistle
	SpuriousDragon
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	Berlin
	London
	Paris
	Shanghai
	Cancun
	Prague
	Osaka

	// LatestRevision is the newest fork this interpreter implements.
	LatestRevision = Osaka
)

var revisionNames = [...]string{
	Frontier:         "Frontier",
	Homestead:        "Homestead",
	TangerineWhistle: "Tangerine Whistle",
	SpuriousDragon:   "Spurious Dragon",
	Byzantium:        "Byzantium",
	Constantinople:   "Constantinople",
	Petersburg:       "Petersburg",
	Istanbul:         "Istanbul",
	Berlin:           "Berlin",
	London:           "London",
	Paris:            "Paris",
	Shanghai:         "Shanghai",
	Cancun:           "Cancun",
	Prague:           "Prague",
	Osaka:            "Osaka",
}

// String returns the fork name.
func (r Revision) String() string {
	if r >= 0 && int(r) < len(revisionNames) {
		return revisionNames[r]
	}
	return fmt.Sprintf("revision %d", int32(r))
}

// Supported reports whether the revision is one this interpreter
// implements.
func (r Revision) Supported() bool {
	return r >= Frontier && r <= LatestRevision
}
