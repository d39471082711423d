package block

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time summary of a Storage.
type Stats struct {
	BlockSize   int
	Blocks      uint64 // physical blocks
	Live        uint64 // blocks not waiting in the free registry
	Free        uint64
	RegionBytes int
}

// Stats reads the current counts. Callers that need a consistent view while
// other goroutines allocate should hold Lock.
func (s *Storage) Stats() Stats {
	return Stats{
		BlockSize:   s.blockSize,
		Blocks:      s.BlockCount(),
		Live:        s.LiveBlockCount(),
		Free:        s.FreeBlockCount(),
		RegionBytes: s.r.Size(),
	}
}

func (st Stats) String() string {
	return fmt.Sprintf("%s blocks of %s (%s live, %s free), region %s",
		humanize.Comma(int64(st.Blocks)),
		humanize.IBytes(uint64(st.BlockSize)),
		humanize.Comma(int64(st.Live)),
		humanize.Comma(int64(st.Free)),
		humanize.IBytes(uint64(st.RegionBytes)))
}
