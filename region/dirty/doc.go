// Package dirty tracks which byte ranges of a file-backed region were written
// and flushes only those pages to disk.
//
// # Usage
//
//	r, _ := region.OpenFile(path, nil)
//	dt := dirty.NewTracker(r)
//	s, _ := block.New(r, dt, nil)
//
//	// block writes call dt.Add(off, len) ...
//
//	if err := dt.FlushDataOnly(ctx); err != nil {
//	    return err
//	}
//	if err := dt.FlushHeaderAndMeta(ctx, dirty.FlushAuto); err != nil {
//	    return err
//	}
//
// Ranges are recorded raw and only page-aligned, sorted and merged at flush
// time, so Add stays an append.
//
// # Thread Safety
//
// A Tracker is not safe for concurrent use. It is meant to be driven from
// inside the region lock, alongside the writes it records.
package dirty
