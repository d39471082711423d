// Package tx brackets multi-step work on a shared region.
//
// Block and record operations take no locks of their own. A caller that needs
// a sequence of them to be atomic with respect to other goroutines or
// processes sharing the region wraps the sequence in Run, or in a Manager
// when the region is file-backed and dirty ranges should reach disk before
// the lock is released.
//
// # Run
//
//	err := tx.Run(ctx, records, func() error {
//	    id, err := records.Add(payload)
//	    if err != nil {
//	        return err
//	    }
//	    return index.Put(key, id)
//	})
//
// The lock is released on every exit path, including a panic in fn.
//
// # Manager
//
// Manager adds an ordered flush to the commit:
//
//  1. Begin() - check the context, acquire the lock
//  2. [Apply modifications - tracked by the DirtyTracker]
//  3. Commit() - flush data ranges, then the header page (fdatasync per
//     FlushMode), release the lock
//
// Rollback releases the lock without flushing. Writes already made to the
// region are not undone: there is no undo log, so a rolled back sequence
// leaves whatever fn wrote in place.
//
// Managers are not safe for concurrent use; create one per goroutine over the
// same Locker.
package tx
