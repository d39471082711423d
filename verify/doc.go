// Package verify checks the on-region invariants of a block store and,
// when block 0 carries a record header, of the record layer on top of it.
//
// Every function takes the raw region bytes, so it can run on a copy of a
// file as well as on a live region:
//
//	r.Lock()
//	err := verify.AllInvariants(r.Bytes())
//	r.Unlock()
//
// Checks:
//   - StoreHeader: magic, block size, free count and region length
//   - BlockHeaders: every block header names its own id and the store's block size
//   - FreeRegistry: the allocator's registry chain links back correctly and holds
//     exactly FreeCount in-range ids, none of them its own blocks
//   - Records: the record registry and every record chain are well formed,
//     the live chain heads match the record count, and no block is claimed
//     twice or left unreachable
//
// Records assumes the record layer owns every block of the store. Blocks a
// caller took straight from the allocator are reported as unreachable.
//
// Failures are returned as *ValidationError carrying the check name and, when
// known, the region offset of the offending field.
package verify
