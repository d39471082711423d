// Package store opens a region from configuration and stacks the block
// allocator and the record layer on it.
//
//	cfg, err := store.LoadConfig("blockstore.yaml")
//	if err != nil {
//	    return err
//	}
//	st, err := store.Open(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	err = st.Update(ctx, func(r *record.Storage) error {
//	    _, err := r.Add([]byte("hello"))
//	    return err
//	})
//
// An empty Path keeps the region in process memory. Otherwise the file is
// mapped shared, so several processes opening the same path see one store;
// Update serializes them through the region lock and flushes the ranges it
// dirtied before releasing it.
package store
