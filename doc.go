// Package dilog detects divergence between a recorded execution trace
// and a later, possibly differently-ordered, replay of the same
// instrumented code. A channel is a named logical trace backed by one
// "<name>.dilog" file: the first run through a channel records every
// message and block enter/exit it sees; every subsequent run verifies
// its own calls against that recording, tolerating loop iterations
// that complete in a different order than they were originally
// recorded (see internal/engine for the reordering search engine that
// makes this tolerance possible).
//
// Typical use instruments a loop body:
//
//	for _, item := range items {
//		blk, err := dilog.Block("worker", "item")
//		if err != nil {
//			return err
//		}
//		if _, err := dilog.Messagef("worker", "processing %s", item.ID); err != nil {
//			blk.Close()
//			return err
//		}
//		blk.Close()
//	}
//
// The first time this code runs, it writes worker.dilog. On later
// runs, dilog verifies each message against that file; if item
// processing order differs between runs (goroutine scheduling, a
// worker pool, retried items), dilog searches the remaining unmatched
// iterations of the enclosing block before concluding the traces truly
// diverge.
package dilog
