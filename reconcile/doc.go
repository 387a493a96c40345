// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package reconcile applies on-chain VoteCast events to the relational store.

Each tracked election carries a last_block_processed cursor. A pass fetches
events in (cursor, latest], maps them to local candidates, deduplicates by
vote hash, inserts vote rows, and only then advances the cursor. Ordering
matters: advancing last is what makes a crash mid-batch recoverable, since
the next pass re-scans the same range and the vote-hash uniqueness constraint
absorbs the overlap.

The engine is triggered externally (the sync endpoint, or cron hitting it)
and is safe to run concurrently: correctness under parallel passes comes
from the storage layer's constraints, not from locks in this package.
*/
package reconcile
