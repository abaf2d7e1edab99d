// Command indexbench drives a synthetic insert/lookup workload against a
// Tree and reports per-phase throughput as CSV on stdout and Go heap usage
// on stderr, in the spirit of the retrieved benchmark harness's
// csv+memstats reporting (not a general-purpose CLI for operating an
// index — index.bptree's CLI surface is explicitly out of scope).
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"

	"bptreeidx/bptree"
	"bptreeidx/internal/diskmgr"
	"bptreeidx/internal/page"
)

func main() {
	const n = 50000
	disk := diskmgr.NewMemory()
	tree, err := bptree.Open(disk, bptree.Options{
		IndexName:       "bench",
		KeySize:         8,
		LeafMaxSize:     128,
		InternalMaxSize: 128,
		PoolSize:        512,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	keys := make([][]byte, n)
	for i := 0; i < n; i++ {
		// xxhash.Sum64 over a counter gives a reproducible pseudo-random
		// key distribution without math/rand's seeding ceremony.
		h := xxhash.Sum64(counterBytes(i))
		keys[i] = counterBytes(int(h % 1_000_000_000))
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	w.Write([]string{"phase", "ops", "elapsed_ms", "ops_per_sec"})

	report := func(phase string, ops int, elapsed time.Duration) {
		w.Write([]string{
			phase,
			fmt.Sprintf("%d", ops),
			fmt.Sprintf("%.2f", float64(elapsed.Microseconds())/1000),
			fmt.Sprintf("%.0f", float64(ops)/elapsed.Seconds()),
		})
	}

	start := time.Now()
	for i, k := range keys {
		if err := tree.Insert(k, page.RID{PageID: uint32(i)}); err != nil && err != bptree.ErrDuplicateKey {
			fmt.Fprintln(os.Stderr, "insert:", err)
			os.Exit(1)
		}
	}
	report("insert", n, time.Since(start))

	start = time.Now()
	for _, k := range keys {
		if _, err := tree.Get(k); err != nil && err != bptree.ErrKeyNotFound {
			fmt.Fprintln(os.Stderr, "get:", err)
			os.Exit(1)
		}
	}
	report("get", n, time.Since(start))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fmt.Fprintf(os.Stderr, "heap in use: %s\n", humanize.Bytes(mem.HeapInuse))
}

func counterBytes(n int) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[7-i] = byte(n >> (8 * i))
	}
	return b
}
