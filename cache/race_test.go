package cache

import (
	"math/rand"
	"runtime"
	"strconv"
	"sync"
	"testing"
	"time"
)

// A mixed workload of concurrent Add/Get/Clear on random keys, against a
// shared backend. Should pass under `-race` without detector reports.
func TestRace_Basic(t *testing.T) {
	c := New[string](stringConfig("race", 256))

	workers := 4 * runtime.GOMAXPROCS(0)
	keyspace := 2_000
	deadline := time.Now().Add(2 * time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(keyspace))
				switch r.Intn(100) {
				case 0: // ~1% — Clear
					c.Clear()
				case 1, 2, 3, 4, 5, 6, 7, 8, 9, 10: // ~10% — Add
					c.Add(k, "x")
				default: // ~89% — Get
					c.Get(k)
				}
			}
		}(w)
	}
	wg.Wait()
}

// Two Cache instances sharing one backend under concurrent load. Should
// pass under `-race` without detector reports.
func TestRace_SharedBackend(t *testing.T) {
	cfg1 := stringConfig("race-a", 256)
	backend := cfg1.Backend
	cfg2 := stringConfig("race-b", 256)
	cfg2.Backend = backend

	a := New[string](cfg1)
	b := New[string](cfg2)

	workers := 2 * runtime.GOMAXPROCS(0)
	deadline := time.Now().Add(time.Second)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*7919))
			for time.Now().Before(deadline) {
				k := "k:" + strconv.Itoa(r.Intn(200))
				if r.Intn(2) == 0 {
					a.Add(k, "x")
					a.Get(k)
				} else {
					b.Add(k, "y")
					b.Get(k)
				}
			}
		}(w)
	}
	wg.Wait()
}
