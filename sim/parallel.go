package sim

import (
	"runtime"
	"sync"

	"github.com/pthm-cable/grains/systems"
)

// workerScratch holds per-worker reusable buffers.
type workerScratch struct {
	Neighbors []systems.Neighbor
}

// workChunk is a contiguous run of per-grain tasks.
type workChunk struct {
	start, end int
}

// scheduler is a fixed-size worker pool that runs one task per grain and
// joins before returning. Workers are started lazily and live until stop.
type scheduler struct {
	scratches  []workerScratch
	numWorkers int
	task       func(i int, scratch *workerScratch)

	// Worker pool channels
	workChan chan workChunk // sends work to workers
	doneChan chan struct{}  // workers signal completion
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool           // true if workers are running
}

func newScheduler(numWorkers int) *scheduler {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	scratches := make([]workerScratch, numWorkers)
	for i := range scratches {
		scratches[i].Neighbors = make([]systems.Neighbor, 0, 64)
	}
	return &scheduler{
		numWorkers: numWorkers,
		scratches:  scratches,
	}
}

// start launches persistent worker goroutines.
func (p *scheduler) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workChunk, p.numWorkers)
	p.doneChan = make(chan struct{}, p.numWorkers)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// stop signals all workers to exit and waits for them.
func (p *scheduler) stop() {
	if !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	close(p.workChan)
	close(p.doneChan)
	p.running = false
}

// worker runs in a goroutine, processing chunks until stopped.
func (p *scheduler) worker(workerID int) {
	defer p.wg.Done()
	scratch := &p.scratches[workerID]

	for {
		select {
		case <-p.stopChan:
			return
		case chunk, ok := <-p.workChan:
			if !ok {
				return
			}
			for i := chunk.start; i < chunk.end; i++ {
				p.task(i, scratch)
			}
			p.doneChan <- struct{}{}
		}
	}
}

// runInline executes every task on the calling goroutine.
func (p *scheduler) runInline(n int, task func(i int, scratch *workerScratch)) {
	scratch := &p.scratches[0]
	for i := 0; i < n; i++ {
		task(i, scratch)
	}
}

// run executes task(i) exactly once for every i in [0, n) across the pool
// and blocks until all of them have finished.
func (p *scheduler) run(n int, task func(i int, scratch *workerScratch)) {
	if n == 0 {
		return
	}
	if !p.running {
		p.start()
	}

	// Published to workers by the channel sends below.
	p.task = task

	numWorkers := p.numWorkers
	chunkSize := (n + numWorkers - 1) / numWorkers

	// At most numWorkers chunks, so doneChan never fills while we dispatch.
	chunksDispatched := 0
	for w := 0; w < numWorkers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		p.workChan <- workChunk{start: start, end: end}
		chunksDispatched++
	}

	// Join
	for i := 0; i < chunksDispatched; i++ {
		<-p.doneChan
	}
	p.task = nil
}
