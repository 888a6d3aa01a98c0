package logging

import (
	"io"
	"os"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// AsyncFile appends to a file from a background goroutine so that event
// handlers never block on disk. The first failed write is kept and returned
// by Err and Close; later writes are dropped. Write holds mu while queueing,
// so the writer goroutine only takes errMu.
type AsyncFile struct {
	name  string
	w     io.WriteCloser
	queue chan []byte
	wg    sync.WaitGroup

	mu      sync.Mutex
	stopped bool

	errMu    sync.Mutex
	writeErr error
}

// NewAsyncFile creates path and starts its writer.
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create file %s", path)
	}
	return newAsyncWriter(path, file), nil
}

func newAsyncWriter(name string, w io.WriteCloser) *AsyncFile {
	af := &AsyncFile{
		name:  name,
		w:     w,
		queue: make(chan []byte, 100),
	}
	af.wg.Add(1)
	go af.processQueue()
	return af
}

// Write queues a copy of data.
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()
	if af.stopped {
		return errors.New("async file is closed")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	af.queue <- buf
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()
	for data := range af.queue {
		if af.Err() != nil {
			continue
		}
		if _, err := af.w.Write(data); err != nil {
			af.errMu.Lock()
			af.writeErr = errors.Wrapf(err, "failed to write %s", af.name)
			af.errMu.Unlock()
		}
	}
}

// Err returns the first write failure seen by the background writer.
func (af *AsyncFile) Err() error {
	af.errMu.Lock()
	defer af.errMu.Unlock()
	return af.writeErr
}

// Close flushes pending writes and closes the file. It returns the write
// failure, if any, along with the close error. A second call returns nil.
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if af.stopped {
		af.mu.Unlock()
		return nil
	}
	af.stopped = true
	close(af.queue)
	af.mu.Unlock()

	af.wg.Wait()
	var result *multierror.Error
	if err := af.Err(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := af.w.Close(); err != nil {
		result = multierror.Append(result, errors.Wrapf(err, "failed to close %s", af.name))
	}
	return result.ErrorOrNil()
}
