package stores

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// FileReplayLog is an append-only newline-delimited log of redeemed
// identities mirrored by an in-memory set.
//
// Every Add is written and fsynced before it becomes visible to Contains, so
// a crash can lose at most a write that was never acknowledged. A failed
// append is truncated away; if that rollback fails too, the log refuses
// further writes until it is cleared or reopened.
type FileReplayLog struct {
	mu     sync.RWMutex
	path   string
	file   logFile
	size   int64
	set    map[string]struct{}
	broken error
	closed bool
}

// logFile is the subset of *os.File the log writes through.
type logFile interface {
	io.Writer
	io.Seeker
	io.Closer
	Truncate(size int64) error
	Sync() error
}

// OpenFileReplayLog opens or creates the log at path and replays it.
//
// A trailing line without a newline is the remnant of an interrupted append;
// it is dropped and truncated away so the next append starts on a line
// boundary.
func OpenFileReplayLog(path string) (*FileReplayLog, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}

	set, complete, err := replayLines(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}

	if err := f.Truncate(complete); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	if _, err := f.Seek(complete, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}

	return &FileReplayLog{
		path: path,
		file: f,
		size: complete,
		set:  set,
	}, nil
}

// replayLines reads every complete line and returns the set together with
// the byte offset just past the last newline.
func replayLines(r io.Reader) (map[string]struct{}, int64, error) {
	set := make(map[string]struct{})
	reader := bufio.NewReader(r)

	var complete int64
	for {
		line, err := reader.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// partial tail (if any) is discarded
			return set, complete, nil
		}
		if err != nil {
			return nil, 0, err
		}

		complete += int64(len(line))
		identity := normalizeIdentity(string(bytes.TrimRight(line, "\r\n")))
		if identity == "" {
			continue
		}
		set[identity] = struct{}{}
	}
}

func (l *FileReplayLog) Contains(_ context.Context, identity string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return false, ErrReplayClosed
	}

	_, ok := l.set[normalizeIdentity(identity)]
	return ok, nil
}

// Add appends identity when absent. It reports false without writing when the
// identity is already present. The write is not interrupted by ctx.
func (l *FileReplayLog) Add(_ context.Context, identity string) (bool, error) {
	normalized := normalizeIdentity(identity)
	if normalized == "" {
		return false, fmt.Errorf("%w: empty identity", ErrReplayUnavailable)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, ErrReplayClosed
	}
	if _, ok := l.set[normalized]; ok {
		return false, nil
	}
	if l.broken != nil {
		return false, fmt.Errorf("%w: %v", ErrReplayUnavailable, l.broken)
	}

	line := normalized + "\n"
	_, err := l.file.Write([]byte(line))
	if err == nil {
		err = l.file.Sync()
	}
	if err != nil {
		if rerr := l.rollback(); rerr != nil {
			l.broken = fmt.Errorf("rollback after failed append: %v", rerr)
			return false, fmt.Errorf("%w: %v; %v", ErrReplayUnavailable, err, l.broken)
		}
		return false, fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}

	l.size += int64(len(line))
	l.set[normalized] = struct{}{}
	return true, nil
}

// rollback discards anything past the last acknowledged line.
func (l *FileReplayLog) rollback() error {
	if err := l.file.Truncate(l.size); err != nil {
		return err
	}
	if _, err := l.file.Seek(l.size, io.SeekStart); err != nil {
		return err
	}
	return l.file.Sync()
}

// Clear empties the log on disk and in memory.
func (l *FileReplayLog) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrReplayClosed
	}

	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	l.size = 0
	l.set = make(map[string]struct{})

	// The file is already empty; memory follows it even if the rest fails.
	if _, err := l.file.Seek(0, io.SeekStart); err != nil {
		l.broken = fmt.Errorf("seek after clear: %v", err)
		return fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}
	if err := l.file.Sync(); err != nil {
		l.broken = fmt.Errorf("sync after clear: %v", err)
		return fmt.Errorf("%w: %v", ErrReplayUnavailable, err)
	}

	l.broken = nil
	return nil
}

func (l *FileReplayLog) Len(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, ErrReplayClosed
	}
	return len(l.set), nil
}

// Path returns the log location.
func (l *FileReplayLog) Path() string {
	return l.path
}

func (l *FileReplayLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}
