package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/ai"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/session"
	"github.com/ahmetcoskunkizilkaya/edushare-backend/internal/store"
)

type fakeUploader struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	deleted   []string
	fail      error
	deleteErr error
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{blobs: make(map[string][]byte)}
}

func (u *fakeUploader) Upload(_ context.Context, r io.Reader, path string) (string, error) {
	if u.fail != nil {
		return "", u.fail
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	url := "https://blobs.test/" + path
	u.blobs[url] = buf.Bytes()
	return url, nil
}

func (u *fakeUploader) Delete(_ context.Context, url string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deleted = append(u.deleted, url)
	if u.deleteErr != nil {
		return u.deleteErr
	}
	delete(u.blobs, url)
	return nil
}

func (u *fakeUploader) has(url string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.blobs[url]
	return ok
}

// failingStore is a memory store whose Create always fails.
type failingStore struct {
	*store.MemoryStore
	createErr error
}

func (s *failingStore) Create(context.Context, *models.ContentRecord) error {
	return s.createErr
}

type fakeAI struct {
	verdict     ai.Verdict
	classifyErr error
	tags        []string
	tagErr      error
	gate        chan struct{}
	onClassify  func()

	classifyCalls atomic.Int32
	tagCalls      atomic.Int32
}

func (f *fakeAI) Classify(ctx context.Context, _ ai.ClassifyRequest) (ai.Verdict, error) {
	f.classifyCalls.Add(1)
	if f.onClassify != nil {
		f.onClassify()
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ai.Verdict{}, ctx.Err()
		}
	}
	return f.verdict, f.classifyErr
}

func (f *fakeAI) GenerateTags(context.Context, ai.TagRequest) (ai.TagResult, error) {
	f.tagCalls.Add(1)
	return ai.TagResult{Tags: f.tags}, f.tagErr
}

type recordingNotifier struct {
	mu     sync.Mutex
	failed map[string]error
}

func (n *recordingNotifier) PipelineFailed(_ context.Context, contentID string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failed == nil {
		n.failed = make(map[string]error)
	}
	n.failed[contentID] = err
}

func (n *recordingNotifier) get(id string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.failed[id]
}

var errBoom = errors.New("boom")

var alice = session.Session{UserID: "alice", Email: "alice@example.com"}

// jpeg is enough of a JPEG header for content sniffing.
func jpeg(size int) []byte {
	data := make([]byte, size)
	copy(data, []byte{0xFF, 0xD8, 0xFF, 0xE0})
	return data
}

func validInput() SubmissionInput {
	return SubmissionInput{
		Title:       "Intro to Quantum Physics",
		Description: "A short lecture on qubits",
		Tags:        []string{"Quantum"},
		File: FileInput{
			Name:        "slides.jpg",
			ContentType: "image/jpeg",
			Data:        jpeg(2 << 20),
		},
	}
}
