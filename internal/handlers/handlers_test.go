package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/codebuildervaibhav/audio-spectrogram/internal/queue"
	"github.com/codebuildervaibhav/audio-spectrogram/internal/types"
)

type fakeSubmitter struct {
	filename string
	body     []byte
	err      error
}

func (f *fakeSubmitter) Submit(_ context.Context, filename string, body io.Reader) (*types.Audio, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.filename = filename
	f.body, _ = io.ReadAll(body)
	return &types.Audio{ID: uuid.New(), Filename: filename, Status: types.StatusPending}, nil
}

type fakeRecords struct {
	mu      sync.Mutex
	records map[uuid.UUID]*types.Audio
	err     error
}

func (f *fakeRecords) GetByID(_ context.Context, id uuid.UUID) (*types.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRecords) List(_ context.Context, limit int) ([]types.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Audio
	for _, rec := range f.records {
		if len(out) == limit {
			break
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeRecords) setStatus(id uuid.UUID, status types.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[id].Status = status
}

type fakeBlobs map[string][]byte

func (f fakeBlobs) Put(_ context.Context, key string, data []byte, _ string) error {
	f[key] = data
	return nil
}

func (f fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f[key]
	if !ok {
		return nil, types.ErrNotFound
	}
	return data, nil
}

func (f fakeBlobs) Check(context.Context) error { return nil }

type fakeStats struct{ err error }

func (f fakeStats) Stats(context.Context) (map[queue.TaskStatus]int, error) {
	return map[queue.TaskStatus]int{queue.TaskQueued: 2}, f.err
}

type testServer struct {
	app     *fiber.App
	submit  *fakeSubmitter
	records *fakeRecords
	blobs   fakeBlobs
}

func newTestServer() *testServer {
	s := &testServer{
		app:     fiber.New(),
		submit:  &fakeSubmitter{},
		records: &fakeRecords{records: map[uuid.UUID]*types.Audio{}},
		blobs:   fakeBlobs{},
	}
	Register(s.app, Routes{
		Upload: NewUploadHandler(s.submit, nil),
		Audio:  NewAudioHandler(s.records, s.blobs, nil),
		Stream: NewStreamHandler(s.records, time.Millisecond, nil),
		Health: NewHealthHandler(fakeStats{}, nil),
	})
	return s
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestUploadAccepted(t *testing.T) {
	s := newTestServer()
	resp, err := s.app.Test(uploadRequest(t, "audio_file", "song.mp3", []byte("ID3 data")), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 202 {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	var body struct {
		AudioID uuid.UUID `json:"audio_id"`
		Status  string    `json:"status"`
	}
	decode(t, resp, &body)
	if body.AudioID == uuid.Nil || body.Status != "pending" {
		t.Fatalf("unexpected body %+v", body)
	}
	if s.submit.filename != "song.mp3" || string(s.submit.body) != "ID3 data" {
		t.Fatalf("submitter got %q / %q", s.submit.filename, s.submit.body)
	}
}

func TestUploadErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"unsupported", types.InvalidInput("unsupported audio file type", types.ErrUnsupportedFormat), 400, "ERR_INVALID_FORMAT"},
		{"invalid", types.InvalidInput("no filename provided", nil), 400, "ERR_INVALID_INPUT"},
		{"server", errors.New("disk full"), 500, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer()
			s.submit.err = tc.err
			resp, err := s.app.Test(uploadRequest(t, "audio_file", "x.mp3", []byte("whatever")), -1)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
			var body map[string]string
			decode(t, resp, &body)
			if body["code"] != tc.code {
				t.Fatalf("code = %q, want %q", body["code"], tc.code)
			}
		})
	}
}

func TestUploadMissingField(t *testing.T) {
	s := newTestServer()
	resp, err := s.app.Test(uploadRequest(t, "file", "song.mp3", []byte("ID3")), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAudioEndpoints(t *testing.T) {
	s := newTestServer()
	pending := &types.Audio{ID: uuid.New(), Filename: "a.mp3", Status: types.StatusPending}
	done := &types.Audio{ID: uuid.New(), Filename: "b.wav", Status: types.StatusDone}
	s.records.records[pending.ID] = pending
	s.records.records[done.ID] = done
	s.blobs[done.ID.String()] = []byte("\x89PNG image")

	cases := []struct {
		path string
		want int
	}{
		{"/audio", 200},
		{"/audio/" + pending.ID.String(), 200},
		{"/audio/" + uuid.NewString(), 404},
		{"/audio/not-a-uuid", 400},
		{"/audio/" + pending.ID.String() + "/spectrogram", 404},
		{"/audio/" + done.ID.String() + "/spectrogram", 200},
		{"/ws/audio/" + done.ID.String(), 426},
	}
	for _, tc := range cases {
		resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil), -1)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("GET %s = %d, want %d", tc.path, resp.StatusCode, tc.want)
		}
	}

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/audio/"+done.ID.String()+"/spectrogram", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	img, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q", ct)
	}
	if string(img) != "\x89PNG image" {
		t.Fatalf("unexpected image body %q", img)
	}

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/audio?limit=1", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	var list []types.Audio
	decode(t, resp, &list)
	if len(list) != 1 {
		t.Fatalf("expected 1 record with limit=1, got %d", len(list))
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Status string         `json:"status"`
		Tasks  map[string]int `json:"tasks"`
	}
	decode(t, resp, &body)
	if body.Status != "healthy" || body.Tasks["queued"] != 2 {
		t.Fatalf("unexpected health body %+v", body)
	}

	app := fiber.New()
	app.Get("/health", NewHealthHandler(fakeStats{err: errors.New("database is locked")}, nil).Handle)
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 503 {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestWatchEmitsChangesUntilDone(t *testing.T) {
	records := &fakeRecords{records: map[uuid.UUID]*types.Audio{}}
	id := uuid.New()
	records.records[id] = &types.Audio{ID: id, Status: types.StatusPending}
	h := NewStreamHandler(records, time.Millisecond, nil)

	var got []StatusMessage
	h.watch(context.Background(), id, func(msg StatusMessage) error {
		got = append(got, msg)
		if msg.Status == types.StatusPending {
			records.setStatus(id, types.StatusDone)
		}
		return nil
	})

	if len(got) != 2 || got[0].Status != types.StatusPending || got[1].Status != types.StatusDone {
		t.Fatalf("unexpected messages %+v", got)
	}
}

func TestWatchMissingRecord(t *testing.T) {
	h := NewStreamHandler(&fakeRecords{records: map[uuid.UUID]*types.Audio{}}, time.Millisecond, nil)

	var got []StatusMessage
	h.watch(context.Background(), uuid.New(), func(msg StatusMessage) error {
		got = append(got, msg)
		return nil
	})
	if len(got) != 1 || got[0].Error != "not found" {
		t.Fatalf("unexpected messages %+v", got)
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	records := &fakeRecords{records: map[uuid.UUID]*types.Audio{}}
	id := uuid.New()
	records.records[id] = &types.Audio{ID: id, Status: types.StatusPending}
	h := NewStreamHandler(records, time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		h.watch(ctx, id, func(StatusMessage) error { return nil })
	}()
	cancel()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
