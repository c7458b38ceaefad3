package httpctl

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/gomidi/arpeggiator"
)

type fakeStore struct {
	mu  sync.Mutex
	ctl arpeggiator.Controls
	set int
}

func (f *fakeStore) Controls() arpeggiator.Controls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ctl
}

func (f *fakeStore) SetControls(c arpeggiator.Controls) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctl = c
	f.set++
}

func (f *fakeStore) Status() arpeggiator.Status {
	return arpeggiator.Status{ID: "test", NotesPressed: 2, HeldNotes: []int{60, 64}, LastNote: 64}
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetControls(t *testing.T) {
	store := &fakeStore{ctl: arpeggiator.DefaultControls()}
	rec := do(NewHandler(store), "GET", "/controls", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var got arpeggiator.Controls
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, arpeggiator.DefaultControls(), got)
}

func TestPutControlsMerges(t *testing.T) {
	store := &fakeStore{ctl: arpeggiator.DefaultControls()}
	rec := do(NewHandler(store), "PUT", "/controls", `{"bpm": 96, "latch": 1}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	expected := arpeggiator.DefaultControls()
	expected.BPM = 96
	expected.Latch = 1
	assert.Equal(t, expected, store.Controls())
}

func TestPutControlsRejects(t *testing.T) {
	store := &fakeStore{ctl: arpeggiator.DefaultControls()}
	h := NewHandler(store)

	for _, body := range []string{`{"bpm": "fast"}`, `{"tempo": 100}`, `{`} {
		rec := do(h, "PUT", "/controls", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)

		var e ErrorResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
		assert.NotEmpty(t, e.Error)
	}
	assert.Equal(t, 0, store.set)
}

func TestPutNames(t *testing.T) {
	store := &fakeStore{ctl: arpeggiator.DefaultControls()}
	h := NewHandler(store)

	assert.Equal(t, http.StatusOK, do(h, "PUT", "/pattern/updown-alt", "").Code)
	assert.Equal(t, http.StatusOK, do(h, "PUT", "/octave-mode/downup", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, "PUT", "/pattern/sideways", "").Code)

	c := store.Controls()
	assert.Equal(t, float32(arpeggiator.PatternUpDownAlt), c.Pattern)
	assert.Equal(t, float32(arpeggiator.OctaveDownUp), c.OctaveMode)
}

func TestStatus(t *testing.T) {
	rec := do(NewHandler(&fakeStore{}), "GET", "/status", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"test","running":false,"notes_pressed":2,"active_notes":0,
		"held_notes":[60,64],"last_note":64,"latched":false,"bypassed_notes":0}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	rec := do(NewHandler(&fakeStore{}), "POST", "/controls", "{}")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewHandler(&fakeStore{}, "http://localhost:3000")

	req := httptest.NewRequest("GET", "/status", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
