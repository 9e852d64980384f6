package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peltran/giftwise/internal/config"
	"github.com/peltran/giftwise/internal/engine"
	"github.com/peltran/giftwise/internal/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// -----------------------------------------------------------------------------
// Mocks
// -----------------------------------------------------------------------------

// stubStream counts Release calls so tests can assert the scoped-resource
// guarantee on every exit path.
type stubStream struct {
	image    []byte
	err      error
	released atomic.Int32
}

func (s *stubStream) Capture() ([]byte, error) {
	return s.image, s.err
}

func (s *stubStream) Release() {
	s.released.Add(1)
}

type stubCamera struct {
	stream   *stubStream
	err      error
	acquired int
}

func (c *stubCamera) Acquire(ctx context.Context) (Stream, error) {
	c.acquired++
	if c.err != nil {
		return nil, c.err
	}
	return c.stream, nil
}

// MockExtractor simulates the AI extraction call using `testify/mock`.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) ExtractCard(ctx context.Context, image []byte) (genai.CardFields, error) {
	args := m.Called(ctx, image)
	return args.Get(0).(genai.CardFields), args.Error(1)
}

type stubClock struct{}

func (stubClock) Now() time.Time {
	return time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
}

func identity(key string) string { return key }

func newTestWorkflow(camera Camera, extractor Extractor) (*Workflow, *engine.Store) {
	store := engine.NewStore(stubClock{})
	return NewWorkflow(camera, extractor, store, identity), store
}

// -----------------------------------------------------------------------------
// Happy Path
// -----------------------------------------------------------------------------

func TestWorkflow_CaptureToForm(t *testing.T) {
	stream := &stubStream{image: []byte("jpeg-bytes")}
	camera := &stubCamera{stream: stream}

	extractor := new(MockExtractor)
	extractor.On("ExtractCard", mock.Anything, []byte("jpeg-bytes")).
		Return(genai.CardFields{
			Name:        "김민준",
			Affiliation: "한솔전자",
			Interests:   []string{"반도체"},
		}, nil)

	wf, _ := newTestWorkflow(camera, extractor)
	require.Equal(t, StateCamera, wf.State())

	require.NoError(t, wf.Start(context.Background()))
	require.NoError(t, wf.Capture(context.Background()))

	assert.Equal(t, StateForm, wf.State())
	assert.Equal(t, []byte("jpeg-bytes"), wf.Image())
	assert.Empty(t, wf.Message())

	draft := wf.Draft()
	assert.Equal(t, "김민준", draft.Name)
	assert.Equal(t, "한솔전자", draft.Affiliation)
	assert.Equal(t, engine.RelationshipBusiness, draft.Relationship,
		"Relationship is force-set to business after extraction")

	assert.EqualValues(t, 1, stream.released.Load(), "Stream must be released when the still freezes")
	extractor.AssertExpectations(t)
}

func TestWorkflow_CommitAddsContact(t *testing.T) {
	stream := &stubStream{image: []byte("img")}
	extractor := new(MockExtractor)
	extractor.On("ExtractCard", mock.Anything, mock.Anything).
		Return(genai.CardFields{Name: "김민준", Affiliation: "한솔전자"}, nil)

	wf, store := newTestWorkflow(&stubCamera{stream: stream}, extractor)
	require.NoError(t, wf.Start(context.Background()))
	require.NoError(t, wf.Capture(context.Background()))

	contact, err := wf.Commit()
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, wf.State())
	assert.NotEmpty(t, contact.ID)
	assert.Equal(t, "김민준", contact.Name)
	assert.Equal(t, 1, store.Len())

	// Committed is terminal.
	_, err = wf.Commit()
	assert.ErrorIs(t, err, ErrBadState)
}

// -----------------------------------------------------------------------------
// Validation
// -----------------------------------------------------------------------------

func TestWorkflow_CommitIncompleteDraftStaysInForm(t *testing.T) {
	stream := &stubStream{image: []byte("img")}
	extractor := new(MockExtractor)
	// The model could not read an affiliation off the card.
	extractor.On("ExtractCard", mock.Anything, mock.Anything).
		Return(genai.CardFields{Name: "김민준"}, nil)

	wf, store := newTestWorkflow(&stubCamera{stream: stream}, extractor)
	require.NoError(t, wf.Start(context.Background()))
	require.NoError(t, wf.Capture(context.Background()))

	_, err := wf.Commit()
	require.ErrorIs(t, err, ErrDraftIncomplete)

	assert.Equal(t, StateForm, wf.State(), "Failed validation keeps the form editable")
	assert.Equal(t, config.TKeyErrRequired, wf.Message())
	assert.Equal(t, 0, store.Len(), "Nothing may reach the collection")

	// Fixing the draft makes the same workflow committable.
	require.NoError(t, wf.Edit(func(d *Draft) { d.Affiliation = "한솔전자" }))
	_, err = wf.Commit()
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

// -----------------------------------------------------------------------------
// Failure Paths
// -----------------------------------------------------------------------------

func TestWorkflow_CameraDenied(t *testing.T) {
	camera := &stubCamera{err: ErrCameraAcquire}
	wf, _ := newTestWorkflow(camera, new(MockExtractor))

	err := wf.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, wf.State())
	assert.Equal(t, config.TKeyErrCamera, wf.Message())
}

func TestWorkflow_ExtractionFailure(t *testing.T) {
	stream := &stubStream{image: []byte("img")}
	extractor := new(MockExtractor)
	extractor.On("ExtractCard", mock.Anything, mock.Anything).
		Return(genai.CardFields{}, errors.New("model unavailable"))

	wf, _ := newTestWorkflow(&stubCamera{stream: stream}, extractor)
	require.NoError(t, wf.Start(context.Background()))

	err := wf.Capture(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, wf.State())
	assert.Equal(t, config.TKeyErrExtraction, wf.Message())
	assert.EqualValues(t, 1, stream.released.Load(), "Stream must be released even when extraction fails")
}

func TestWorkflow_CaptureFailureReleasesStream(t *testing.T) {
	stream := &stubStream{err: ErrCameraCapture}
	wf, _ := newTestWorkflow(&stubCamera{stream: stream}, new(MockExtractor))

	require.NoError(t, wf.Start(context.Background()))
	err := wf.Capture(context.Background())
	require.Error(t, err)

	assert.Equal(t, StateError, wf.State())
	assert.EqualValues(t, 1, stream.released.Load())
}

// -----------------------------------------------------------------------------
// Retake
// -----------------------------------------------------------------------------

func TestWorkflow_RetakeResetsEverything(t *testing.T) {
	stream := &stubStream{image: []byte("img")}
	camera := &stubCamera{stream: stream}
	extractor := new(MockExtractor)
	extractor.On("ExtractCard", mock.Anything, mock.Anything).
		Return(genai.CardFields{Name: "김민준", Affiliation: "한솔전자"}, nil)

	wf, _ := newTestWorkflow(camera, extractor)
	require.NoError(t, wf.Start(context.Background()))
	require.NoError(t, wf.Capture(context.Background()))

	// User edits, then decides to retake.
	require.NoError(t, wf.Edit(func(d *Draft) { d.Name = "Edited" }))
	require.NoError(t, wf.Retake(context.Background()))

	assert.Equal(t, StateCamera, wf.State())
	assert.Nil(t, wf.Image(), "Retake discards the frozen still")
	assert.Empty(t, wf.Message())

	draft := wf.Draft()
	assert.Empty(t, draft.Name, "Retake discards draft edits")
	assert.Equal(t, engine.RelationshipBusiness, draft.Relationship)
	assert.Equal(t, 2, camera.acquired, "Retake re-acquires the camera")
}

func TestWorkflow_RetakeFromError(t *testing.T) {
	extractor := new(MockExtractor)
	extractor.On("ExtractCard", mock.Anything, mock.Anything).
		Return(genai.CardFields{}, errors.New("boom")).Once()
	extractor.On("ExtractCard", mock.Anything, mock.Anything).
		Return(genai.CardFields{Name: "김민준", Affiliation: "한솔전자"}, nil).Once()

	camera := &stubCamera{stream: &stubStream{image: []byte("img")}}
	wf, _ := newTestWorkflow(camera, extractor)

	require.NoError(t, wf.Start(context.Background()))
	require.Error(t, wf.Capture(context.Background()))
	require.Equal(t, StateError, wf.State())

	require.NoError(t, wf.Retake(context.Background()))
	require.NoError(t, wf.Capture(context.Background()))
	assert.Equal(t, StateForm, wf.State())
}

func TestWorkflow_RetakeInvalidFromCamera(t *testing.T) {
	wf, _ := newTestWorkflow(&stubCamera{stream: &stubStream{}}, new(MockExtractor))

	assert.ErrorIs(t, wf.Retake(context.Background()), ErrBadState)
}

// -----------------------------------------------------------------------------
// Close
// -----------------------------------------------------------------------------

func TestWorkflow_CloseReleasesStream(t *testing.T) {
	stream := &stubStream{image: []byte("img")}
	wf, _ := newTestWorkflow(&stubCamera{stream: stream}, new(MockExtractor))

	require.NoError(t, wf.Start(context.Background()))
	wf.Close()

	assert.Equal(t, StateClosed, wf.State())
	assert.EqualValues(t, 1, stream.released.Load(), "Close must release an active stream")

	// Every operation is rejected after Close; a second Close is a no-op.
	assert.ErrorIs(t, wf.Start(context.Background()), ErrClosed)
	assert.ErrorIs(t, wf.Capture(context.Background()), ErrClosed)
	_, err := wf.Commit()
	assert.ErrorIs(t, err, ErrClosed)
	wf.Close()
	assert.EqualValues(t, 1, stream.released.Load())
}

func TestWorkflow_StaleExtractionDiscardedAfterClose(t *testing.T) {
	stream := &stubStream{image: []byte("img")}
	release := make(chan struct{})

	extractor := new(MockExtractor)
	extractor.On("ExtractCard", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { <-release }).
		Return(genai.CardFields{Name: "Late", Affiliation: "Result"}, nil)

	wf, store := newTestWorkflow(&stubCamera{stream: stream}, extractor)
	require.NoError(t, wf.Start(context.Background()))

	done := make(chan error, 1)
	go func() { done <- wf.Capture(context.Background()) }()

	// Close while the extraction request is still in flight.
	for wf.State() != StateParsing {
		time.Sleep(time.Millisecond)
	}
	wf.Close()
	close(release)

	require.NoError(t, <-done, "A discarded late result is not an error")
	assert.Equal(t, StateClosed, wf.State())
	assert.Equal(t, 0, store.Len())
	draft := wf.Draft()
	assert.Empty(t, draft.Name, "The stale result must not touch the draft")
}

// -----------------------------------------------------------------------------
// State Guards
// -----------------------------------------------------------------------------

func TestWorkflow_OperationsRequireCorrectState(t *testing.T) {
	wf, _ := newTestWorkflow(&stubCamera{stream: &stubStream{}}, new(MockExtractor))

	// Capture before Start: no stream yet.
	assert.ErrorIs(t, wf.Capture(context.Background()), ErrBadState)

	// Commit and Edit outside form.
	_, err := wf.Commit()
	assert.ErrorIs(t, err, ErrBadState)
	assert.ErrorIs(t, wf.Edit(func(*Draft) {}), ErrBadState)
}
