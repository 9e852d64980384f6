package capture

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/peltran/giftwise/internal/config"
	"github.com/peltran/giftwise/internal/engine"
	"github.com/peltran/giftwise/internal/genai"
)

// State is the capture workflow step.
type State string

const (
	StateCamera    State = "camera"
	StateParsing   State = "parsing"
	StateForm      State = "form"
	StateError     State = "error"
	StateCommitted State = "committed"
	StateClosed    State = "closed"
)

// Workflow errors.
var (
	ErrBadState        = errors.New(config.ErrWorkflowState)
	ErrClosed          = errors.New(config.ErrWorkflowClosed)
	ErrDraftIncomplete = engine.ErrContactInvalid
)

// Extractor converts a card still into partial contact fields.
type Extractor interface {
	ExtractCard(ctx context.Context, image []byte) (genai.CardFields, error)
}

// Draft is the partial contact accumulated during capture. It is distinct
// from the committed Contact type: fields may be empty until promotion, and
// promotion is the only way to turn a draft into a Contact.
type Draft struct {
	Name           string                `json:"name"`
	Affiliation    string                `json:"affiliation"`
	Relationship   engine.Relationship   `json:"relationship"`
	Interests      []string              `json:"interests"`
	Allergies      []string              `json:"allergies,omitempty"`
	ImportantDates engine.ImportantDates `json:"importantDates"`
}

// newDraft returns the starting draft: Business relationship, empty
// interests, empty dates.
func newDraft() Draft {
	return Draft{
		Relationship: engine.RelationshipBusiness,
		Interests:    []string{},
	}
}

// Promote validates the required fields and converts the draft into a
// contact profile ready for the store (which assigns id, history and
// lastContactDate).
func (d Draft) Promote() (engine.Contact, error) {
	c := engine.Contact{
		Name:           strings.TrimSpace(d.Name),
		Affiliation:    strings.TrimSpace(d.Affiliation),
		Relationship:   d.Relationship,
		Interests:      d.Interests,
		Allergies:      d.Allergies,
		ImportantDates: d.ImportantDates,
	}
	if err := c.Validate(); err != nil {
		return engine.Contact{}, err
	}
	return c, nil
}

// merge lays extraction results over the draft: extracted fields overwrite,
// missing fields keep their prior values. The relationship is force-set to
// Business after extraction regardless of prior edits.
func (d *Draft) merge(fields genai.CardFields) {
	if fields.Name != "" {
		d.Name = fields.Name
	}
	if fields.Affiliation != "" {
		d.Affiliation = fields.Affiliation
	}
	if len(fields.Interests) > 0 {
		d.Interests = fields.Interests
	}
	d.Relationship = engine.RelationshipBusiness
}

// Workflow drives a single capture session:
//
//	camera -> parsing -> form | error
//	error/form -> camera (retake, full reset)
//	form -> committed (terminal)
//
// The camera stream is released on every exit from camera/parsing and on
// Close, whichever transition fires.
type Workflow struct {
	mu sync.Mutex

	camera    Camera
	extractor Extractor
	store     *engine.Store
	translate func(string) string

	state   State
	stream  Stream
	image   []byte
	draft   Draft
	message string
}

// NewWorkflow wires a capture session. translate resolves user-facing message
// keys; pass i18n.Translator.Msg.
func NewWorkflow(camera Camera, extractor Extractor, store *engine.Store, translate func(string) string) *Workflow {
	return &Workflow{
		camera:    camera,
		extractor: extractor,
		store:     store,
		translate: translate,
		state:     StateCamera,
		draft:     newDraft(),
	}
}

// Start acquires the camera stream. Device-access failure moves the workflow
// to the error state with a user-facing message; the user may retake.
func (w *Workflow) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateClosed {
		return ErrClosed
	}
	if w.state != StateCamera {
		return ErrBadState
	}
	return w.acquireLocked(ctx)
}

// acquireLocked swaps in a fresh stream, releasing any prior one first.
func (w *Workflow) acquireLocked(ctx context.Context) error {
	w.releaseLocked()

	stream, err := w.camera.Acquire(ctx)
	if err != nil {
		w.transitionLocked(StateError)
		w.message = w.translate(config.TKeyErrCamera)
		slog.Warn(config.ErrCameraAcquire,
			config.LogKeyComponent, config.CompCapture,
			config.LogKeyError, err,
		)
		return err
	}
	w.stream = stream
	return nil
}

// Capture freezes a single still, stops the live feed and runs extraction.
// On success the extracted fields are merged into the draft and the workflow
// reaches form; on any extraction failure it reaches error with a retryable
// message. Either way the stream is released.
func (w *Workflow) Capture(ctx context.Context) error {
	w.mu.Lock()
	if w.state == StateClosed {
		w.mu.Unlock()
		return ErrClosed
	}
	if w.state != StateCamera || w.stream == nil {
		w.mu.Unlock()
		return ErrBadState
	}

	image, err := w.stream.Capture()
	// The live feed stops as soon as the still is frozen, also on failure.
	w.releaseLocked()
	if err != nil {
		w.transitionLocked(StateError)
		w.message = w.translate(config.TKeyErrCamera)
		w.mu.Unlock()
		return err
	}
	w.image = image
	w.transitionLocked(StateParsing)
	w.mu.Unlock()

	slog.Debug(config.MsgExtractStart,
		config.LogKeyComponent, config.CompCapture,
		config.LogKeySizeBytes, len(image),
	)
	fields, err := w.extractor.ExtractCard(ctx, image)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateParsing {
		// Retaken or closed while the request was in flight; drop the result.
		return nil
	}
	if err != nil {
		w.transitionLocked(StateError)
		w.message = w.translate(config.TKeyErrExtraction)
		slog.Warn(config.ErrExtraction,
			config.LogKeyComponent, config.CompCapture,
			config.LogKeyError, err,
		)
		return err
	}

	w.draft.merge(fields)
	w.message = ""
	w.transitionLocked(StateForm)
	slog.Debug(config.MsgExtractDone,
		config.LogKeyComponent, config.CompCapture,
		config.LogKeyName, fields.Name,
	)
	return nil
}

// Retake discards the captured image, the error and every draft edit, then
// re-acquires the camera. Valid from form and error.
func (w *Workflow) Retake(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateClosed {
		return ErrClosed
	}
	if w.state != StateForm && w.state != StateError {
		return ErrBadState
	}

	w.image = nil
	w.message = ""
	w.draft = newDraft()
	w.transitionLocked(StateCamera)
	return w.acquireLocked(ctx)
}

// Edit applies a user edit to the draft while in form state.
func (w *Workflow) Edit(apply func(*Draft)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateClosed {
		return ErrClosed
	}
	if w.state != StateForm {
		return ErrBadState
	}
	apply(&w.draft)
	return nil
}

// Commit promotes the draft and appends it to the collection. When required
// fields are missing the workflow stays in form with a validation message
// and no collection mutation; the draft remains editable.
func (w *Workflow) Commit() (engine.Contact, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateClosed {
		return engine.Contact{}, ErrClosed
	}
	if w.state != StateForm {
		return engine.Contact{}, ErrBadState
	}

	profile, err := w.draft.Promote()
	if err != nil {
		w.message = w.translate(config.TKeyErrRequired)
		return engine.Contact{}, err
	}

	contact, err := w.store.Add(profile)
	if err != nil {
		w.message = w.translate(config.TKeyErrRequired)
		return engine.Contact{}, err
	}

	w.message = ""
	w.transitionLocked(StateCommitted)
	return contact, nil
}

// Close tears the workflow down, releasing the stream regardless of state.
// An extraction still in flight completes and is discarded.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateClosed {
		return
	}
	w.releaseLocked()
	w.image = nil
	w.transitionLocked(StateClosed)
}

// releaseLocked stops the stream if one is active. Callers hold w.mu.
func (w *Workflow) releaseLocked() {
	if w.stream != nil {
		w.stream.Release()
		w.stream = nil
	}
}

func (w *Workflow) transitionLocked(to State) {
	slog.Debug(config.MsgCaptureState,
		config.LogKeyComponent, config.CompCapture,
		config.LogKeyFrom, string(w.state),
		config.LogKeyTo, string(to),
	)
	w.state = to
}

// State returns the current workflow step.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Draft returns a copy of the current draft.
func (w *Workflow) Draft() Draft {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.draft
}

// Image returns the frozen still, nil outside parsing/form.
func (w *Workflow) Image() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.image
}

// Message returns the current user-facing message (error or validation hint).
func (w *Workflow) Message() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.message
}
