package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/course-intake-bot/internal/catalog"
	apperrors "github.com/Proton-105/course-intake-bot/internal/errors"
	"github.com/Proton-105/course-intake-bot/internal/i18n"
	"github.com/Proton-105/course-intake-bot/internal/lead"
	"github.com/Proton-105/course-intake-bot/internal/state"
)

const userID int64 = 7

var labels = catalog.Labels{Free: "free", Paid: "paid"}

type fakeRecorder struct {
	leads []lead.Lead
	err   error
}

func (r *fakeRecorder) Record(_ context.Context, l lead.Lead) error {
	r.leads = append(r.leads, l)
	return r.err
}

type fakeReporter struct {
	errs []error
}

func (r *fakeReporter) Handle(_ context.Context, err error) (string, bool) {
	r.errs = append(r.errs, err)
	return "", false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func translator(t *testing.T) i18n.Translator {
	t.Helper()
	manager, err := i18n.Load("ru")
	require.NoError(t, err)
	return manager.Translator("en")
}

type harness struct {
	flow     *Flow
	sessions *state.MemoryStorage
	leads    *fakeRecorder
	tr       i18n.Translator
}

func newHarness(t *testing.T, rows []catalog.Row) *harness {
	t.Helper()
	sessions := state.NewMemoryStorage()
	leads := &fakeRecorder{}
	tr := translator(t)
	cat := catalog.Build(rows, labels, testLogger())

	return &harness{
		flow:     New(cat, sessions, leads, tr, Options{Labels: labels}, testLogger()),
		sessions: sessions,
		leads:    leads,
		tr:       tr,
	}
}

func (h *harness) send(t *testing.T, text string) Reply {
	t.Helper()
	reply, err := h.flow.Handle(context.Background(), userID, text)
	require.NoError(t, err)
	return reply
}

func (h *harness) start(t *testing.T) Reply {
	t.Helper()
	reply, err := h.flow.Start(context.Background(), userID)
	require.NoError(t, err)
	return reply
}

func (h *harness) session(t *testing.T) (state.Session, bool) {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), userID)
	if errors.Is(err, state.ErrSessionNotFound) {
		return state.Session{}, false
	}
	require.NoError(t, err)
	return s, true
}

// advance drives a fresh session up to the requested state using valid input.
func (h *harness) advance(t *testing.T, target state.State) {
	t.Helper()
	h.start(t)
	inputs := []struct {
		from  state.State
		input string
	}{
		{state.StateAwaitingConsent, h.tr.T("form.consent_button")},
		{state.StateAwaitingFio, "Jane Doe"},
		{state.StateAwaitingPhone, "555-0100"},
		{state.StateAwaitingDirection, "Data"},
		{state.StateAwaitingCourseType, "free"},
	}
	for _, in := range inputs {
		if in.from == target {
			return
		}
		h.send(t, in.input)
	}
}

func singleCourseRows() []catalog.Row {
	return []catalog.Row{{Direction: "Data", CourseType: "free", CourseName: "Intro", CourseLink: "http://a"}}
}

func TestFlow_EndToEnd(t *testing.T) {
	h := newHarness(t, singleCourseRows())

	reply := h.start(t)
	assert.Equal(t, []string{"I agree"}, reply.Options)

	reply = h.send(t, "I agree")
	assert.True(t, reply.RemoveKeyboard)

	h.send(t, "  Jane Doe ")
	reply = h.send(t, "555-0100")
	assert.Equal(t, []string{"Data"}, reply.Options)

	reply = h.send(t, "Data")
	assert.Equal(t, []string{"free"}, reply.Options)
	require.Len(t, h.leads.leads, 1)
	assert.Equal(t, lead.Lead{FIO: "Jane Doe", Phone: "555-0100", Direction: "Data"}, h.leads.leads[0])

	reply = h.send(t, "free")
	assert.Equal(t, []string{"Intro"}, reply.Options)

	reply = h.send(t, "Intro")
	assert.Contains(t, reply.Text, "http://a")
	assert.Contains(t, reply.Text, "Intro")
	assert.True(t, reply.RemoveKeyboard)

	_, exists := h.session(t)
	assert.False(t, exists)

	reply = h.send(t, "Intro")
	assert.Equal(t, h.tr.T("form.start_hint"), reply.Text)
	_, exists = h.session(t)
	assert.False(t, exists, "a message after completion must not create a session")

	h.start(t)
	s, exists := h.session(t)
	require.True(t, exists)
	assert.Equal(t, state.StateAwaitingConsent, s.State)
}

func TestFlow_ConsentRefusalClearsSession(t *testing.T) {
	for _, answer := range []string{"no", "", "i agree", "I agree!"} {
		answer := answer
		t.Run(fmt.Sprintf("answer %q", answer), func(t *testing.T) {
			h := newHarness(t, singleCourseRows())
			h.start(t)

			reply := h.send(t, answer)
			assert.Equal(t, h.tr.T("form.consent_refused"), reply.Text)
			assert.True(t, reply.RemoveKeyboard)

			_, exists := h.session(t)
			assert.False(t, exists)
			assert.Empty(t, h.leads.leads)
		})
	}
}

func TestFlow_ConsentTokenIsTrimmed(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	h.start(t)

	h.send(t, "  I agree\n")

	s, exists := h.session(t)
	require.True(t, exists)
	assert.Equal(t, state.StateAwaitingFio, s.State)
}

func TestFlow_RepromptIsIdempotent(t *testing.T) {
	testCases := []struct {
		name    string
		state   state.State
		invalid string
	}{
		{name: "empty fio", state: state.StateAwaitingFio, invalid: "   "},
		{name: "empty phone", state: state.StateAwaitingPhone, invalid: ""},
		{name: "unknown direction", state: state.StateAwaitingDirection, invalid: "data"},
		{name: "unknown course type", state: state.StateAwaitingCourseType, invalid: "Free"},
		{name: "unknown course", state: state.StateAwaitingCourseSelection, invalid: "intro"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, singleCourseRows())
			h.advance(t, tc.state)

			before, exists := h.session(t)
			require.True(t, exists)
			require.Equal(t, tc.state, before.State)
			leadsBefore := len(h.leads.leads)

			for i := 0; i < 4; i++ {
				reply := h.send(t, tc.invalid)
				assert.NotEmpty(t, reply.Text)
			}

			after, exists := h.session(t)
			require.True(t, exists)
			assert.Equal(t, before.State, after.State)
			assert.Equal(t, before.FIO, after.FIO)
			assert.Equal(t, before.Phone, after.Phone)
			assert.Equal(t, before.Direction, after.Direction)
			assert.Equal(t, before.CourseType, after.CourseType)
			assert.Len(t, h.leads.leads, leadsBefore)
		})
	}
}

func TestFlow_UnknownDirectionDoesNotWriteLead(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	h.advance(t, state.StateAwaitingDirection)

	reply := h.send(t, "Marketing")

	assert.Equal(t, h.tr.T("form.direction_invalid"), reply.Text)
	assert.Equal(t, []string{"Data"}, reply.Options)
	assert.Empty(t, h.leads.leads)

	s, _ := h.session(t)
	assert.Equal(t, state.StateAwaitingDirection, s.State)
	assert.Empty(t, s.Direction)
}

func TestFlow_EmptyCourseListEndsSession(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	h.advance(t, state.StateAwaitingCourseType)

	reply := h.send(t, "paid")

	assert.Equal(t, h.tr.T("form.courses_not_found"), reply.Text)
	assert.True(t, reply.RemoveKeyboard)
	_, exists := h.session(t)
	assert.False(t, exists)
}

func TestFlow_OffersAtMostFiveCourses(t *testing.T) {
	for _, total := range []int{1, 4, 5, 6, 11} {
		total := total
		t.Run(fmt.Sprintf("%d courses", total), func(t *testing.T) {
			rows := make([]catalog.Row, 0, total)
			for i := 0; i < total; i++ {
				rows = append(rows, catalog.Row{
					Direction:  "Data",
					CourseType: "free",
					CourseName: fmt.Sprintf("Course %d", i),
					CourseLink: fmt.Sprintf("http://c/%d", i),
				})
			}

			h := newHarness(t, rows)
			h.advance(t, state.StateAwaitingCourseType)
			reply := h.send(t, "free")

			want := total
			if want > 5 {
				want = 5
			}
			require.Len(t, reply.Options, want)
			for i, name := range reply.Options {
				assert.Equal(t, fmt.Sprintf("Course %d", i), name)
			}
		})
	}
}

func TestFlow_CourseBeyondCapIsRejected(t *testing.T) {
	rows := make([]catalog.Row, 0, 6)
	for i := 0; i < 6; i++ {
		rows = append(rows, catalog.Row{Direction: "Data", CourseType: "free", CourseName: fmt.Sprintf("Course %d", i), CourseLink: "http://c"})
	}

	h := newHarness(t, rows)
	h.advance(t, state.StateAwaitingCourseSelection)

	reply := h.send(t, "Course 5")
	assert.Equal(t, h.tr.T("form.course_invalid"), reply.Text)

	s, exists := h.session(t)
	require.True(t, exists)
	assert.Equal(t, state.StateAwaitingCourseSelection, s.State)
}

func TestFlow_MonotonicFieldPopulation(t *testing.T) {
	h := newHarness(t, []catalog.Row{
		{Direction: "Data", CourseType: "free", CourseName: "Intro", CourseLink: "http://a"},
		{Direction: "Data", CourseType: "paid", CourseName: "Pro", CourseLink: "http://p"},
	})

	h.start(t)
	inputs := []string{"I agree", "", "Jane", "", "555", "nope", "Data", "trial", "paid", "nope", "Pro"}
	for _, input := range inputs {
		h.send(t, input)

		s, exists := h.session(t)
		if !exists {
			break
		}
		require.NoError(t, s.Validate(), "after %q", input)
		if s.State == state.StateAwaitingCourseType {
			assert.NotEmpty(t, s.Direction)
		}
		if s.State == state.StateAwaitingCourseSelection {
			assert.NotEmpty(t, s.CourseType)
			assert.NotEmpty(t, s.Direction)
		}
	}

	_, exists := h.session(t)
	assert.False(t, exists)
}

func TestFlow_StartResetsProgress(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	h.advance(t, state.StateAwaitingCourseType)

	reply := h.start(t)
	assert.Equal(t, h.tr.T("form.consent_prompt"), reply.Text)

	s, exists := h.session(t)
	require.True(t, exists)
	assert.Equal(t, state.NewSession(userID).State, s.State)
	assert.Empty(t, s.FIO)
	assert.Empty(t, s.Phone)
	assert.Empty(t, s.Direction)
}

func TestFlow_LeadFailureDoesNotBlockConversation(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	reporter := &fakeReporter{}
	h.flow.opts.Errors = reporter
	h.leads.err = errors.New("sheet unavailable")
	h.advance(t, state.StateAwaitingDirection)

	reply := h.send(t, "Data")

	assert.Equal(t, h.tr.T("form.course_type_prompt"), reply.Text)
	assert.Len(t, reporter.errs, 1)
	s, _ := h.session(t)
	assert.Equal(t, state.StateAwaitingCourseType, s.State)
}

func TestFlow_EmptyCatalogOffersNoDirections(t *testing.T) {
	h := newHarness(t, nil)
	h.advance(t, state.StateAwaitingDirection)

	reply := h.send(t, "Data")
	assert.Empty(t, reply.Options)

	s, _ := h.session(t)
	assert.Equal(t, state.StateAwaitingDirection, s.State)
}

func TestFlow_Cancel(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	h.advance(t, state.StateAwaitingPhone)

	reply, err := h.flow.Cancel(context.Background(), userID)
	require.NoError(t, err)
	assert.True(t, reply.RemoveKeyboard)

	_, exists := h.session(t)
	assert.False(t, exists)

	_, err = h.flow.Cancel(context.Background(), userID)
	assert.NoError(t, err)
}

func TestFlow_CourseTypeRepromptNamesLabels(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	h.advance(t, state.StateAwaitingCourseType)

	reply := h.send(t, "cheap")

	assert.Equal(t, "Please choose 'free' or 'paid' courses.", reply.Text)
	assert.Equal(t, []string{"free"}, reply.Options)
}

type flakyStorage struct {
	*state.MemoryStorage
	getErr  error
	saveErr error
}

func (s *flakyStorage) Get(ctx context.Context, userID int64) (state.Session, error) {
	if s.getErr != nil {
		return state.Session{}, s.getErr
	}
	return s.MemoryStorage.Get(ctx, userID)
}

func (s *flakyStorage) Save(ctx context.Context, session state.Session) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.MemoryStorage.Save(ctx, session)
}

func TestFlow_StartSurfacesStorageErrors(t *testing.T) {
	sessions := &flakyStorage{MemoryStorage: state.NewMemoryStorage(), getErr: errors.New("storage offline")}
	flow := New(catalog.Empty(), sessions, nil, translator(t), Options{Labels: labels}, testLogger())

	_, err := flow.Start(context.Background(), userID)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeState, appErr.Code)
	assert.Zero(t, sessions.Len())
}

func TestFlow_LeadWrittenOnlyAfterDirectionIsSaved(t *testing.T) {
	h := newHarness(t, singleCourseRows())
	sessions := &flakyStorage{MemoryStorage: h.sessions}
	h.flow = New(h.flow.catalog, sessions, h.leads, h.tr, Options{Labels: labels}, testLogger())
	h.advance(t, state.StateAwaitingDirection)

	sessions.saveErr = errors.New("save timed out")
	_, err := h.flow.Handle(context.Background(), userID, "Data")
	require.Error(t, err)
	assert.Empty(t, h.leads.leads)

	s, _ := h.session(t)
	assert.Equal(t, state.StateAwaitingDirection, s.State)

	sessions.saveErr = nil
	h.send(t, "Data")
	h.send(t, "free")

	require.Len(t, h.leads.leads, 1)
	assert.Equal(t, lead.Lead{FIO: "Jane Doe", Phone: "555-0100", Direction: "Data"}, h.leads.leads[0])
}
