package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/course-intake-bot/internal/bot/handlers"
	"github.com/Proton-105/course-intake-bot/internal/catalog"
	"github.com/Proton-105/course-intake-bot/internal/form"
	"github.com/Proton-105/course-intake-bot/internal/i18n"
	"github.com/Proton-105/course-intake-bot/internal/idempotency"
	"github.com/Proton-105/course-intake-bot/internal/lead"
	"github.com/Proton-105/course-intake-bot/internal/state"
	fake "github.com/Proton-105/course-intake-bot/internal/testutil"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func translator(t *testing.T) i18n.Translator {
	t.Helper()
	manager, err := i18n.Load("ru")
	require.NoError(t, err)
	return manager.Translator("en")
}

type stubReporter struct {
	message string
	errs    []error
}

func (r *stubReporter) Handle(_ context.Context, err error) (string, bool) {
	r.errs = append(r.errs, err)
	return r.message, false
}

type leadCollector struct {
	leads []lead.Lead
}

func (c *leadCollector) Record(_ context.Context, l lead.Lead) error {
	c.leads = append(c.leads, l)
	return nil
}

func newTestBot(t *testing.T) (*Bot, *leadCollector, i18n.Translator) {
	t.Helper()

	tr := translator(t)
	labels := catalog.Labels{Free: "free", Paid: "paid"}
	cat := catalog.Build([]catalog.Row{
		{Direction: "Data", CourseType: "free", CourseName: "Intro to SQL", CourseLink: "https://example.com/sql"},
		{Direction: "Data", CourseType: "paid", CourseName: "Data Engineering", CourseLink: "https://example.com/de"},
	}, labels, testLogger())

	leads := &leadCollector{}
	flow := form.New(cat, state.NewMemoryStorage(), leads, tr, form.Options{Labels: labels}, testLogger())

	b, err := build(telebot.Settings{Offline: true}, Deps{
		Conversation: flow,
		Translator:   tr,
		Errors:       &stubReporter{},
		Idempotency:  idempotency.NewManager(idempotency.NewMemoryStore(), time.Hour, time.Minute, testLogger()),
	}, testLogger())
	require.NoError(t, err)

	return b, leads, tr
}

func TestBot_CompletesIntake(t *testing.T) {
	b, leads, tr := newTestBot(t)
	updateID := 0
	say := func(text string) *fake.Context {
		updateID++
		c := fake.NewContext(updateID, 42, text)
		require.NoError(t, b.router.Route(c))
		return c
	}

	c := say("/start")
	assert.Equal(t, tr.T("form.consent_prompt"), c.LastText())
	markup := c.Sent()[0].Markup()
	require.NotNil(t, markup)
	assert.Equal(t, tr.T("form.consent_button"), markup.ReplyKeyboard[0][0].Text)

	assert.Equal(t, tr.T("form.fio_prompt"), say(tr.T("form.consent_button")).LastText())
	assert.Equal(t, tr.T("form.phone_prompt"), say("Jane Doe").LastText())

	c = say("+10000000000")
	assert.Equal(t, tr.T("form.direction_prompt"), c.LastText())
	assert.Equal(t, "Data", c.Sent()[0].Markup().ReplyKeyboard[0][0].Text)

	assert.Equal(t, tr.T("form.course_type_prompt"), say("Data").LastText())
	assert.Equal(t, tr.T("form.course_prompt"), say("free").LastText())

	c = say("Intro to SQL")
	assert.Contains(t, c.LastText(), "https://example.com/sql")
	assert.True(t, c.Sent()[0].Markup().RemoveKeyboard)

	require.Len(t, leads.leads, 1)
	assert.Equal(t, lead.Lead{FIO: "Jane Doe", Phone: "+10000000000", Direction: "Data"}, leads.leads[0])

	assert.Equal(t, tr.T("form.start_hint"), say("anything").LastText())
}

func TestBot_SkipsDuplicateUpdates(t *testing.T) {
	b, _, _ := newTestBot(t)

	first := fake.NewContext(1, 42, "/start")
	require.NoError(t, b.router.Route(first))
	assert.Len(t, first.Sent(), 1)

	redelivered := fake.NewContext(1, 42, "/start")
	require.NoError(t, b.router.Route(redelivered))
	assert.Empty(t, redelivered.Sent())
}

func TestBot_HelpAndUnknownCommands(t *testing.T) {
	b, _, tr := newTestBot(t)

	for i, text := range []string{"/help", "/HELP@intake_bot", "/unknown"} {
		c := fake.NewContext(i+1, 42, text)
		require.NoError(t, b.router.Route(c))
		assert.Equal(t, tr.T("help.text"), c.LastText(), text)
	}
}

func TestBot_CancelClearsKeyboard(t *testing.T) {
	b, _, tr := newTestBot(t)

	require.NoError(t, b.router.Route(fake.NewContext(1, 42, "/start")))

	c := fake.NewContext(2, 42, "/cancel")
	require.NoError(t, b.router.Route(c))
	assert.Equal(t, tr.T("form.cancelled"), c.LastText())
	assert.True(t, c.Sent()[0].Markup().RemoveKeyboard)
}

func TestBuild_RequiresConversation(t *testing.T) {
	_, err := build(telebot.Settings{Offline: true}, Deps{}, testLogger())
	assert.Error(t, err)
}

func TestRecoveryMiddleware(t *testing.T) {
	reporter := &stubReporter{message: "try later"}
	handler := RecoveryMiddleware(testLogger(), reporter, "fallback")(func(c telebot.Context) error {
		panic("boom")
	})

	c := fake.NewContext(1, 42, "x")
	assert.NoError(t, handler(c))
	assert.Equal(t, "try later", c.LastText())
	require.Len(t, reporter.errs, 1)
}

func TestErrorHandlingMiddleware(t *testing.T) {
	handler := ErrorHandlingMiddleware(nil, "fallback")(func(c telebot.Context) error {
		return errors.New("failed")
	})

	c := fake.NewContext(1, 42, "x")
	assert.NoError(t, handler(c))
	assert.Equal(t, "fallback", c.LastText())

	reporter := &stubReporter{message: "reported"}
	handler = ErrorHandlingMiddleware(reporter, "fallback")(func(c telebot.Context) error {
		return errors.New("failed")
	})
	c = fake.NewContext(2, 42, "x")
	assert.NoError(t, handler(c))
	assert.Equal(t, "reported", c.LastText())
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	router := NewRouter(testLogger())
	var order []string

	router.Use(func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			order = append(order, "outer")
			return next(c)
		}
	})
	router.Use(func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			order = append(order, "inner")
			return next(c)
		}
	})
	router.SetDefault(func(c telebot.Context) error {
		order = append(order, "handler")
		return nil
	})

	require.NoError(t, router.Route(fake.NewContext(1, 1, "text")))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestCommandName(t *testing.T) {
	testCases := []struct {
		text string
		name string
		ok   bool
	}{
		{text: "/start", name: "/start", ok: true},
		{text: " /Start@bot deep-link ", name: "/start", ok: true},
		{text: "Jane Doe", ok: false},
		{text: "", ok: false},
	}

	for _, tc := range testCases {
		name, ok := commandName(tc.text)
		assert.Equal(t, tc.ok, ok, tc.text)
		assert.Equal(t, tc.name, name, tc.text)
	}
}

func TestCommands(t *testing.T) {
	commands := Commands(translator(t))

	require.Len(t, commands, 3)
	assert.Equal(t, "start", commands[0].Text)
	assert.Equal(t, "Start a new request", commands[0].Description)
	assert.Equal(t, "commands.help", Commands(nil)[2].Description)
}
