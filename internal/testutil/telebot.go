// Package testutil provides fakes shared by handler tests.
package testutil

import (
	"sync"

	telebot "gopkg.in/telebot.v3"
)

// Sent is a message captured by Context.Send.
type Sent struct {
	What interface{}
	Opts []interface{}
}

// Text returns the captured message when it was a string.
func (s Sent) Text() string {
	text, _ := s.What.(string)
	return text
}

// Markup returns the first reply markup passed with the message.
func (s Sent) Markup() *telebot.ReplyMarkup {
	for _, opt := range s.Opts {
		if markup, ok := opt.(*telebot.ReplyMarkup); ok {
			return markup
		}
	}
	return nil
}

// Context is a telebot.Context backed by a single text message. Methods that
// are not overridden panic through the nil embedded interface.
type Context struct {
	telebot.Context

	UpdateID int
	User     *telebot.User
	Msg      *telebot.Message
	SendErr  error

	mu    sync.Mutex
	sent  []Sent
	store map[string]interface{}
}

// NewContext builds a fake update from userID carrying text.
func NewContext(updateID int, userID int64, text string) *Context {
	user := &telebot.User{ID: userID}
	return &Context{
		UpdateID: updateID,
		User:     user,
		Msg: &telebot.Message{
			ID:     updateID,
			Sender: user,
			Chat:   &telebot.Chat{ID: userID},
			Text:   text,
		},
		store: make(map[string]interface{}),
	}
}

func (c *Context) Sender() *telebot.User { return c.User }

func (c *Context) Message() *telebot.Message { return c.Msg }

func (c *Context) Text() string {
	if c.Msg == nil {
		return ""
	}
	return c.Msg.Text
}

func (c *Context) Update() telebot.Update {
	return telebot.Update{ID: c.UpdateID, Message: c.Msg}
}

func (c *Context) Send(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sent = append(c.sent, Sent{What: what, Opts: opts})
	return c.SendErr
}

func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store == nil {
		c.store = make(map[string]interface{})
	}
	c.store[key] = value
}

func (c *Context) Get(key string) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.store[key]
}

// Sent returns every captured message in order.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Sent(nil), c.sent...)
}

// LastText returns the text of the last captured message.
func (c *Context) LastText() string {
	sent := c.Sent()
	if len(sent) == 0 {
		return ""
	}
	return sent[len(sent)-1].Text()
}
