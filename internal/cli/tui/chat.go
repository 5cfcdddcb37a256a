// Package tui renders the interactive chat controller with tview.
package tui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/teslashibe/go-swift/pkg/assistant"
	"github.com/teslashibe/go-swift/pkg/client"
)

// Controller is the part of client.Controller the view drives.
type Controller interface {
	SubmitText(text string)
	SetInput(text string)
	ToggleMute() bool
	ToggleLanguage() assistant.Language
	ToggleTheme() client.Theme
}

// Chat is the terminal UI: conversation, status line and text input.
type Chat struct {
	app          *tview.Application
	conversation *tview.TextView
	status       *tview.TextView
	input        *tview.InputField
	ctrl         Controller
}

// NewChat builds the view. Call Run to take over the terminal.
func NewChat(ctrl Controller) *Chat {
	c := &Chat{app: tview.NewApplication(), ctrl: ctrl}

	c.conversation = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)
	c.conversation.SetTitle(" swift ").SetBorder(true)

	c.status = tview.NewTextView().SetDynamicColors(true)

	c.input = tview.NewInputField().SetLabel("> ")
	c.input.SetBorder(true)
	c.input.SetChangedFunc(func(text string) {
		go ctrl.SetInput(text)
	})
	c.input.SetDoneFunc(func(key tcell.Key) {
		switch key {
		case tcell.KeyEnter:
			text := c.input.GetText()
			if strings.TrimSpace(text) == "" {
				return
			}
			go ctrl.SubmitText(text)
		case tcell.KeyEscape:
			c.input.SetText("")
		}
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.conversation, 0, 1, false).
		AddItem(c.status, 1, 0, false).
		AddItem(c.input, 3, 0, true)

	c.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF2:
			go ctrl.ToggleMute()
			return nil
		case tcell.KeyF3:
			go ctrl.ToggleLanguage()
			return nil
		case tcell.KeyF4:
			go ctrl.ToggleTheme()
			return nil
		}
		return event
	})

	c.app.SetRoot(layout, true).SetFocus(c.input)
	return c
}

// Run blocks until the user quits with Ctrl-C or Stop is called.
func (c *Chat) Run() error {
	return c.app.Run()
}

// Stop ends Run.
func (c *Chat) Stop() {
	c.app.Stop()
}

// Update redraws from a controller snapshot. Safe from any goroutine
// except the UI event loop.
func (c *Chat) Update(s client.Snapshot) {
	c.app.QueueUpdateDraw(func() {
		applyTheme(s.Theme, c.conversation, c.status)
		c.conversation.SetText(RenderConversation(s))
		c.conversation.ScrollToEnd()
		c.status.SetText(RenderStatus(s))
		if c.input.GetText() != s.Input {
			c.input.SetText(s.Input)
		}
	})
}

// Notice shows an error notice in the conversation pane.
func (c *Chat) Notice(msg string) {
	c.app.QueueUpdateDraw(func() {
		fmt.Fprintf(c.conversation, "\n[red]%s[-]\n", tview.Escape(msg))
	})
}

// RenderConversation formats the history. The newest assistant reply shows
// only its revealed prefix while the reveal is running.
func RenderConversation(s client.Snapshot) string {
	var b strings.Builder
	last := len(s.History) - 1
	for i, e := range s.History {
		content := e.Content
		if i == last && e.Role == assistant.RoleAssistant && strings.HasPrefix(content, s.Revealed) {
			content = s.Revealed
		}

		if e.Role == assistant.RoleUser {
			fmt.Fprintf(&b, "[::b][dodgerblue]you:[-][::-] %s\n", tview.Escape(content))
			continue
		}
		fmt.Fprintf(&b, "[::b][green]swift:[-][::-] %s\n", tview.Escape(content))
		if e.Latencies != nil {
			fmt.Fprintf(&b, "[gray]%s[-]\n", client.FormatLatencies(e.Latencies))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderStatus formats the status line.
func RenderStatus(s client.Snapshot) string {
	mic := "mic on"
	if s.Muted {
		mic = "mic off"
	}
	return fmt.Sprintf(" [yellow]%s[-] | %s | %s | %s | F2 mute  F3 language  F4 theme  Ctrl-C quit",
		s.State, mic, strings.ToUpper(string(s.Language)), s.Theme)
}

func applyTheme(t client.Theme, views ...*tview.TextView) {
	bg, fg := tcell.ColorDefault, tcell.ColorWhite
	if t == client.ThemeLight {
		bg, fg = tcell.ColorWhite, tcell.ColorBlack
	}
	for _, v := range views {
		v.SetBackgroundColor(bg)
		v.SetTextColor(fg)
	}
}
