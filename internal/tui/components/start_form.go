package components

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/collie/internal/tui/styles"
)

// StartRequest is what the full sync form submits
type StartRequest struct {
	MaxEmails int
	DaysBack  *int // nil syncs all mail
}

// StartForm asks for the limits of a full sync
type StartForm struct {
	visible bool
	focus   int
	inputs  [2]textinput.Model // max emails, days back
	err     string
}

// NewStartForm creates a hidden form
func NewStartForm() StartForm {
	var f StartForm
	for i := range f.inputs {
		ti := textinput.New()
		ti.CharLimit = 7
		ti.Width = 10
		ti.Prompt = ""
		ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
		ti.PlaceholderStyle = styles.DimStyle
		ti.Validate = digitsOnly
		f.inputs[i] = ti
	}
	f.inputs[1].Placeholder = "all mail"
	return f
}

// Show displays the form prefilled with the given defaults
func (f *StartForm) Show(maxEmails int, daysBack *int) {
	f.visible = true
	f.err = ""
	f.inputs[0].SetValue(strconv.Itoa(maxEmails))
	if daysBack != nil {
		f.inputs[1].SetValue(strconv.Itoa(*daysBack))
	} else {
		f.inputs[1].SetValue("")
	}
	f.setFocus(0)
}

// Hide dismisses the form
func (f *StartForm) Hide() {
	f.visible = false
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
}

// IsVisible returns whether the form is shown
func (f StartForm) IsVisible() bool {
	return f.visible
}

// Value parses the inputs
func (f StartForm) Value() (StartRequest, error) {
	maxEmails, err := strconv.Atoi(strings.TrimSpace(f.inputs[0].Value()))
	if err != nil || maxEmails <= 0 {
		return StartRequest{}, fmt.Errorf("max emails must be a positive number")
	}

	req := StartRequest{MaxEmails: maxEmails}
	if raw := strings.TrimSpace(f.inputs[1].Value()); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return StartRequest{}, fmt.Errorf("days must be a positive number or empty")
		}
		req.DaysBack = &days
	}
	return req, nil
}

// Update handles input events, returns (form, cmd, submitted)
func (f StartForm) Update(msg tea.Msg) (StartForm, tea.Cmd, bool) {
	if !f.visible {
		return f, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, StartFormKeys.Submit):
			if _, err := f.Value(); err != nil {
				f.err = err.Error()
				return f, nil, false
			}
			return f, nil, true
		case key.Matches(keyMsg, StartFormKeys.Cancel):
			f.Hide()
			return f, nil, false
		case key.Matches(keyMsg, StartFormKeys.Next):
			cmd := f.setFocus((f.focus + 1) % len(f.inputs))
			return f, cmd, false
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	f.err = ""
	return f, cmd, false
}

func (f *StartForm) setFocus(i int) tea.Cmd {
	f.focus = i
	for j := range f.inputs {
		if j != i {
			f.inputs[j].Blur()
		}
	}
	return f.inputs[i].Focus()
}

// View renders the form
func (f StartForm) View() string {
	if !f.visible {
		return ""
	}

	const modalWidth = 36

	row := func(label string, i int) string {
		marker := "  "
		if i == f.focus {
			marker = styles.AccentStyle.Render("› ")
		}
		return marker + styles.StatusLabelStyle.Render(label) + f.inputs[i].View()
	}

	lines := []string{
		styles.ModalTitleStyle.Render("Start full sync"),
		row("Max emails", 0),
		row("Days back", 1),
		"",
	}
	if f.err != "" {
		lines = append(lines, styles.ErrorStyle.Render(f.err))
	} else {
		lines = append(lines, styles.DimStyle.Render("enter start · tab next · esc cancel"))
	}

	return styles.ModalStyle.
		Width(modalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func digitsOnly(s string) error {
	for _, r := range s {
		if r < '0' || r > '9' {
			return fmt.Errorf("digits only")
		}
	}
	return nil
}
