package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"vodo/internal/config"
	"vodo/internal/notify"
	"vodo/internal/store"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	doneStyle    = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	overdueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	recStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	helpStyle    = lipgloss.NewStyle().Faint(true)
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 2)

	notifStyles = map[notify.Level]lipgloss.Style{
		notify.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		notify.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		notify.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		notify.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	}
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("vodo — voice todos"))
	if m.recording {
		b.WriteString("  " + recStyle.Render("● REC"))
	} else if m.processing {
		b.WriteString("  " + badgeStyle.Render("… transcribing"))
	}
	b.WriteString("\n\n")

	if m.email != nil {
		b.WriteString(m.renderEmailModal())
		b.WriteString("\n\n")
		b.WriteString(m.renderNotifications())
		return b.String()
	}

	tasks := m.store.Tasks()
	if len(tasks) == 0 {
		b.WriteString("No todos yet. Press 'a' to add one, 'v' to dictate one.\n")
	} else {
		b.WriteString(m.renderTaskList(tasks))
	}

	if m.mode == modeAdd {
		b.WriteString("\n")
		b.WriteString(m.renderForm())
	}

	b.WriteString("\n")
	b.WriteString(m.renderNotifications())
	b.WriteString(m.status)
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(renderHelp(m.cfg.Keys)))
	return b.String()
}

func (m Model) renderTaskList(tasks []store.Task) string {
	var b strings.Builder
	today := time.Now().Truncate(24 * time.Hour)
	for i, t := range tasks {
		cursor := " "
		if m.cursor == i && m.mode == modeList {
			cursor = ">"
		}

		checkbox := "[ ]"
		if t.Completed {
			checkbox = "[x]"
		}

		text := t.Text
		if t.Completed {
			text = doneStyle.Render(text)
		}

		extras := make([]string, 0, 3)
		if t.Email != "" {
			extras = append(extras, badgeStyle.Render("@"+t.Email))
		}
		if t.AudioURL != "" {
			extras = append(extras, badgeStyle.Render("♪ "+t.AudioURL))
		}
		if t.DueDate != nil {
			due := t.DueDate.Format("2006-01-02")
			if !t.Completed && t.DueDate.Before(today) {
				due = overdueStyle.Render("due " + due)
			} else {
				due = "due " + due
			}
			extras = append(extras, due)
		}

		b.WriteString(fmt.Sprintf("%s %s %s", cursor, checkbox, text))
		if len(extras) > 0 {
			b.WriteString("  " + strings.Join(extras, " · "))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderForm() string {
	var b strings.Builder
	b.WriteString("Description: ")
	b.WriteString(m.inputDesc.View())
	b.WriteString("\n")
	b.WriteString("Due:         ")
	b.WriteString(m.inputDue.View())
	b.WriteString("\n")

	if m.transcription != "" {
		b.WriteString("Transcription: " + m.transcription + "\n")
	}
	if m.audioURL != "" {
		b.WriteString(badgeStyle.Render("♪ recording attached: "+m.audioURL) + "\n")
	}
	if m.confirmedEmail != "" {
		b.WriteString(badgeStyle.Render("✓ verified email: "+m.confirmedEmail) + "\n")
	}
	return b.String()
}

func (m Model) renderEmailModal() string {
	em := m.email
	var b strings.Builder
	b.WriteString(titleStyle.Render("Verify email address"))
	b.WriteString("\n\n")
	b.WriteString("An email address was detected in your recording.\n")
	b.WriteString("Check it or edit it before confirming:\n\n")
	b.WriteString(em.input.View())
	b.WriteString("\n")
	if em.errMsg != "" {
		b.WriteString(errStyle.Render(em.errMsg))
		b.WriteString("\n")
	}
	if em.verifying {
		b.WriteString("Confirming...\n")
	} else {
		b.WriteString(helpStyle.Render("enter confirm · esc cancel"))
		b.WriteString("\n")
	}
	return modalStyle.Render(b.String())
}

func (m Model) renderNotifications() string {
	items := m.center.Items()
	if len(items) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range items {
		style := notifStyles[n.Level]
		b.WriteString(style.Render(fmt.Sprintf("[%s] %s", n.Level, n.Text)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderHelp(k config.Keymap) string {
	return fmt.Sprintf("%s/%s move · %s add · %s record · %s toggle · %s delete · %s refresh · x dismiss · %s quit",
		k.Up, k.Down, k.Add, k.Record, k.Toggle, k.Delete, k.Refresh, k.Quit)
}
