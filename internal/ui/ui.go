package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"vodo/internal/api"
	"vodo/internal/capture"
	"vodo/internal/config"
	"vodo/internal/notify"
	"vodo/internal/store"
)

type mode int

const (
	modeList mode = iota
	modeAdd
)

const (
	focusDesc = iota
	focusDue
)

// Uploader is the voice-related slice of the backend client. It is nil
// in offline mode, where no transcription backend exists.
type Uploader interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (api.TranscribeResult, error)
	ConfirmEmail(ctx context.Context, email, transcription string) (api.ConfirmResult, error)
}

// emailState is the detected-email verification modal. Nil means the
// flow is idle; non-nil means an address is shown for review.
type emailState struct {
	input         textinput.Model
	transcription string
	verifying     bool
	errMsg        string
}

type Model struct {
	store    *store.Store
	uploader Uploader
	device   capture.Device
	cfg      config.Config

	mode   mode
	cursor int

	inputDesc textinput.Model
	inputDue  textinput.Model
	focus     int

	// Pending form attachments collected from the last upload and the
	// email verification flow.
	audioURL       string
	transcription  string
	confirmedEmail string

	session    *capture.Session
	captureGen int
	workCtx    context.Context
	cancelWork context.CancelFunc
	recording  bool
	processing bool
	submitting bool

	email *emailState

	confirmDel bool
	pendingDel *store.Task

	center *notify.Center
	status string
}

type (
	loadDoneMsg struct{ err error }

	recordStartedMsg struct {
		gen     int
		session *capture.Session
		err     error
	}
	uploadResultMsg struct {
		gen int
		res api.TranscribeResult
		err error
	}

	addDoneMsg    struct{ err error }
	toggleDoneMsg struct{ err error }
	deleteDoneMsg struct{ err error }

	confirmEmailMsg struct {
		email string
		err   error
	}

	notifExpireMsg struct{ id int }
)

func Run(st *store.Store, uploader Uploader, device capture.Device, cfg config.Config) error {
	program := tea.NewProgram(NewModel(st, uploader, device, cfg))
	_, err := program.Run()
	return err
}

func NewModel(st *store.Store, uploader Uploader, device capture.Device, cfg config.Config) Model {
	desc := textinput.New()
	desc.Placeholder = "Add a new todo..."
	desc.CharLimit = 256
	desc.Width = 40

	due := textinput.New()
	due.Placeholder = "due YYYY-MM-DD (optional)"
	due.CharLimit = 10
	due.Width = 24

	return Model{
		store:     st,
		uploader:  uploader,
		device:    device,
		cfg:       cfg,
		mode:      modeList,
		inputDesc: desc,
		inputDue:  due,
		center:    notify.NewCenter(),
		status:    "Press 'a' to add, 'v' to record, space to toggle, 'd' to delete.",
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.email != nil {
			return m.updateEmailModal(msg.String(), msg)
		}
		if m.confirmDel {
			return m.updateDeleteConfirm(msg.String())
		}
		if m.mode == modeAdd {
			return m.updateAddMode(msg.String(), msg)
		}
		return m.updateListMode(msg.String())

	case tea.WindowSizeMsg:
		m.inputDesc.Width = msg.Width - 10

	case loadDoneMsg:
		if msg.err != nil {
			zap.L().Error("initial load failed", zap.Error(msg.err))
			return m.notifyCmd(notify.LevelError, "Could not load todos from the backend")
		}
		m.cursor = clampCursor(m.cursor, m.store.Len())
		m.status = fmt.Sprintf("Loaded %d todos", m.store.Len())

	case recordStartedMsg:
		if msg.gen != m.captureGen {
			if msg.err == nil && msg.session != nil {
				// The session was abandoned while the device was
				// starting; release it without touching UI state.
				return m, func() tea.Msg {
					if _, err := msg.session.Stop(); err != nil {
						zap.L().Debug("stopping abandoned session", zap.Error(err))
					}
					return nil
				}
			}
			return m, nil
		}
		if msg.err != nil {
			m.recording = false
			m.session = nil
			zap.L().Error("capture start failed", zap.Error(msg.err))
			return m.notifyCmd(notify.LevelError, "Microphone unavailable")
		}
		m.recording = true
		m.status = "Recording... press 'v' to stop"

	case uploadResultMsg:
		if msg.gen != m.captureGen {
			// Result for an abandoned session: never touches UI state.
			zap.L().Debug("dropping stale upload result", zap.Int("gen", msg.gen))
			return m, nil
		}
		m.processing = false
		m.session = nil
		if m.cancelWork != nil {
			m.cancelWork()
			m.cancelWork = nil
		}
		if msg.err != nil {
			zap.L().Error("upload failed", zap.Error(msg.err))
			return m.notifyCmd(notify.LevelError, "Recording upload failed")
		}
		m.audioURL = msg.res.AudioURL
		m.transcription = msg.res.Transcription
		m.mode = modeAdd
		m.focus = focusDesc
		m.inputDesc.Focus()
		m.status = "Transcription received; edit the text and press Enter"
		if msg.res.ExtractedEmail != "" {
			return m.openEmailModal(msg.res.ExtractedEmail, msg.res.Transcription)
		}
		return m, nil

	case addDoneMsg:
		m.submitting = false
		if msg.err != nil {
			// Form stays populated for retry.
			zap.L().Error("create failed", zap.Error(msg.err))
			return m.notifyCmd(notify.LevelError, "Could not save todo")
		}
		m.resetForm()
		m.mode = modeList
		m.cursor = clampCursor(m.store.Len()-1, m.store.Len())
		return m.notifyCmd(notify.LevelSuccess, "Todo added")

	case toggleDoneMsg:
		if msg.err != nil {
			zap.L().Error("toggle failed", zap.Error(msg.err))
			return m.notifyCmd(notify.LevelError, "Could not update todo")
		}

	case deleteDoneMsg:
		if msg.err != nil {
			zap.L().Error("delete failed", zap.Error(msg.err))
			return m.notifyCmd(notify.LevelError, "Could not delete todo")
		}
		m.cursor = clampCursor(m.cursor, m.store.Len())

	case confirmEmailMsg:
		if m.email == nil {
			return m, nil
		}
		m.email.verifying = false
		if msg.err != nil {
			zap.L().Error("email confirmation failed", zap.Error(msg.err))
			m.email.errMsg = "Confirmation failed; check the address and retry"
			return m, nil
		}
		m.confirmedEmail = msg.email
		m.email = nil
		if m.mode == modeAdd {
			m.inputDesc.Focus()
		}
		return m.notifyCmd(notify.LevelSuccess, "Email verified: "+msg.email)

	case notifExpireMsg:
		m.center.Dismiss(msg.id)
	}
	return m, nil
}

func (m Model) updateListMode(key string) (tea.Model, tea.Cmd) {
	tasks := m.store.Tasks()
	// The store shrinks under the cursor while optimistic deletes or a
	// refresh are in flight; re-clamp before indexing into the snapshot.
	m.cursor = clampCursor(m.cursor, len(tasks))
	switch key {
	case "ctrl+c", m.cfg.Keys.Quit:
		m.abandonCapture()
		return m, tea.Quit
	case m.cfg.Keys.Down, "down":
		if len(tasks) > 0 {
			m.cursor = clampCursor(m.cursor+1, len(tasks))
		}
	case m.cfg.Keys.Up, "up":
		if m.cursor > 0 {
			m.cursor = clampCursor(m.cursor-1, len(tasks))
		}
	case m.cfg.Keys.Add:
		m.mode = modeAdd
		m.focus = focusDesc
		m.inputDesc.Focus()
		m.status = "Add mode: type a description and press Enter"
	case m.cfg.Keys.Record:
		return m.toggleRecording()
	case m.cfg.Keys.Refresh:
		return m, m.loadCmd()
	case m.cfg.Keys.Toggle:
		if len(tasks) == 0 {
			return m, nil
		}
		return m, m.toggleCmd(tasks[m.cursor].ID)
	case m.cfg.Keys.Delete:
		if len(tasks) == 0 {
			return m, nil
		}
		t := tasks[m.cursor]
		m.confirmDel = true
		m.pendingDel = &t
		m.status = fmt.Sprintf("Delete \"%s\"? y/n", t.Text)
	case "x":
		items := m.center.Items()
		if len(items) > 0 {
			m.center.Dismiss(items[0].ID)
		}
	}
	return m, nil
}

func (m Model) updateAddMode(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key {
	case m.cfg.Keys.Cancel:
		m.abandonCapture()
		m.resetForm()
		m.mode = modeList
		m.status = "Cancelled"
		return m, nil
	case "tab", "shift+tab":
		if m.focus == focusDesc {
			m.focus = focusDue
			m.inputDesc.Blur()
			m.inputDue.Focus()
		} else {
			m.focus = focusDesc
			m.inputDue.Blur()
			m.inputDesc.Focus()
		}
		return m, nil
	case m.cfg.Keys.Confirm:
		return m.submit()
	default:
		var cmd tea.Cmd
		if m.focus == focusDue {
			m.inputDue, cmd = m.inputDue.Update(msg)
		} else {
			m.inputDesc, cmd = m.inputDesc.Update(msg)
		}
		return m, cmd
	}
}

// submit validates the form and hands the draft to the store. An empty
// description is rejected before any remote call is made.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.submitting {
		return m, nil
	}
	text := strings.TrimSpace(m.inputDesc.Value())
	if text == "" {
		return m.notifyCmd(notify.LevelWarning, "Description cannot be empty")
	}
	due, err := parseDate(m.inputDue.Value())
	if err != nil {
		return m.notifyCmd(notify.LevelWarning, "Due date must be YYYY-MM-DD")
	}

	draft := store.Draft{
		Text:     text,
		AudioURL: m.audioURL,
		Email:    m.confirmedEmail,
		DueDate:  due,
	}
	m.submitting = true
	m.status = "Saving..."
	return m, m.addCmd(draft)
}

func (m Model) updateDeleteConfirm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "n", "N", m.cfg.Keys.Cancel:
		m.status = "Delete cancelled"
		m.confirmDel = false
		m.pendingDel = nil
		return m, nil
	case "y", "Y":
		if m.pendingDel == nil {
			m.confirmDel = false
			return m, nil
		}
		id := m.pendingDel.ID
		m.confirmDel = false
		m.pendingDel = nil
		m.status = "Deleting..."
		return m, m.deleteCmd(id)
	default:
		return m, nil
	}
}

func (m Model) openEmailModal(address, transcription string) (tea.Model, tea.Cmd) {
	in := textinput.New()
	in.Placeholder = "name@example.com"
	in.CharLimit = 128
	in.Width = 40
	in.SetValue(address)
	in.Focus()
	m.email = &emailState{input: in, transcription: transcription}
	m.inputDesc.Blur()
	m.inputDue.Blur()
	return m, nil
}

func (m Model) updateEmailModal(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	em := m.email
	switch key {
	case m.cfg.Keys.Cancel:
		// Cancelling discards the detected address with no remote call.
		m.email = nil
		if m.mode == modeAdd {
			m.inputDesc.Focus()
		}
		return m.notifyCmd(notify.LevelInfo, "Detected email discarded")
	case m.cfg.Keys.Confirm:
		if em.verifying {
			return m, nil
		}
		address := strings.TrimSpace(em.input.Value())
		if address == "" || !strings.Contains(address, "@") {
			em.errMsg = "Enter a valid email address"
			return m, nil
		}
		em.verifying = true
		em.errMsg = ""
		return m, m.confirmEmailCmd(address, em.transcription)
	default:
		var cmd tea.Cmd
		em.input, cmd = em.input.Update(msg)
		return m, cmd
	}
}

// toggleRecording drives the capture session: first press starts it,
// second press stops it and uploads the clip. While the upload round
// trip is in flight the trigger is disabled.
func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.processing {
		m.status = "Still processing the previous recording"
		return m, nil
	}
	if m.uploader == nil {
		return m.notifyCmd(notify.LevelWarning, "Voice capture needs the online backend")
	}

	if !m.recording {
		if m.session != nil {
			// Start is still in flight.
			m.status = "Microphone is starting..."
			return m, nil
		}
		m.captureGen++
		ctx, cancel := context.WithCancel(context.Background())
		m.workCtx = ctx
		m.cancelWork = cancel
		m.session = capture.NewSession(m.device, m.cfg.Recorder.MIME)
		m.status = "Starting microphone..."
		return m, m.recordStartCmd(ctx, m.session, m.captureGen)
	}

	m.recording = false
	m.processing = true
	m.status = "Transcribing..."
	return m, m.stopAndUploadCmd(m.workCtx, m.session, m.captureGen)
}

// abandonCapture invalidates any in-flight capture or upload so a late
// result cannot touch UI state.
func (m *Model) abandonCapture() {
	m.captureGen++
	if m.cancelWork != nil {
		m.cancelWork()
		m.cancelWork = nil
	}
	if m.session != nil && m.session.State() == capture.StateRecording {
		if _, err := m.session.Stop(); err != nil {
			zap.L().Debug("abandoned session stop", zap.Error(err))
		}
	}
	m.session = nil
	m.recording = false
	m.processing = false
}

func (m *Model) resetForm() {
	m.inputDesc.SetValue("")
	m.inputDesc.Blur()
	m.inputDue.SetValue("")
	m.inputDue.Blur()
	m.focus = focusDesc
	m.audioURL = ""
	m.transcription = ""
	m.confirmedEmail = ""
}

// notifyCmd pushes a notification and schedules its expiry timer.
func (m Model) notifyCmd(level notify.Level, text string) (tea.Model, tea.Cmd) {
	n := m.center.Push(level, text)
	return m, tea.Tick(notify.TTL, func(time.Time) tea.Msg {
		return notifExpireMsg{id: n.ID}
	})
}

func (m Model) loadCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return loadDoneMsg{err: st.Load(context.Background())}
	}
}

func (m Model) addCmd(d store.Draft) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		_, err := st.Add(context.Background(), d)
		return addDoneMsg{err: err}
	}
}

func (m Model) toggleCmd(id string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return toggleDoneMsg{err: st.Toggle(context.Background(), id)}
	}
}

func (m Model) deleteCmd(id string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return deleteDoneMsg{err: st.Remove(context.Background(), id)}
	}
}

func (m Model) recordStartCmd(ctx context.Context, s *capture.Session, gen int) tea.Cmd {
	return func() tea.Msg {
		return recordStartedMsg{gen: gen, session: s, err: s.Start(ctx)}
	}
}

func (m Model) stopAndUploadCmd(ctx context.Context, s *capture.Session, gen int) tea.Cmd {
	up := m.uploader
	return func() tea.Msg {
		clip, err := s.Stop()
		if err != nil {
			return uploadResultMsg{gen: gen, err: err}
		}
		res, err := up.Transcribe(ctx, clip.Data, clip.MIME)
		return uploadResultMsg{gen: gen, res: res, err: err}
	}
}

func (m Model) confirmEmailCmd(address, transcription string) tea.Cmd {
	up := m.uploader
	return func() tea.Msg {
		_, err := up.ConfirmEmail(context.Background(), address, transcription)
		return confirmEmailMsg{email: address, err: err}
	}
}

func parseDate(v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func clampCursor(cur, n int) int {
	if n <= 0 {
		return 0
	}
	if cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}
