package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// CommandDevice records by running an external capture process (arecord,
// sox, ffmpeg) that writes raw audio to stdout. This is the process
// equivalent of the browser's MediaRecorder boundary.
type CommandDevice struct {
	command string
	args    []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	cancel context.CancelFunc
}

func NewCommandDevice(command string, args ...string) *CommandDevice {
	return &CommandDevice{command: command, args: args}
}

func (d *CommandDevice) Start(ctx context.Context) (<-chan []byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cmd != nil {
		return nil, errors.New("capture process already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, d.command, d.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach to capture process: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("capture device unavailable (%s): %w", d.command, err)
	}
	d.cmd = cmd
	d.cancel = cancel

	ch := make(chan []byte)
	go func() {
		defer close(ch)
		buf := make([]byte, 4096)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				frag := make([]byte, n)
				copy(frag, buf[:n])
				ch <- frag
			}
			if err != nil {
				return
			}
		}
	}()
	return ch, nil
}

// Stop interrupts the capture process and waits for it to exit. An
// exit status caused by the interrupt is not an error.
func (d *CommandDevice) Stop() error {
	d.mu.Lock()
	cmd := d.cmd
	cancel := d.cancel
	d.cmd = nil
	d.cancel = nil
	d.mu.Unlock()

	if cmd == nil {
		return nil
	}
	if cmd.Process != nil {
		if err := cmd.Process.Signal(os.Interrupt); err != nil {
			zap.L().Debug("interrupt failed, killing capture process", zap.Error(err))
			cancel()
		}
	}
	err := cmd.Wait()
	cancel()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return fmt.Errorf("capture process did not exit cleanly: %w", err)
	}
	return nil
}
