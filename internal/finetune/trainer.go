package finetune

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/satindergrewal/tailortune/internal/errors"
	"github.com/satindergrewal/tailortune/internal/logger"
)

// Job is one training request.
type Job struct {
	Model      string
	Dataset    *Dataset
	LR         float64
	BatchSize  int
	MaxSteps   int
	OutputDir  string
	SampleRate int
	Duration   float64
}

// Trainer runs the optimization loop and writes checkpoints to
// Job.OutputDir.
type Trainer interface {
	Train(ctx context.Context, job Job) error
}

// CommandTrainer runs an external training program:
//
//	<command...> --model M --dataset CSV --audio-folder DIR --sample-rate SR
//	             --duration D --batch-size B --lr LR --max-steps N
//	             --save-path DIR
//
// Its stdout and stderr are forwarded to the logger one line at a time.
// Carriage returns end a line too, so progress bars that redraw in place
// come through as separate lines.
type CommandTrainer struct {
	argv []string
	log  *logger.Logger
}

// NewCommandTrainer splits command on whitespace.
func NewCommandTrainer(command string, log *logger.Logger) *CommandTrainer {
	if log == nil {
		log = logger.Discard()
	}
	return &CommandTrainer{argv: strings.Fields(command), log: log}
}

// Args returns the flags passed for job.
func (t *CommandTrainer) Args(job Job) []string {
	args := append([]string(nil), t.argv[1:]...)
	return append(args,
		"--model", job.Model,
		"--dataset", job.Dataset.CSVPath,
		"--audio-folder", job.Dataset.AudioFolder,
		"--sample-rate", strconv.Itoa(job.SampleRate),
		"--duration", strconv.FormatFloat(job.Duration, 'g', -1, 64),
		"--batch-size", strconv.Itoa(job.BatchSize),
		"--lr", strconv.FormatFloat(job.LR, 'g', -1, 64),
		"--max-steps", strconv.Itoa(job.MaxSteps),
		"--save-path", job.OutputDir,
	)
}

func (t *CommandTrainer) Train(ctx context.Context, job Job) error {
	if len(t.argv) == 0 {
		return errors.Validation("no training command configured")
	}
	if job.Dataset == nil {
		return errors.Validation("training job has no dataset")
	}

	cmd := exec.CommandContext(ctx, t.argv[0], t.Args(job)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return errors.External(err, "trainer stdout")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.External(err, "trainer stderr")
	}

	t.log.Info("Starting trainer", "bin", t.argv[0], "model", job.Model,
		"clips", job.Dataset.Len(), "max_steps", job.MaxSteps)
	if err := cmd.Start(); err != nil {
		return errors.External(err, "start trainer")
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go t.forward(&wg, stdout, "stdout")
	go t.forward(&wg, stderr, "stderr")
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return errors.External(err, "trainer")
	}
	t.log.Info("Trainer finished", "output", job.OutputDir)
	return nil
}

// maxTrainerLine caps one forwarded line. Longer output is split.
const maxTrainerLine = 64 * 1024

func (t *CommandTrainer) forward(wg *sync.WaitGroup, r io.Reader, stream string) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 2*maxTrainerLine)
	sc.Split(scanOutputLines)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		t.log.Info("trainer", "stream", stream, "line", sc.Text())
	}
	if err := sc.Err(); err != nil {
		t.log.Warn("Trainer output unreadable", "stream", stream, "error", err)
	}
	// The child blocks on a full pipe if nobody reads it.
	io.Copy(io.Discard, r)
}

// scanOutputLines splits on '\n' or '\r' and cuts lines longer than
// maxTrainerLine.
func scanOutputLines(data []byte, atEOF bool) (int, []byte, error) {
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if len(data) >= maxTrainerLine {
		return maxTrainerLine, data[:maxTrainerLine], nil
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
