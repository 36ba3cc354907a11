package bbeval

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rwcarlsen/madsgo/bbo"
	"github.com/rwcarlsen/madsgo/eval"
	"github.com/rwcarlsen/madsgo/scalarpt"
)

// DefaultTimeout bounds how long a single external evaluation may run
// before being killed, matching the teacher's cloudlus.Job.DefaultTimeout.
var DefaultTimeout = 600 * time.Second

// ExecEvaluator runs an external executable as the blackbox, passing the
// trial point's coordinates as trailing command-line arguments and parsing
// a whitespace-separated tuple of floats from the process's stdout --
// grounded on cloudlus.Job.Execute's process lifecycle (exec.Command, own
// process group so a timeout kill takes children with it, stdout/stderr
// capture). Each invocation is tagged with a fresh uuid, the same role
// cloudlus.Job.Id plays identifying one execution instance in logs, so a
// failure from one of several concurrent workers can be traced back to the
// specific process that produced it.
type ExecEvaluator struct {
	Cmd     []string
	Timeout time.Duration
	Types   bbo.TypeList
}

// NewExecEvaluator builds an ExecEvaluator that invokes cmd with args,
// passing the trial point's coordinates as trailing command-line
// arguments (the BB_EXE convention).
func NewExecEvaluator(types bbo.TypeList, cmd string, args ...string) *ExecEvaluator {
	return &ExecEvaluator{Cmd: append([]string{cmd}, args...), Timeout: DefaultTimeout, Types: types}
}

func (e *ExecEvaluator) Eval(ctx context.Context, p *eval.Point, hMax scalarpt.Scalar) error {
	jobID := uuid.New().String()
	timeout := e.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	args := make([]string, len(e.Cmd)-1, len(e.Cmd)-1+p.Coords.Len())
	copy(args, e.Cmd[1:])
	for _, x := range p.Coords.Values() {
		args = append(args, strconv.FormatFloat(x, 'g', -1, 64))
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cctx, e.Cmd[0], args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	rec := p.EnsureRecord(bbo.EvalBB)
	if cctx.Err() != nil {
		killGroup(cmd)
		rec.Status = eval.Failed
		return fmt.Errorf("bbeval[%s]: evaluation of %v timed out after %v", jobID, p.Coords.Values(), timeout)
	}
	if runErr != nil {
		rec.Status = eval.Failed
		rec.Output = bbo.Output{EvalOk: false, Types: e.Types}
		return fmt.Errorf("bbeval[%s]: %v: %w: %s", jobID, e.Cmd[0], runErr, stderr.String())
	}

	vals, err := parseOutput(stdout.String())
	if err != nil {
		rec.Status = eval.Failed
		rec.Output = bbo.Output{EvalOk: false, Types: e.Types}
		return fmt.Errorf("bbeval[%s]: %w", jobID, err)
	}
	rec.Output = bbo.NewOutput(e.Types, vals...)
	rec.Status = eval.OK
	return nil
}

func parseOutput(s string) ([]float64, error) {
	sc := bufio.NewScanner(strings.NewReader(s))
	sc.Split(bufio.ScanWords)
	var out []float64
	for sc.Scan() {
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, fmt.Errorf("bbeval: parsing blackbox output token %q: %w", sc.Text(), err)
		}
		out = append(out, v)
	}
	return out, sc.Err()
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := syscall.Getpgid(cmd.Process.Pid)
	if err == nil {
		syscall.Kill(-pgid, 15)
	} else {
		cmd.Process.Signal(os.Kill)
	}
}
