package oracle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4proof/board"
)

// PipeOracle talks to one long-lived oracle subprocess over anonymous
// pipes using an ASCII line protocol: request lines
// "B <depth> <board49>\n", reply lines "<0|1> <v0> .. <v6>\n" where each
// vi is a signed decimal in {-1,0,1} or "." for illegal. Lines that don't
// match the reply shape are diagnostics and are skipped.
type PipeOracle struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
}

// NewPipeOracle parses cmdline with shell-quoting rules (so a single
// -oracle-cmd flag value like "./wdl.out solution_w7_h6 --server
// --compact -Xmmap" can carry its own arguments) and starts it, wiring
// its stdin/stdout to this oracle's pipes. Stderr is forwarded to the
// structured logger at debug level, so diagnostics are visible but never
// parsed.
func NewPipeOracle(ctx context.Context, cmdline string) (*PipeOracle, error) {
	args, err := shellquote.Split(cmdline)
	if err != nil {
		return nil, fmt.Errorf("oracle: parsing oracle command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("oracle: empty oracle command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Cancel = func() error { return cmd.Process.Kill() }

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("oracle: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("oracle: stdout pipe: %w", err)
	}
	cmd.Stderr = logWriter{}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("oracle: starting oracle process: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	return &PipeOracle{
		cmd:    cmd,
		stdin:  stdin,
		stdout: scanner,
	}, nil
}

// logWriter forwards the oracle subprocess's stderr to our structured
// logger, one log entry per write it receives, the way shell.UCGILoop treats diagnostic
// output as something to surface, not to parse.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Debug().Str("oracle-stderr", strings.TrimRight(string(p), "\n")).Msg("oracle-diagnostic")
	return len(p), nil
}

// Query implements Oracle.
func (p *PipeOracle) Query(ctx context.Context, b board.Board49, depth int) (Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	line := fmt.Sprintf("B %d %d\n", depth, uint64(b))
	if _, err := io.WriteString(p.stdin, line); err != nil {
		return Response{}, fmt.Errorf("%w: writing query: %v", ErrOracleLost, err)
	}

	for {
		if !p.stdout.Scan() {
			if err := p.stdout.Err(); err != nil {
				return Response{}, fmt.Errorf("%w: %v", ErrOracleLost, err)
			}
			return Response{}, ErrOracleLost
		}
		resp, ok, err := parseReply(p.stdout.Text())
		if err != nil {
			return Response{}, err
		}
		if ok {
			return resp, nil
		}
		// non-matching line: a diagnostic, ignored.
	}
}

// Close implements Oracle.
func (p *PipeOracle) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stdin != nil {
		_ = p.stdin.Close()
	}
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Wait()
}

var replyPattern = regexp.MustCompile(`^[01]( (-?[01]|\.)){7}$`)

// parseReply attempts to parse line as a reply matching
// ^[01]( (-?[01]|\.)){7}$. It returns ok=false (not an error) for lines
// that don't look like a reply at all, so the caller can skip diagnostic
// output; it returns an error only for lines that match the reply shape
// but contain an invalid value.
func parseReply(line string) (Response, bool, error) {
	if !replyPattern.MatchString(line) {
		return Response{}, false, nil
	}
	fields := strings.Fields(line)
	terminal := fields[0] == "1"
	var resp Response
	resp.Terminal = terminal
	for i := 0; i < 7; i++ {
		tok := fields[i+1]
		if tok == "." {
			resp.Values[i] = ValueIllegal
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			// unreachable given replyPattern, but treated as a protocol
			// error rather than panicking.
			return Response{}, true, fmt.Errorf("%w: %q", ErrOracleProtocol, line)
		}
		resp.Values[i] = Value(n)
	}
	return resp, true, nil
}
