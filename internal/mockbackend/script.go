package mockbackend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"pkt.systems/coderun/schema"
)

type opKind int

const (
	opPrint opKind = iota
	opPrintInput
	opInput
	opSleep
	opExit
)

// statement is one line of a mock script.
type statement struct {
	kind  opKind
	text  string
	delay time.Duration
}

// parseScript turns source into statements, one per non-blank line. Lines
// starting with '#' are comments. Anything that is not a recognised call is
// printed as a value.
func parseScript(source string) ([]statement, error) {
	var out []statement
	for idx, raw := range strings.Split(source, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		stmt, err := parseStatement(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", idx+1, err)
		}
		out = append(out, stmt)
	}
	return out, nil
}

func parseStatement(line string) (statement, error) {
	name, arg, ok := splitCall(line)
	if !ok {
		return statement{kind: opPrint, text: parseValue(line)}, nil
	}
	switch name {
	case "print":
		if arg == "input" {
			return statement{kind: opPrintInput}, nil
		}
		return statement{kind: opPrint, text: parseValue(arg)}, nil
	case "input":
		return statement{kind: opInput, text: parseValue(arg)}, nil
	case "sleep":
		ms, err := strconv.Atoi(arg)
		if err != nil || ms < 0 {
			return statement{}, fmt.Errorf("sleep wants non-negative milliseconds, got %q", arg)
		}
		return statement{kind: opSleep, delay: time.Duration(ms) * time.Millisecond}, nil
	case "exit":
		if arg != "" {
			return statement{}, fmt.Errorf("exit takes no arguments")
		}
		return statement{kind: opExit}, nil
	default:
		return statement{kind: opPrint, text: parseValue(line)}, nil
	}
}

func splitCall(line string) (string, string, bool) {
	open := strings.IndexByte(line, '(')
	if open <= 0 || !strings.HasSuffix(line, ")") {
		return "", "", false
	}
	name := strings.TrimSpace(line[:open])
	if strings.ContainsAny(name, " \t\"'") {
		return "", "", false
	}
	return name, strings.TrimSpace(line[open+1 : len(line)-1]), true
}

// parseValue unquotes "..." or '...' literals and returns anything else as is.
func parseValue(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if first == '"' && last == '"' {
			if unquoted, err := strconv.Unquote(value); err == nil {
				return unquoted
			}
			return value[1 : len(value)-1]
		}
		if first == '\'' && last == '\'' {
			return value[1 : len(value)-1]
		}
	}
	return value
}

// process is one running mock script. Output accumulates until polled.
type process struct {
	pid    schema.PID
	inputs chan string
	cancel context.CancelFunc

	mu       sync.Mutex
	pending  strings.Builder
	finished bool
}

func newProcess(pid schema.PID, cancel context.CancelFunc) *process {
	return &process{pid: pid, inputs: make(chan string, inputQueueSize), cancel: cancel}
}

func (p *process) run(ctx context.Context, script []statement) {
	defer p.finish()
	var last string
	for _, stmt := range script {
		switch stmt.kind {
		case opPrint:
			p.write(stmt.text + "\n")
		case opPrintInput:
			p.write(last + "\n")
		case opInput:
			p.write(stmt.text)
			select {
			case <-ctx.Done():
				return
			case line := <-p.inputs:
				last = line
			}
		case opSleep:
			timer := time.NewTimer(stmt.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		case opExit:
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (p *process) write(text string) {
	p.mu.Lock()
	p.pending.WriteString(text)
	p.mu.Unlock()
}

func (p *process) finish() {
	p.mu.Lock()
	p.finished = true
	p.mu.Unlock()
}

// drain returns output produced since the previous call.
func (p *process) drain() schema.OutputResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.pending.String()
	p.pending.Reset()
	return schema.OutputResponse{Output: out, Finished: p.finished}
}

// feed queues one input line. It reports false when the queue is full.
func (p *process) feed(line string) bool {
	select {
	case p.inputs <- line:
		return true
	default:
		return false
	}
}
