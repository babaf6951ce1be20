package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"cratedig/internal/arbiter"
	"cratedig/internal/pipeline"
)

// interactiveApprover renders each proposal and prompts on stdin. Outside a
// terminal every proposal is skipped so scripted runs never mutate files.
type interactiveApprover struct {
	in  *bufio.Reader
	out io.Writer
	tty bool
}

func newInteractiveApprover() *interactiveApprover {
	return &interactiveApprover{
		in:  bufio.NewReader(os.Stdin),
		out: os.Stdout,
		tty: isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()),
	}
}

func (a *interactiveApprover) Review(result pipeline.FileResult) (pipeline.Review, error) {
	fmt.Fprint(a.out, renderProposal(result))

	if !a.tty {
		fmt.Fprintln(a.out, "stdin is not a terminal; skipping (approval must be interactive)")
		return pipeline.Review{Action: pipeline.ActionSkip}, nil
	}

	for {
		fmt.Fprint(a.out, promptLine(len(result.Proposal.Alternates)))
		line, err := a.in.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return pipeline.Review{Action: pipeline.ActionAbort}, nil
			}
			return pipeline.Review{}, fmt.Errorf("read approval: %w", err)
		}

		switch answer := strings.ToLower(strings.TrimSpace(line)); answer {
		case "a", "apply":
			confirmed, err := a.confirmUnresolved(result)
			if err != nil {
				return pipeline.Review{}, err
			}
			if !confirmed {
				continue
			}
			return pipeline.Review{Action: pipeline.ActionApply}, nil
		case "1", "2":
			choice := int(answer[0] - '0')
			if choice > len(result.Proposal.Alternates) {
				fmt.Fprintf(a.out, "no alternate %d\n", choice)
				continue
			}
			confirmed, err := a.confirmUnresolved(result)
			if err != nil {
				return pipeline.Review{}, err
			}
			if !confirmed {
				continue
			}
			return pipeline.Review{Action: pipeline.ActionApply, Choice: choice}, nil
		case "s", "skip", "":
			return pipeline.Review{Action: pipeline.ActionSkip}, nil
		case "q", "quarantine":
			return pipeline.Review{Action: pipeline.ActionQuarantine}, nil
		case "b", "abort":
			return pipeline.Review{Action: pipeline.ActionAbort}, nil
		default:
			fmt.Fprintf(a.out, "unrecognized answer %q\n", answer)
		}
	}
}

// confirmUnresolved double-checks before applying a proposal the arbiter
// left unresolved. A proposed status passes straight through.
func (a *interactiveApprover) confirmUnresolved(result pipeline.FileResult) (bool, error) {
	if result.Proposal.Status == arbiter.StatusProposed {
		return true, nil
	}
	fmt.Fprint(a.out, "proposal is unresolved; apply anyway? [y/N]: ")
	line, err := a.in.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func promptLine(alternates int) string {
	options := "[a]pply"
	for i := 1; i <= alternates && i <= 2; i++ {
		options += fmt.Sprintf(" / [%d] alternate %d", i, i)
	}
	options += " / [s]kip / [q]uarantine / a[b]ort: "
	return options
}
