// Package prompt drives a checkout session from a line-oriented terminal.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-checkout/internal/checkout"
	"github.com/noah-isme/pos-checkout/internal/display"
)

const (
	// Banner opens every session.
	Banner = " *** Checkout started *** "
	// Question is printed before each read.
	Question = "Enter code of item to be scanned ('done' to get the total, 'res' to reset):"
	// Footer closes the summary.
	Footer = "**************"

	cmdDone  = "done"
	cmdReset = "res"
)

// Prompt reads item codes from In and writes the register transcript to Out.
type Prompt struct {
	In      io.Reader
	Out     io.Writer
	Session *checkout.Checkout
	Logger  zerolog.Logger
}

// Run loops until "done", end of input or ctx cancellation, then prints the
// scanned items and the formatted total. Blank lines are ignored. Input is
// read on its own goroutine so cancellation is honoured while waiting on a
// line; a cancelled Run returns ctx.Err() without the summary.
func (p Prompt) Run(ctx context.Context) error {
	if p.Session == nil {
		return errors.New("prompt: no checkout session")
	}
	out := bufio.NewWriter(p.Out)
	defer out.Flush()

	stop := make(chan struct{})
	defer close(stop)
	lines, readErr := readLines(p.In, stop)

	fmt.Fprintln(out, Banner)
loop:
	for {
		fmt.Fprintf(out, "%s\n > ", Question)
		if err := out.Flush(); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := <-readErr; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				fmt.Fprintln(out)
				break loop
			}
			line = strings.TrimSpace(line)
			if line == cmdDone {
				break loop
			}
			p.handle(out, line)
		}
	}
	p.summary(out)
	return out.Flush()
}

// readLines feeds lines from in until EOF or stop is closed. The error channel
// receives the scanner error before lines is closed.
func readLines(in io.Reader, stop <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				errc <- nil
				return
			}
		}
		errc <- scanner.Err()
	}()
	return lines, errc
}

func (p Prompt) handle(out io.Writer, line string) {
	switch line {
	case "":
	case cmdReset:
		// Reset with the current catalog cannot fail.
		_ = p.Session.Reset(nil)
		p.Logger.Debug().Str("cart_id", p.Session.CartID()).Msg("cart reset")
	default:
		if err := p.Session.Scan(line); err != nil {
			var nf *checkout.NotFoundError
			if errors.As(err, &nf) {
				fmt.Fprintf(out, "*** %s ***\n", strings.ToUpper(nf.Error()))
				return
			}
			p.Logger.Error().Err(err).Str("code", line).Msg("scan failed")
			return
		}
		p.Logger.Debug().Str("code", line).Msg("item scanned")
	}
}

func (p Prompt) summary(out io.Writer) {
	rec := p.Session.Receipt()
	items := "none"
	if len(rec.Scanned) > 0 {
		items = strings.Join(rec.Scanned, ", ")
	}
	fmt.Fprintf(out, "Items: %s\n", items)
	fmt.Fprintf(out, "Total: %s\n", display.NewFormatter(rec.Catalog).Format(rec.Summary.Total))
	fmt.Fprintln(out, Footer)
	p.Logger.Info().
		Str("cart_id", rec.CartID).
		Int("items", len(rec.Scanned)).
		Int64("total", rec.Summary.Total).
		Msg("checkout finished")
}
