// Package console is the operator's line-oriented measuring front end. It resolves a protocol
// for a drawing, walks the dimensions in order and records values through a protocol session.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/catalog"
	"github.com/MykolaKantsir/web/internal/domain"
	"github.com/MykolaKantsir/web/internal/geometry"
	"github.com/MykolaKantsir/web/internal/protocol"
	"github.com/MykolaKantsir/web/internal/tolerance"
)

// API is the part of the measuring backend the console needs.
type API interface {
	protocol.Backend
	GetDrawing(ctx context.Context, drawingID string) (*domain.DrawingPayload, error)
	FindDrawing(ctx context.Context, query string) (string, error)
	DownloadProtocol(ctx context.Context, format domain.ExportFormat, drawingID, protocolID string) ([]byte, error)
}

// Display is the size the drawing is shown at. Zero values mean native size.
type Display struct {
	Width  float64
	Height float64
}

type Console struct {
	api     API
	in      *bufio.Scanner
	out     io.Writer
	display Display
	log     *zap.Logger

	drawing *domain.Drawing
	session *protocol.Session
	scaleX  float64
	scaleY  float64
	current string
}

func New(api API, in io.Reader, out io.Writer, display Display, log *zap.Logger) *Console {
	return &Console{
		api:     api,
		in:      bufio.NewScanner(in),
		out:     out,
		display: display,
		log:     log,
	}
}

// Run measures one drawing, given by id or by a filename fragment, until the operator finishes
// the protocol, quits or input ends.
func (c *Console) Run(ctx context.Context, drawingRef string) error {
	if err := c.open(ctx, drawingRef); err != nil {
		return err
	}
	if err := c.resolve(ctx); err != nil {
		return err
	}
	return c.loop(ctx)
}

func (c *Console) open(ctx context.Context, ref string) error {
	payload, err := c.api.GetDrawing(ctx, ref)
	if errors.Is(err, domain.ErrNotFound) {
		var id string
		if id, err = c.api.FindDrawing(ctx, ref); err != nil {
			return fmt.Errorf("find drawing %q: %w", ref, err)
		}
		payload, err = c.api.GetDrawing(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("load drawing %q: %w", ref, err)
	}

	cat, err := catalog.Load(payload.Drawing.ID, payload.Dimensions)
	if err != nil {
		return err
	}
	if cat.Len() == 0 {
		return fmt.Errorf("drawing %s has no dimensions: %w", payload.Drawing.ID, domain.ErrInvalidInput)
	}

	c.drawing = &payload.Drawing
	c.scaleX, c.scaleY = 1, 1
	if c.display.Width > 0 && c.display.Height > 0 {
		c.scaleX, c.scaleY, err = geometry.ComputeScale(c.display.Width, c.display.Height,
			float64(c.drawing.Width), float64(c.drawing.Height))
		if err != nil {
			return err
		}
	}
	c.session = protocol.NewSession(cat, c.api, c.log)

	c.printf("Drawing %s (%s), %d dimensions\n", c.drawing.Filename, c.drawing.ID, cat.Len())
	return nil
}

func (c *Console) resolve(ctx context.Context) error {
	candidates, err := c.session.Resolve(ctx)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		c.printf("Starting a new protocol\n")
		return nil
	}

	c.printf("Unfinished protocols:\n")
	for i, p := range candidates {
		c.printf("  %d) %s, %d measured, started %s\n", i+1, p.ID, p.MeasuredCount, p.CreatedAt.Format("2006-01-02 15:04"))
	}
	for {
		line, ok := c.prompt("Resume number or 'new': ")
		if !ok {
			return io.ErrUnexpectedEOF
		}
		if line == "new" {
			return c.session.StartNew()
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(candidates) {
			c.printf("Enter 1-%d or 'new'\n", len(candidates))
			continue
		}
		if err := c.session.Resume(ctx, candidates[n-1].ID); err != nil {
			if errors.Is(err, domain.ErrNetworkFailure) {
				c.printf("Network failure, try again\n")
				continue
			}
			return err
		}
		c.printf("Resumed %s with %d measured\n", c.session.ID(), c.session.MeasuredCount())
		return nil
	}
}

func (c *Console) loop(ctx context.Context) error {
	c.selectFirst()
	for {
		if c.current == "" {
			if n := len(c.session.Catalog().Unmeasured()); n > 0 {
				c.printf("No dimension selected, %d unmeasured. 'go <n>' to pick one.\n", n)
			} else {
				c.printf("All dimensions measured. 'finish' to close the protocol.\n")
			}
		}
		line, ok := c.prompt(c.promptText())
		if !ok {
			return nil
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			c.printf("Protocol %s left open\n", c.session.ID())
			return nil
		case "finish":
			if err := c.finish(ctx); err != nil {
				c.report(err)
				continue
			}
			return nil
		case "list":
			c.list()
		case "go":
			c.goTo(fields[1:])
		case "at":
			c.hit(fields[1:])
		case "export":
			c.export(ctx, fields[1:])
		default:
			c.record(ctx, fields[0])
		}
	}
}

func (c *Console) record(ctx context.Context, value string) {
	if c.current == "" {
		c.printf("No dimension selected\n")
		return
	}
	res, err := c.session.RecordMeasurement(ctx, c.current, value, false)
	if err != nil {
		c.report(err)
		return
	}
	if res.Outcome == protocol.Duplicate {
		answer, _ := c.prompt(fmt.Sprintf("Already measured %s. Replace with %s? [y/N] ",
			tolerance.FormatValue(res.ExistingValue), value))
		if !strings.EqualFold(answer, "y") {
			return
		}
		if res, err = c.session.RecordMeasurement(ctx, c.current, value, true); err != nil {
			c.report(err)
			return
		}
	}

	verdict := "OK"
	if !res.Measurement.Pass {
		verdict = "NOT OK"
	}
	c.printf("%s %s\n", tolerance.FormatValue(res.Measurement.Value), verdict)

	// Selection stops at the end of the catalog; earlier gaps are picked with "go".
	c.current = ""
	if res.Next != nil {
		c.current = res.Next.ID
	}
}

func (c *Console) finish(ctx context.Context) error {
	if n := len(c.session.Catalog().Unmeasured()); n > 0 {
		answer, _ := c.prompt(fmt.Sprintf("%d dimensions unmeasured. Finish anyway? [y/N] ", n))
		if !strings.EqualFold(answer, "y") {
			return nil
		}
	}
	if err := c.session.Finish(ctx); err != nil {
		return err
	}
	c.printf("Protocol %s finished\n", c.session.ID())
	return nil
}

func (c *Console) list() {
	cat := c.session.Catalog()
	for i, d := range cat.All() {
		mark := " "
		if m, ok := c.session.Measurement(d.ID); ok {
			mark = tolerance.FormatValue(m.Value)
		}
		c.printf("  %2d) %s [%s, %s] %s\n", i+1, tolerance.FormatValue(d.Value),
			tolerance.FormatValue(d.MinValue), tolerance.FormatValue(d.MaxValue), mark)
	}
}

func (c *Console) goTo(args []string) {
	dims := c.session.Catalog().All()
	n := 0
	if len(args) == 1 {
		n, _ = strconv.Atoi(args[0])
	}
	if n < 1 || n > len(dims) {
		c.printf("Usage: go <1-%d>\n", len(dims))
		return
	}
	c.current = dims[n-1].ID
}

// hit selects the dimension under a point given in display coordinates.
func (c *Console) hit(args []string) {
	if len(args) != 2 {
		c.printf("Usage: at <x> <y>\n")
		return
	}
	x, errX := strconv.ParseFloat(args[0], 64)
	y, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		c.printf("Usage: at <x> <y>\n")
		return
	}

	dims := c.session.Catalog().All()
	d, ok := geometry.HitTest(domain.Point{X: x, Y: y}, dims, c.scaleX, c.scaleY)
	if !ok {
		p := geometry.PointToNative(domain.Point{X: x, Y: y}, c.scaleX, c.scaleY)
		c.printf("No dimension at %s,%s\n", tolerance.FormatValue(p.X), tolerance.FormatValue(p.Y))
		return
	}
	c.current = d.ID
}

func (c *Console) export(ctx context.Context, args []string) {
	if len(args) != 2 {
		c.printf("Usage: export <csv|json|overlay_pdf> <file>\n")
		return
	}
	id := c.session.ID()
	if id == "" {
		c.printf("Nothing saved yet\n")
		return
	}
	data, err := c.api.DownloadProtocol(ctx, domain.ExportFormat(args[0]), c.drawing.ID, id)
	if err != nil {
		c.report(err)
		return
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		c.report(err)
		return
	}
	c.printf("Wrote %s (%d bytes)\n", args[1], len(data))
}

func (c *Console) selectFirst() {
	c.current = ""
	if d, ok := c.session.FirstUnmeasured(); ok {
		c.current = d.ID
	}
}

func (c *Console) promptText() string {
	if c.current == "" {
		return "> "
	}
	cat := c.session.Catalog()
	d, _ := cat.FindByID(c.current)
	return fmt.Sprintf("#%d %s [%s, %s] > ", cat.Index(d.ID)+1, tolerance.FormatValue(d.Value),
		tolerance.FormatValue(d.MinValue), tolerance.FormatValue(d.MaxValue))
}

func (c *Console) report(err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		c.printf("Invalid value\n")
	case errors.Is(err, domain.ErrProtocolClosed):
		c.printf("Protocol is closed\n")
	case errors.Is(err, domain.ErrNetworkFailure):
		c.printf("Network failure, nothing was saved. Try again.\n")
	default:
		c.printf("Error: %v\n", err)
	}
	c.log.Debug("Console command failed", zap.Error(err))
}

func (c *Console) prompt(text string) (string, bool) {
	c.printf("%s", text)
	if !c.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(c.in.Text()), true
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}
