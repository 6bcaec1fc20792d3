package rotation

import (
	"fmt"
	"html"
	"strings"

	"github.com/machbase/neo-polarmap/mods/mapview"
)

const className = "leaflet-control-rotation"

type Options struct {
	Position    string
	CWText      string
	CWTitle     string
	CCWText     string
	CCWTitle    string
	OnRotateCW  func()
	OnRotateCCW func()
}

func DefaultOptions() Options {
	return Options{
		Position: "topright",
		CWText:   "↻",
		CWTitle:  "Rotate Clockwise",
		CCWText:  "↺",
		CCWTitle: "Rotate Counter-Clockwise",
	}
}

// UIHost is the map chrome the control is added to.
type UIHost interface {
	AddControl(c mapview.Control)
	Focus()
}

var _ mapview.Control = (*Control)(nil)

// Control is a pair of buttons that rotate the map to the next or the
// previous projection.
type Control struct {
	opts Options
	host UIHost
	cw   *Button
	ccw  *Button
}

// New returns a control, empty fields of opts take the defaults.
func New(opts Options) *Control {
	def := DefaultOptions()
	if opts.Position == "" {
		opts.Position = def.Position
	}
	if opts.CWText == "" {
		opts.CWText = def.CWText
	}
	if opts.CWTitle == "" {
		opts.CWTitle = def.CWTitle
	}
	if opts.CCWText == "" {
		opts.CCWText = def.CCWText
	}
	if opts.CCWTitle == "" {
		opts.CCWTitle = def.CCWTitle
	}
	return &Control{opts: opts}
}

func (c *Control) AddTo(host UIHost) *Control {
	c.host = host
	c.cw = c.createButton(c.opts.CWText, c.opts.CWTitle, className+"-cw", c.opts.OnRotateCW)
	c.ccw = c.createButton(c.opts.CCWText, c.opts.CCWTitle, className+"-ccw", c.opts.OnRotateCCW)
	host.AddControl(c)
	return c
}

func (c *Control) createButton(text, title, class string, fn func()) *Button {
	return &Button{Text: text, Title: title, ClassName: class, onClick: fn, ctl: c}
}

func (c *Control) Position() string { return c.opts.Position }

// CW returns the clockwise button, nil until the control is added to a host.
func (c *Control) CW() *Button { return c.cw }

func (c *Control) CCW() *Button { return c.ccw }

func (c *Control) HTML() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, `<div class="%s leaflet-bar">`, className)
	for _, b := range []*Button{c.cw, c.ccw} {
		if b != nil {
			sb.WriteString(b.HTML())
		}
	}
	sb.WriteString("</div>")
	return sb.String()
}

type Button struct {
	Text      string
	Title     string
	ClassName string

	onClick func()
	ctl     *Control
}

// Click stops ev from reaching the map, runs the callback
// and gives the focus back to the map.
func (b *Button) Click(ev *mapview.Event) {
	if ev != nil {
		ev.StopPropagation()
	}
	if b.onClick != nil {
		b.onClick()
	}
	if b.ctl != nil && b.ctl.host != nil {
		b.ctl.host.Focus()
	}
}

func (b *Button) HTML() string {
	return fmt.Sprintf(`<a class="%s" href="#" title="%s" role="button">%s</a>`,
		b.ClassName, html.EscapeString(b.Title), html.EscapeString(b.Text))
}
