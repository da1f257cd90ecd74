package main

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"prizewheel"
)

// borderLights is the number of bulbs drawn around the rim.
const borderLights = 40

type action int

const (
	actionNone action = iota
	actionSpin
	actionForce
	actionToggle
	actionQuit
)

// app hosts one wheel engine in a terminal.
type app struct {
	screen  tcell.Screen
	engine  *prizewheel.Engine
	blinker *prizewheel.Blinker
	items   []prizewheel.Item
	geo     prizewheel.Geometry

	lightsOn atomic.Bool

	mu     sync.Mutex
	result string
	status string
}

func newApp(cfg prizewheel.Config, lightsInterval time.Duration, opts ...prizewheel.Option) (*app, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	a, err := newAppWithScreen(screen, cfg, lightsInterval, opts...)
	if err != nil {
		screen.Fini()
		return nil, err
	}
	return a, nil
}

func newAppWithScreen(screen tcell.Screen, cfg prizewheel.Config, lightsInterval time.Duration, opts ...prizewheel.Option) (*app, error) {
	a := &app{screen: screen}

	cfg.OnFinish = func(o prizewheel.Outcome) {
		a.mu.Lock()
		a.result = o.Label
		a.mu.Unlock()
	}
	engine, err := prizewheel.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	a.engine = engine
	a.items = engine.Items()
	a.geo = engine.Geometry()

	a.lightsOn.Store(true)
	a.blinker = prizewheel.NewBlinker(nil, lightsInterval, a.lightsOn.Store)
	a.blinker.Start()
	a.engine.Activate()

	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	return a, nil
}

func (a *app) cleanup() {
	a.blinker.Stop()
	a.engine.Close()
	a.screen.Fini()
}

func (a *app) run(frame time.Duration) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	for {
		select {
		case ev := <-eventChan:
			if !a.handleEvent(ev) {
				return
			}
		case <-ticker.C:
			a.draw()
		}
	}
}

// handleEvent returns false when the app should exit.
func (a *app) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		act, idx := keyAction(ev, len(a.items))
		switch act {
		case actionQuit:
			return false
		case actionSpin:
			a.spin("")
		case actionForce:
			a.spin(a.items[idx].Label)
		case actionToggle:
			if a.engine.Visible() {
				a.engine.Deactivate()
				a.setStatus("wheel hidden")
			} else {
				a.engine.Activate()
				a.setStatus("")
			}
		}
	case *tcell.EventResize:
		a.screen.Sync()
	}
	return true
}

func (a *app) spin(winner string) {
	if !a.engine.Visible() {
		a.engine.Activate()
	}
	started, err := a.engine.Spin(winner)
	switch {
	case err != nil:
		a.setStatus(err.Error())
	case !started:
		a.setStatus("already spinning")
	default:
		a.mu.Lock()
		a.result = ""
		a.status = ""
		a.mu.Unlock()
	}
}

func (a *app) setStatus(s string) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
}

// keyAction maps a key press to an action. For actionForce the second value
// is the item index selected by a digit key.
func keyAction(ev *tcell.EventKey, n int) (action, int) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return actionQuit, 0
	case tcell.KeyEnter:
		return actionSpin, 0
	case tcell.KeyRune:
		r := ev.Rune()
		switch {
		case r == ' ':
			return actionSpin, 0
		case r == 'q' || r == 'Q':
			return actionQuit, 0
		case r == 'h' || r == 'H':
			return actionToggle, 0
		case r >= '1' && r <= '9':
			idx := int(r - '1')
			if idx < n {
				return actionForce, idx
			}
		}
	}
	return actionNone, 0
}

// screenAngle is where segment i's centre sits on screen, in degrees
// clockwise from 12 o'clock, after the wheel has turned by rotation.
func screenAngle(geo prizewheel.Geometry, i int, rotation float64) float64 {
	return math.Mod(math.Mod(geo.TargetAngle(i)+rotation, 360)+360, 360)
}

// polar places a point on an ellipse around (cx, cy). Terminal cells are
// roughly twice as tall as they are wide, so callers pass rx about 2*ry.
func polar(cx, cy int, rx, ry float64, deg float64) (int, int) {
	rad := deg * math.Pi / 180
	x := float64(cx) + rx*math.Sin(rad)
	y := float64(cy) - ry*math.Cos(rad)
	return int(math.Round(x)), int(math.Round(y))
}

// pointerGlyph points from the rim toward the hub.
func pointerGlyph(offset float64) rune {
	switch offset {
	case 90:
		return '<'
	case 180:
		return '^'
	case 270:
		return '>'
	default:
		return 'v'
	}
}

func (a *app) draw() {
	a.screen.Clear()
	w, h := a.screen.Size()

	text := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	dim := tcell.StyleDefault.Foreground(tcell.ColorGray)
	a.drawText(1, 0, dim, "space/enter spin  1-9 force  h hide/show  q quit")

	a.mu.Lock()
	result, status := a.result, a.status
	a.mu.Unlock()

	if !a.engine.Visible() {
		a.drawText(1, h/2, text, "Press h to show the wheel")
		a.drawText(1, h-1, dim, status)
		a.screen.Show()
		return
	}

	cx, cy := w/2, h/2
	ry := float64(h)/2 - 3
	if ry < 3 {
		ry = 3
	}
	rx := ry * 2

	st := a.engine.State()
	under := a.geo.ResolveIndex(st.Rotation)

	for i, it := range a.items {
		x, y := polar(cx, cy, rx*0.7, ry*0.7, screenAngle(a.geo, i, st.Rotation))
		style := tcell.StyleDefault.Foreground(tcell.GetColor(it.Color))
		if it.Color == "" {
			style = text
		}
		if i == under {
			style = style.Reverse(true)
		}
		label := it.Label
		a.drawText(x-len([]rune(label))/2, y, style, label)
	}

	on := a.lightsOn.Load()
	bulb := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	for j := 0; j < borderLights; j++ {
		lit := (j%2 == 0) == on
		ch := '.'
		if lit {
			ch = 'o'
		}
		x, y := polar(cx, cy, rx, ry, float64(j)*360/borderLights)
		a.screen.SetContent(x, y, ch, nil, bulb)
	}

	px, py := polar(cx, cy, rx+2, ry+1, a.geo.Offset)
	a.screen.SetContent(px, py, pointerGlyph(a.geo.Offset), nil, text.Bold(true))
	a.screen.SetContent(cx, cy, '+', nil, dim)

	if result != "" {
		a.drawText(1, h-2, text.Bold(true), fmt.Sprintf("You won: %s", result))
	}
	a.drawText(1, h-1, dim, status)
	a.screen.Show()
}

func (a *app) drawText(x, y int, style tcell.Style, s string) {
	for _, r := range s {
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
