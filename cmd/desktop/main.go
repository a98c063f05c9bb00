package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"
	"os"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"minicc/pkg/compiler"
	"minicc/pkg/cpu"
	"minicc/pkg/utils"
)

const (
	screenWidth  = 720
	screenHeight = 560
	lineHeight   = 16
	listingRows  = 30
	stackRows    = 12

	// maxHistory bounds the snapshots kept for stepping backwards. Each one
	// carries the whole stack, so this caps the rewind buffer near 16 MiB.
	maxHistory = 256
)

// Game single-steps a compiled program. Right/Space steps, Left steps back,
// R toggles free running.
type Game struct {
	vm      *cpu.Machine
	listing []string
	history [][]byte
	running bool
	err     error

	// text is rendered into pixels and uploaded to canvas once per frame.
	pixels *image.RGBA
	canvas *ebiten.Image
}

var (
	background = color.RGBA{0x10, 0x14, 0x1c, 0xff}
	foreground = image.NewUniform(color.RGBA{0xd8, 0xde, 0xe9, 0xff})
	highlight  = image.NewUniform(color.RGBA{0xeb, 0xcb, 0x8b, 0xff})
)

func newGame(vm *cpu.Machine, listing []string) *Game {
	return &Game{
		vm:      vm,
		listing: listing,
		pixels:  image.NewRGBA(image.Rect(0, 0, screenWidth, screenHeight)),
		canvas:  ebiten.NewImage(screenWidth, screenHeight),
	}
}

// text draws s with its top-left corner at (x, y).
func (g *Game) text(x, y int, src image.Image, s string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  g.pixels,
		Src:  src,
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(s)
}

func (g *Game) step() {
	if g.vm.Halted || g.err != nil {
		g.running = false
		return
	}
	snap, err := g.vm.Snapshot()
	if err != nil {
		g.err = err
		return
	}
	if len(g.history) == maxHistory {
		g.history = g.history[1:]
	}
	g.history = append(g.history, snap)
	if err := g.vm.Step(); err != nil {
		g.err = err
		g.running = false
	}
}

func (g *Game) stepBack() {
	if len(g.history) == 0 {
		return
	}
	last := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	if err := g.vm.Restore(last); err != nil {
		g.err = err
		return
	}
	g.err = nil
}

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyR) {
		g.running = !g.running
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) || inpututil.IsKeyJustPressed(ebiten.KeyArrowRight) {
		g.step()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyArrowLeft) || inpututil.IsKeyJustPressed(ebiten.KeyBackspace) {
		g.running = false
		g.stepBack()
	}
	if g.running {
		g.step()
	}
	return nil
}

func (g *Game) drawListing() {
	current := -1
	if in, ok := g.vm.Current(); ok {
		current = in.Line - 1
	}

	first := 0
	if current >= listingRows/2 {
		first = current - listingRows/2
	}
	for row := 0; row < listingRows && first+row < len(g.listing); row++ {
		i := first + row
		marker, src := "  ", image.Image(foreground)
		if i == current && !g.vm.Halted {
			marker, src = "=>", highlight
		}
		g.text(8, 8+row*lineHeight, src, fmt.Sprintf("%s %3d %s", marker, i+1, g.listing[i]))
	}
}

func (g *Game) drawState() {
	x, y := 360, 8
	emit := func(format string, args ...any) {
		g.text(x, y, foreground, fmt.Sprintf(format, args...))
		y += lineHeight
	}

	emit("step %d  %s", g.vm.Steps, g.status())
	y += lineHeight / 2
	for i, name := range cpu.RegNames {
		v := g.vm.Regs[i]
		emit("%-3s %#016x %d", name, v, int64(v))
	}
	emit("ZF=%t SF=%t OF=%t CF=%t", g.vm.ZF, g.vm.SF, g.vm.OF, g.vm.CF)
	y += lineHeight / 2

	emit("stack")
	sp := g.vm.Regs[cpu.RSP]
	for i := 0; i < stackRows; i++ {
		addr := sp + uint64(i*8)
		v, err := g.vm.Read64(addr)
		if err != nil {
			break
		}
		emit("  %#x  %d", addr, int64(v))
	}

	if g.err != nil {
		y += lineHeight / 2
		for _, line := range strings.Split(g.err.Error(), ": ") {
			emit("%s", line)
		}
	}
}

func (g *Game) status() string {
	switch {
	case g.err != nil:
		return "fault"
	case g.vm.Halted:
		return fmt.Sprintf("returned %d", g.vm.Result())
	case g.running:
		return "running"
	}
	return "paused"
}

func (g *Game) Draw(screen *ebiten.Image) {
	draw.Draw(g.pixels, g.pixels.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	g.drawListing()
	g.drawState()
	g.canvas.WritePixels(g.pixels.Pix)
	screen.DrawImage(g.canvas, nil)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("usage: desktop <file> [--expr]")
	}
	exprMode := false
	for _, arg := range os.Args[2:] {
		if arg == "--expr" {
			exprMode = true
		}
	}

	fullPath, _, err := utils.GetPathInfo(os.Args[1])
	if err != nil {
		log.Fatalf("Failed to resolve source path: %v", err)
	}
	sourceBytes, err := os.ReadFile(fullPath)
	if err != nil {
		log.Fatalf("Failed to read source file: %v", err)
	}

	asm, err := compiler.Compile(string(sourceBytes), compiler.Options{Expr: exprMode})
	if err != nil {
		var cerr *compiler.Error
		if errors.As(err, &cerr) {
			log.Fatalf("Compilation failed:\n%s", cerr.Diagnostic(string(sourceBytes)))
		}
		log.Fatalf("Compilation failed: %v", err)
	}

	vm, err := cpu.LoadListing(asm)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}

	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("minicc stepper")

	game := newGame(vm, strings.Split(strings.TrimRight(asm, "\n"), "\n"))
	if err := ebiten.RunGame(game); err != nil {
		log.Fatal(err)
	}
}
