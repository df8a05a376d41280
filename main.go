package main

import (
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/user-none/emkv/emu"
)

func main() {
	romPath := flag.String("rom", "", "path to ROM file (raw .bin/.md/.gen bytes)")
	frames := flag.Int("frames", 600, "number of frames to run")
	regionFlag := flag.String("region", "auto", "region: auto, ntsc, or pal")
	outPath := flag.String("out", "", "write final framebuffer as PNG")
	sixButton := flag.Bool("six-button", false, "plug a 6-button pad into port 1")
	flag.Parse()

	if *romPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	romData, err := os.ReadFile(*romPath)
	if err != nil {
		log.Fatalf("Failed to load ROM: %v", err)
	}

	var region emu.Region
	switch strings.ToLower(*regionFlag) {
	case "auto":
		region, _ = emu.DetectRegionFromROM(romData)
	case "ntsc":
		region = emu.RegionNTSC
	case "pal":
		region = emu.RegionPAL
	default:
		log.Fatalf("Invalid region: %s (use auto, ntsc, or pal)", *regionFlag)
	}

	e := emu.NewEmulator(romData, region)
	if *sixButton {
		e.SetControllerType(1, emu.Controller6Button)
	}

	log.Printf("Running %d frames (%s)...", *frames, region)
	for i := 0; i < *frames; i++ {
		e.RunFrame()
	}

	if *outPath != "" {
		if err := writePNG(*outPath, e); err != nil {
			log.Fatalf("Failed to write %s: %v", *outPath, err)
		}
		log.Printf("Wrote %s", *outPath)
	}
}

// writePNG converts the active region of the RGB565 framebuffer to a PNG.
func writePNG(path string, e *emu.Emulator) error {
	width := e.ScreenWidth()
	height := e.ScreenHeight()
	fb := e.Framebuffer()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := fb[y*emu.FramebufferWidth+x]
			r := uint8(px >> 11 & 0x1F)
			g := uint8(px >> 5 & 0x3F)
			b := uint8(px & 0x1F)
			img.SetRGBA(x, y, color.RGBA{
				R: (r << 3) | (r >> 2),
				G: (g << 2) | (g >> 4),
				B: (b << 3) | (b >> 2),
				A: 255,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}
