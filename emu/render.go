package emu

// spriteAttributes is one decoded 8-byte sprite attribute table record.
type spriteAttributes struct {
	vPos     uint16
	hPos     uint16
	hSize    uint8 // tiles
	vSize    uint8 // tiles
	priority bool
	palette  uint8
	vFlip    bool
	hFlip    bool
	baseTile uint16
}

// RenderFrame rasterizes every framebuffer line. Lines outside the active
// display area are left filled with the background color.
func (v *VDP) RenderFrame() {
	for line := 0; line < FramebufferHeight; line++ {
		v.RenderLine(uint16(line))
	}
}

// RenderLine rasterizes one scanline into the framebuffer. Layer order is
// plane B low, plane A low, sprites low, plane B high, plane A high,
// sprites high; the window plane replaces plane A inside the window area.
func (v *VDP) RenderLine(line uint16) {
	if line >= FramebufferHeight {
		return
	}

	lineOffset := int(line) * FramebufferWidth

	pal, colorIdx := v.bgColor()
	bg := v.cramColor(pal, colorIdx)
	for x := 0; x < FramebufferWidth; x++ {
		v.framebuffer[lineOffset+x] = bg
	}

	if !v.DisplayEnabled() || int(line) >= v.ScreenHeight() {
		return
	}

	var spriteBuffer [80]spriteAttributes
	count := v.activeSprites(line, spriteBuffer[:])
	sprites := spriteBuffer[:count]

	v.renderPlane(false, line, false)
	v.renderPlane(true, line, false)
	v.renderSprites(sprites, line, false)
	v.renderPlane(false, line, true)
	v.renderPlane(true, line, true)
	v.renderSprites(sprites, line, true)

	// Register 0 bit 5 masks the leftmost column with the background color
	if v.registers[RegMode1]&Mode1Col0Mask != 0 {
		for x := 0; x < 8; x++ {
			v.framebuffer[lineOffset+x] = bg
		}
	}
}

// renderPlane draws one scrolling plane (or its window replacement for
// plane A) for one line, one tile stripe at a time.
func (v *VDP) renderPlane(isPlaneA bool, line uint16, priorityFilter bool) {
	planeW, planeH := v.planeSize()
	nameTableBase := v.planeBAddress()
	if isPlaneA {
		nameTableBase = v.planeAAddress()
	}

	screenWidth := uint16(v.ScreenWidth())
	lineOffset := int(line) * FramebufferWidth

	_, hScroll := v.scrollValues(isPlaneA, line, 0)

	var screenX uint16
	for screenX < screenWidth {
		tileBase := nameTableBase
		tileHScroll := hScroll
		useVScroll := true
		tileW := planeW

		// The window replaces plane A inside the window area. Window
		// granularity is the tile column; the window is never scrolled,
		// and its nametable rows are 64 tiles wide in H40 and 32 in H32.
		if isPlaneA && v.isWindowArea(screenX, line) {
			tileBase = v.windowAddress()
			tileHScroll = 0
			useVScroll = false
			if v.H40Mode() {
				tileW = 64
			} else {
				tileW = 32
			}
		}

		v.renderTile(isPlaneA, useVScroll, tileBase, tileW, planeH,
			tileHScroll, line, lineOffset, &screenX, priorityFilter)
	}
}

// renderTile draws the part of one 8-pixel tile stripe that intersects
// the current position and advances screenX past it.
func (v *VDP) renderTile(isPlaneA, enableVScroll bool, nameTableBase, planeW, planeH int,
	hScroll, line uint16, lineOffset int, screenX *uint16, priorityFilter bool) {

	scrolledH := *screenX - hScroll
	pixelH := scrolledH & 0x07
	tileH := int(scrolledH>>3) & (planeW - 1)

	// Vertical scroll is fetched per 2-cell column when register 11 bit 2
	// is set; the window plane never scrolls.
	var vScroll uint16
	if enableVScroll {
		vScroll, _ = v.scrollValues(isPlaneA, line, int(*screenX>>3))
	}

	scrolledV := line + vScroll
	tileV := (int(scrolledV) / 8) % planeH
	pixelV := scrolledV % 8

	pixelsLeft := 8 - pixelH
	pixelsToProcess := pixelsLeft
	if remaining := uint16(v.ScreenWidth()) - *screenX; remaining < pixelsToProcess {
		pixelsToProcess = remaining
	}

	entry := v.fetchNametableEntry(nameTableBase, tileV, tileH, planeW)
	priority := (entry & 0x8000) != 0

	if priority == priorityFilter {
		v.drawTileRow(entry, pixelV, pixelH, pixelsToProcess, lineOffset+int(*screenX))
	}
	*screenX += pixelsToProcess
}

// scrollValues returns the (vertical, horizontal) scroll for a plane on
// one line. tileH is the screen tile column, used for 2-cell vertical
// scroll. Horizontal scroll is a 10-bit two's-complement value
// sign-extended to 16 bits.
func (v *VDP) scrollValues(isPlaneA bool, line uint16, tileH int) (uint16, uint16) {
	mode3 := v.registers[RegMode3]

	var vScroll uint16
	if mode3&0x04 != 0 {
		// Per 2-cell column: each VSRAM entry is 4 bytes covering plane A
		// then plane B.
		vsAddr := (tileH>>1)*4 + 2
		if isPlaneA {
			vsAddr -= 2
		}
		if vsAddr+1 < len(v.vsram) {
			vScroll = ((uint16(v.vsram[vsAddr]) << 8) | uint16(v.vsram[vsAddr+1])) & 0x03FF
		}
	} else {
		vsAddr := 2
		if isPlaneA {
			vsAddr = 0
		}
		vScroll = ((uint16(v.vsram[vsAddr]) << 8) | uint16(v.vsram[vsAddr+1])) & 0x03FF
	}

	hsBase := v.hscrollAddress()
	var hsAddr int
	switch mode3 & 0x03 {
	case 0x00:
		hsAddr = hsBase // Whole plane
	case 0x03:
		hsAddr = hsBase + int(line)*4 // Per line
	default:
		hsAddr = hsBase + (int(line)>>3)*4 // Per 8-row strip
	}
	if !isPlaneA {
		hsAddr += 2
	}

	hi := v.vram[hsAddr&0xFFFF]
	lo := v.vram[(hsAddr+1)&0xFFFF]
	hScroll := ((uint16(hi) << 8) | uint16(lo)) & 0x03FF
	if hScroll&0x0200 != 0 {
		hScroll |= 0xFC00
	}

	return vScroll, hScroll
}

// fetchNametableEntry reads the 16-bit nametable entry for a tile
// position, wrapping within the 64KB VRAM.
func (v *VDP) fetchNametableEntry(base, tileV, tileH, planeW int) uint16 {
	addr := base + (tileV*planeW+tileH)*2
	hi := v.vram[addr&0xFFFF]
	lo := v.vram[(addr+1)&0xFFFF]
	return (uint16(hi) << 8) | uint16(lo)
}

// fetchTilePattern reads the 4 pattern bytes (8 pixels at 4bpp) for one
// row of a tile.
func (v *VDP) fetchTilePattern(tileIndex uint16, pixelV uint16, vFlip bool) [4]uint8 {
	row := pixelV
	if vFlip {
		row = 7 - pixelV
	}
	addr := (int(tileIndex)*32 + int(row)*4) & 0xFFFC

	var patterns [4]uint8
	copy(patterns[:], v.vram[addr:addr+4])
	return patterns
}

// drawTileRow emits count pixels from a nametable entry starting at tile
// pixel pixelH. Color index 0 is transparent and never overwrites.
func (v *VDP) drawTileRow(entry, pixelV, pixelH, count uint16, destIdx int) {
	palette := uint8((entry >> 13) & 0x03)
	vFlip := (entry & 0x1000) != 0
	hFlip := (entry & 0x0800) != 0
	tileIndex := entry & 0x07FF

	patterns := v.fetchTilePattern(tileIndex, pixelV, vFlip)
	if patterns == [4]uint8{} {
		return
	}

	for i := uint16(0); i < count; i++ {
		effCol := pixelH + i
		if hFlip {
			effCol = 7 - (pixelH + i)
		}
		b := patterns[effCol/2]
		var col uint8
		if effCol%2 == 0 {
			col = b >> 4
		} else {
			col = b & 0x0F
		}

		if col != 0 {
			v.framebuffer[destIdx+int(i)] = v.cramColor(palette, col)
		}
	}
}

// activeSprites walks the sprite link chain and collects the sprites
// intersecting the given line, up to the per-line cap (20 in H40, 16 in
// H32). The walk itself is bounded by the attribute table size (80/64
// entries) and stops at link 0.
func (v *VDP) activeSprites(line uint16, sprites []spriteAttributes) int {
	satBase := v.spriteTableAddress()

	maxSprites := 64
	lineLimit := 16
	if v.H40Mode() {
		maxSprites = 80
		lineLimit = 20
	}

	count := 0
	idx := uint8(0)
	for visited := 0; visited < maxSprites; visited++ {
		addr := satBase + int(idx)*8
		if addr+8 > len(v.vram) {
			break
		}

		rawV := ((uint16(v.vram[addr]) << 8) | uint16(v.vram[addr+1])) & 0x03FF
		size := v.vram[addr+2]
		link := v.vram[addr+3] & 0x7F
		attrWord := (uint16(v.vram[addr+4]) << 8) | uint16(v.vram[addr+5])
		rawH := ((uint16(v.vram[addr+6]) << 8) | uint16(v.vram[addr+7])) & 0x03FF

		attr := spriteAttributes{
			vPos:     rawV - 128,
			hPos:     rawH - 128,
			hSize:    ((size >> 2) & 0x03) + 1,
			vSize:    (size & 0x03) + 1,
			priority: (attrWord & 0x8000) != 0,
			palette:  uint8((attrWord >> 13) & 0x03),
			vFlip:    (attrWord & 0x1000) != 0,
			hFlip:    (attrWord & 0x0800) != 0,
			baseTile: attrWord & 0x07FF,
		}

		// A sprite is active when the line falls inside its vertical
		// extent; the wrapping subtraction handles top clipping.
		if line-attr.vPos < uint16(attr.vSize)*8 {
			if count < len(sprites) {
				sprites[count] = attr
				count++
			}
			if count >= lineLimit {
				break
			}
		}

		if link == 0 {
			break
		}
		idx = link
	}

	return count
}

// renderSprites draws the active sprites matching the priority pass in
// reverse list order, so earlier (higher priority) entries end up on top.
func (v *VDP) renderSprites(sprites []spriteAttributes, line uint16, priorityFilter bool) {
	screenWidth := uint16(v.ScreenWidth())
	lineOffset := int(line) * FramebufferWidth

	for i := len(sprites) - 1; i >= 0; i-- {
		if sprites[i].priority == priorityFilter {
			v.renderSpriteScanline(line, &sprites[i], lineOffset, screenWidth)
		}
	}
}

// renderSpriteScanline draws one sprite's pixels for one line. Tiles
// inside a multi-tile sprite are laid out column major: the tile offset
// for a horizontal step is hCol * vSize.
func (v *VDP) renderSpriteScanline(line uint16, attr *spriteAttributes, lineOffset int, screenWidth uint16) {
	spriteVPx := uint16(attr.vSize) * 8

	py := line - attr.vPos
	fetchPy := py
	if attr.vFlip {
		fetchPy = (spriteVPx - 1) - py
	}

	tileVOffset := fetchPy / 8
	pixelV := fetchPy % 8

	for tH := uint16(0); tH < uint16(attr.hSize); tH++ {
		fetchTileH := tH
		if attr.hFlip {
			fetchTileH = uint16(attr.hSize) - 1 - tH
		}

		tileIdx := attr.baseTile + fetchTileH*uint16(attr.vSize) + tileVOffset

		rowAddr := int(tileIdx)*32 + int(pixelV)*4
		if rowAddr+4 > len(v.vram) {
			continue
		}

		var patterns [4]uint8
		copy(patterns[:], v.vram[rowAddr:rowAddr+4])

		baseScreenX := attr.hPos + tH*8
		for i := uint16(0); i < 8; i++ {
			screenX := baseScreenX + i
			if screenX >= screenWidth {
				continue
			}

			effCol := i
			if attr.hFlip {
				effCol = 7 - i
			}
			b := patterns[effCol/2]
			var col uint8
			if effCol%2 == 0 {
				col = b >> 4
			} else {
				col = b & 0x0F
			}

			if col != 0 {
				v.framebuffer[lineOffset+int(screenX)] = v.cramColor(attr.palette, col)
			}
		}
	}
}
