package tray

import "encoding/binary"

const iconSize = 16

// icon returns a 16x16 32-bit ICO with a red crosshair
func icon() []byte {
	const (
		headerLen = 6 + 16
		dibLen    = 40
		pixelLen  = iconSize * iconSize * 4
		maskLen   = iconSize * 4 // 1bpp rows padded to 32 bits
	)
	buf := make([]byte, headerLen+dibLen+pixelLen+maskLen)

	// ICONDIR
	binary.LittleEndian.PutUint16(buf[2:], 1) // type: icon
	binary.LittleEndian.PutUint16(buf[4:], 1) // count

	// ICONDIRENTRY
	buf[6] = iconSize
	buf[7] = iconSize
	binary.LittleEndian.PutUint16(buf[10:], 1)  // planes
	binary.LittleEndian.PutUint16(buf[12:], 32) // bpp
	binary.LittleEndian.PutUint32(buf[14:], dibLen+pixelLen+maskLen)
	binary.LittleEndian.PutUint32(buf[18:], headerLen)

	// BITMAPINFOHEADER, height doubled for the AND mask
	dib := buf[headerLen:]
	binary.LittleEndian.PutUint32(dib[0:], dibLen)
	binary.LittleEndian.PutUint32(dib[4:], iconSize)
	binary.LittleEndian.PutUint32(dib[8:], iconSize*2)
	binary.LittleEndian.PutUint16(dib[12:], 1)
	binary.LittleEndian.PutUint16(dib[14:], 32)
	binary.LittleEndian.PutUint32(dib[20:], pixelLen)

	// BGRA pixels, bottom-up
	pixels := dib[dibLen:]
	for y := 0; y < iconSize; y++ {
		for x := 0; x < iconSize; x++ {
			if !crosshair(x, y) {
				continue
			}
			off := ((iconSize-1-y)*iconSize + x) * 4
			pixels[off+0] = 0x30
			pixels[off+1] = 0x30
			pixels[off+2] = 0xE0
			pixels[off+3] = 0xFF
		}
	}
	return buf
}

func crosshair(x, y int) bool {
	const c = iconSize / 2
	dx, dy := x-c, y-c
	if dx == 0 || dy == 0 {
		return true
	}
	r2 := dx*dx + dy*dy
	return r2 >= 25 && r2 <= 36
}
