package mask

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// TIFF tag numbers and field types used by ReadTIFFDPI.
const (
	tiffTagXResolution    = 282
	tiffTagYResolution    = 283
	tiffTagResolutionUnit = 296

	tiffTypeShort    = 3
	tiffTypeRational = 5

	tiffUnitCentimeter = 3
)

// ReadTIFFDPI reads the resolution tags of the first TIFF image directory
// and returns dots per inch. The X resolution wins when both are present.
func ReadTIFFDPI(r io.ReadSeeker) (float64, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, err
	}

	var order binary.ByteOrder
	switch string(header[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 0, errors.New("not a valid TIFF file")
	}

	if _, err := r.Seek(int64(order.Uint32(header[4:8])), io.SeekStart); err != nil {
		return 0, err
	}

	var numEntries uint16
	if err := binary.Read(r, order, &numEntries); err != nil {
		return 0, err
	}

	// Rational values live elsewhere in the file; collect offsets first so
	// the directory is read sequentially.
	var xOff, yOff int64 = -1, -1
	var unit uint16 = 2 // Inches
	entry := make([]byte, 12)
	for i := uint16(0); i < numEntries; i++ {
		if _, err := io.ReadFull(r, entry); err != nil {
			return 0, err
		}
		tag := order.Uint16(entry[0:2])
		fieldType := order.Uint16(entry[2:4])

		switch {
		case tag == tiffTagXResolution && fieldType == tiffTypeRational:
			xOff = int64(order.Uint32(entry[8:12]))
		case tag == tiffTagYResolution && fieldType == tiffTypeRational:
			yOff = int64(order.Uint32(entry[8:12]))
		case tag == tiffTagResolutionUnit && fieldType == tiffTypeShort:
			unit = order.Uint16(entry[8:10])
		}
	}

	var dpi float64
	for _, off := range []int64{xOff, yOff} {
		if off < 0 {
			continue
		}
		v, err := readTIFFRational(r, off, order)
		if err != nil {
			return 0, err
		}
		if v > 0 {
			dpi = v
			break
		}
	}
	if dpi == 0 {
		return 0, errors.New("no resolution tags found")
	}

	if unit == tiffUnitCentimeter {
		dpi *= 2.54
	}
	return dpi, nil
}

// readTIFFRational reads a RATIONAL value (two uint32s) at offset.
func readTIFFRational(r io.ReadSeeker, offset int64, order binary.ByteOrder) (float64, error) {
	if _, err := r.Seek(offset, io.SeekStart); err != nil {
		return 0, err
	}
	var num, denom uint32
	if err := binary.Read(r, order, &num); err != nil {
		return 0, fmt.Errorf("failed to read rational: %w", err)
	}
	if err := binary.Read(r, order, &denom); err != nil {
		return 0, fmt.Errorf("failed to read rational: %w", err)
	}
	if denom == 0 {
		return 0, nil
	}
	return float64(num) / float64(denom), nil
}
