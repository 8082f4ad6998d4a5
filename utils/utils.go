package utils

import (
	"fmt"

	"github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
)

type Resolution struct {
	X, Y float64
	// Unit is the raw TIFF ResolutionUnit: 1 none, 2 inch, 3 centimeter.
	Unit uint16
}

// String prints dpi only when the file names an absolute unit.
func (r Resolution) String() string {
	if r.Unit == 2 || r.Unit == 3 {
		return fmt.Sprintf("%.0fx%.0f dpi", r.X, r.Y)
	}
	return fmt.Sprintf("%gx%g pixels per unit (no absolute unit)", r.X, r.Y)
}

// GetTIFFResolution reads XResolution/YResolution from the root IFD. Inch and
// centimeter values are reported in dots per inch, unit 1 is passed through.
func GetTIFFResolution(data []byte) (Resolution, error) {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil {
		return Resolution{}, fmt.Errorf("EXIF not found: %v", err)
	}

	im := exifcommon.NewIfdMapping()
	ti := exif.NewTagIndex()
	if err := exifcommon.LoadStandardIfds(im); err != nil {
		return Resolution{}, err
	}

	_, index, err := exif.Collect(im, ti, rawExif)
	if err != nil {
		return Resolution{}, err
	}

	res := Resolution{Unit: 2}
	found := false

	if tag, err := index.RootIfd.FindTagWithName("XResolution"); err == nil {
		if val, err := tag[0].Value(); err == nil {
			if rats, ok := val.([]exifcommon.Rational); ok && len(rats) > 0 && rats[0].Denominator != 0 {
				res.X = float64(rats[0].Numerator) / float64(rats[0].Denominator)
				found = true
			}
		}
	}

	if tag, err := index.RootIfd.FindTagWithName("YResolution"); err == nil {
		if val, err := tag[0].Value(); err == nil {
			if rats, ok := val.([]exifcommon.Rational); ok && len(rats) > 0 && rats[0].Denominator != 0 {
				res.Y = float64(rats[0].Numerator) / float64(rats[0].Denominator)
			}
		}
	}

	if !found {
		return Resolution{}, fmt.Errorf("no XResolution tag")
	}
	if res.Y == 0 {
		res.Y = res.X
	}

	if tag, err := index.RootIfd.FindTagWithName("ResolutionUnit"); err == nil {
		if val, err := tag[0].Value(); err == nil {
			if u, ok := val.([]uint16); ok && len(u) > 0 {
				res.Unit = u[0]
			} else if u, ok := val.(uint16); ok {
				res.Unit = u
			}
		}
	}
	if res.Unit == 3 {
		res.X *= 2.54
		res.Y *= 2.54
	}

	return res, nil
}
