package models

import "errors"

// ErrNoPrototype is returned when the research server configures neither a prototype URL nor an image.
var ErrNoPrototype = errors.New("neither url_path nor img_path is configured")

// DisplayKind says how the stimulus behind the calibration grid is shown.
type DisplayKind string

const (
	DisplayIframe DisplayKind = "iframe"
	DisplayImage  DisplayKind = "image"
)

// PrototypeConfig is the body of GET /api/config.
type PrototypeConfig struct {
	URLPath *string `json:"url_path"`
	ImgPath *string `json:"img_path"`
}

// Display is the resolved stimulus element.
type Display struct {
	Kind DisplayKind `json:"kind"`
	Src  string      `json:"src"`
}

// set treats JSON null, the empty string and the literal string "null" as unset.
func set(p *string) bool {
	return p != nil && *p != "" && *p != "null"
}

// Resolve picks the iframe when url_path is set, else the image. Both set is
// reported through bothSet so the caller can warn; the iframe still wins.
func (c PrototypeConfig) Resolve() (d Display, bothSet bool, err error) {
	hasURL, hasImg := set(c.URLPath), set(c.ImgPath)
	switch {
	case hasURL:
		return Display{Kind: DisplayIframe, Src: *c.URLPath}, hasImg, nil
	case hasImg:
		return Display{Kind: DisplayImage, Src: *c.ImgPath}, false, nil
	default:
		return Display{}, false, ErrNoPrototype
	}
}
