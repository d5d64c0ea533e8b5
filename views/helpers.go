// Package views renders the participant pages. Components are written in
// the .templ files next to this one; run `templ generate` after editing them.
package views

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/justogm/user-gaze-track/internal/calibration"
	"github.com/justogm/user-gaze-track/internal/models"
)

// toJSON marshals page data for a data-* attribute. The attribute is
// escaped by templ, so the page script reads it back with JSON.parse.
func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// pointStyle places a calibration target and applies its current opacity.
func pointStyle(pt models.CalibrationTarget, grid calibration.View) string {
	var pv calibration.PointView
	for _, v := range grid.Points {
		if v.ID == pt.ID {
			pv = v
			break
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "top:%g%%;left:%g%%;opacity:%g", pt.Top, pt.Left, pv.Opacity)
	if !pv.Visible {
		b.WriteString(";display:none")
	}
	return b.String()
}
