package importer

import (
	"fmt"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/geometry"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// Page layers.
const (
	LayerMap     = "map"
	LayerObjects = "objects"
	LayerWalls   = "walls"
)

// DescriptionAttribute is the character attribute that carries an NPC's
// description in its "current" field.
const DescriptionAttribute = "npc_description"

// LightMarkerName names every light-source marker graphic.
const LightMarkerName = "Light"

// DefaultLightMarkerImage is a 1x1 transparent GIF so light markers are
// invisible on the map.
const DefaultLightMarkerImage = "data:image/gif;base64,R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// Default attribute bundles, one per created entity shape. Creation merges
// the bundle with the caller's fields; the bundles themselves are never
// mutated.
var (
	PageDefaults = world.Attributes{
		"showgrid":                 true,
		"grid_type":                "square",
		"grid_opacity":             0.5,
		"gridcolor":                "#000000",
		"background_color":         "#ffffff",
		"scale_number":             5,
		"scale_units":              "ft",
		"snapping_increment":       1,
		"dynamic_lighting_enabled": true,
		"explorer_mode":            "basic",
		"lightrestrictmove":        true,
		"daylight_mode_enabled":    false,
		"archived":                 false,
	}

	CharacterDefaults = world.Attributes{
		"archived":         false,
		"inplayerjournals": "",
		"controlledby":     "",
	}

	AttributeDefaults = world.Attributes{
		"max": "",
	}

	HandoutDefaults = world.Attributes{
		"archived":         false,
		"inplayerjournals": "",
		"controlledby":     "",
	}

	GraphicDefaults = world.Attributes{
		"subtype":   "token",
		"layer":     LayerObjects,
		"isdrawing": true,
		"rotation":  0,
	}

	BackgroundDefaults = world.Attributes{
		"layer": LayerMap,
	}

	LightDefaults = world.Attributes{
		"layer":                        LayerWalls,
		"name":                         LightMarkerName,
		"width":                        70,
		"height":                       70,
		"showplayers_aura1":            false,
		"emits_bright_light":           true,
		"emits_low_light":              true,
		"has_directional_bright_light": false,
	}

	BarrierDefaults = world.Attributes{
		"layer":        LayerWalls,
		"stroke":       "#0000ff",
		"stroke_width": 5,
		"fill":         "transparent",
		"barrierType":  "wall",
		"controlledby": "",
	}
)

// pageSettings returns the page bundle sized to size grid units square.
func pageSettings(size float64) world.Attributes {
	return world.Merge(PageDefaults, world.Attributes{
		"width":  size,
		"height": size,
	})
}

// backgroundAttributes covers the whole page with imageURL on the map layer.
func backgroundAttributes(sceneName, imageURL string, pageWidth, pageHeight, cellPx float64) world.Attributes {
	w := pageWidth * cellPx
	h := pageHeight * cellPx
	return world.Merge(BackgroundDefaults, world.Attributes{
		"name":   sceneName + " Background",
		"imgsrc": imageURL,
		"left":   w / 2,
		"top":    h / 2,
		"width":  w,
		"height": h,
	})
}

// lightAttributes places a light marker at p. Bright light reaches half the
// radius; low light reaches the full radius.
func lightAttributes(p geometry.Point, radius int, color, imgsrc string) world.Attributes {
	return world.Merge(LightDefaults, world.Attributes{
		"imgsrc":                imgsrc,
		"left":                  p.X,
		"top":                   p.Y,
		"aura1_radius":          radius,
		"aura1_color":           color,
		"bright_light_distance": float64(radius) / 2,
		"low_light_distance":    radius,
		"light_color":           color,
	})
}

// barrierAttributes builds a two-point polyline from a to b. Path points are
// relative to the bounding box; left/top locate the box center.
func barrierAttributes(a, b geometry.Point) world.Attributes {
	minX, minY := min(a.X, b.X), min(a.Y, b.Y)
	w := max(a.X, b.X) - minX
	h := max(a.Y, b.Y) - minY
	path := fmt.Sprintf(`[["M",%d,%d],["L",%d,%d]]`, a.X-minX, a.Y-minY, b.X-minX, b.Y-minY)
	return world.Merge(BarrierDefaults, world.Attributes{
		"path":   path,
		"left":   float64(minX) + float64(w)/2,
		"top":    float64(minY) + float64(h)/2,
		"width":  w,
		"height": h,
	})
}
