package engine

import "github.com/zboralski/heretek/internal/memmap"

// parseCapturedMappings hands the accumulated "info proc mappings" lines
// (header included) to the memmap parser using whichever dialect matched.
func parseCapturedMappings(c mapCapture) []memmap.Mapping {
	if !c.active {
		return nil
	}
	return memmap.ParseMappings(c.lines, c.dialect)
}
