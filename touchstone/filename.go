package touchstone

import (
	"path"
	"regexp"
	"strings"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// Trace filenames follow YYYYMMDD_LXXXXXX_PRI|RED_SNxxxx[_HG|LG].sXp.
// Lot codes run 4–6 digits in practice; the HG/LG segment only appears on
// dual-variant device types.
var filenamePattern = regexp.MustCompile(
	`^(\d{8})_(L\d{4,6})_(PRI|RED)_(SN\d+)(?:_(HG|LG))?\.s[1-4]p$`,
)

// ParseFilename extracts identity metadata from a trace filename. The
// second return is false when the name does not follow the convention;
// callers treat that as metadata-absent, never as a parse failure.
func ParseFilename(filename string) (model.FileMetadata, bool) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	m := filenamePattern.FindStringSubmatch(strings.ToUpper(base))
	if m == nil {
		return model.FileMetadata{}, false
	}
	return model.FileMetadata{
		DateCode:     m[1],
		LotCode:      m[2],
		Chain:        model.ParseChain(m[3]),
		SerialNumber: m[4],
		Variant:      model.ParseGainVariant(m[5]),
	}, true
}
