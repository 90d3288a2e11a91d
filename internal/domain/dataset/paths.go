package dataset

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Output naming conventions for the migration pipeline.  Each helper derives
// a sibling file next to the source, with the stage suffix before the
// extension.

func stemExt(path string) (string, string) {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext), ext
}

// MappedPath names the output of field/value mapping: data.csv -> data_mapped.csv.
// A path that already carries the suffix is returned unchanged, so chained
// mapping passes share one artifact instead of stacking suffixes.
func MappedPath(path string) string {
	stem, ext := stemExt(path)
	if strings.HasSuffix(stem, "_mapped") {
		return path
	}
	return stem + "_mapped" + ext
}

// UniquePath names the rows that survived duplicate removal.
func UniquePath(path string) string {
	stem, ext := stemExt(path)
	return stem + "_unique" + ext
}

// FinalPath names the rows actually migrated to the target.
func FinalPath(path string) string {
	stem, ext := stemExt(path)
	return stem + "_final" + ext
}

// CleanedPath names the output of the cleaning stage.
func CleanedPath(path string) string {
	stem, ext := stemExt(path)
	return stem + "_cleaned" + ext
}

// DuplicatesPath names the duplicate rows extracted at a similarity
// threshold: data.csv at 90 -> data_duplicates_90pct.csv.
func DuplicatesPath(path string, threshold float64) string {
	stem, ext := stemExt(path)
	return fmt.Sprintf("%s_duplicates_%dpct%s", stem, int(threshold), ext)
}
