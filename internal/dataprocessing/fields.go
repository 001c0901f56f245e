package dataprocessing

import (
	"fmt"
	"strings"

	"pqmeta/pkg/contracts/domain"
)

// SummarizeFields merges each leaf column's per-row-group statistics into
// one FieldSummary, in physical column order.
func SummarizeFields(report *domain.FileReport) []domain.FieldSummary {
	if report == nil || report.Schema == nil {
		return nil
	}

	byColumn := make(map[int][]*domain.ColumnChunkStats)
	for i := range report.Columns {
		cs := &report.Columns[i]
		byColumn[cs.ColumnIndex] = append(byColumn[cs.ColumnIndex], cs)
	}

	leaves := report.Schema.Leaves()
	out := make([]domain.FieldSummary, 0, len(leaves))
	for _, node := range leaves {
		chunks := byColumn[node.ColumnIndex]
		fs := domain.FieldSummary{
			Path:         node.Path,
			ColumnIndex:  node.ColumnIndex,
			PhysicalType: node.PhysicalType,
			LogicalType:  node.LogicalType.String(),
			Repetition:   node.Repetition,
			Depth:        node.Depth,
		}

		nullsKnown := len(chunks) > 0
		var nulls int64
		for _, cs := range chunks {
			fs.ValueCount += cs.ValueCount
			if cs.NullCount == nil {
				nullsKnown = false
				continue
			}
			nulls += *cs.NullCount
		}
		if nullsKnown {
			fs.NullCount = &nulls
			if fs.ValueCount > 0 {
				pct := float64(nulls) / float64(fs.ValueCount) * 100
				fs.NullPercent = &pct
			}
		}

		fs.Observations = observe(node, chunks, fs)
		out = append(out, fs)
	}
	return out
}

func observe(node *domain.SchemaNode, chunks []*domain.ColumnChunkStats, fs domain.FieldSummary) []string {
	var obs []string

	if lo, hi, ok := numericRange(chunks); ok {
		obs = append(obs, "min: "+lo, "max: "+hi)
	}

	switch {
	case fs.NullCount == nil:
		obs = append(obs, "nulls: unknown")
	case *fs.NullCount > 0 && *fs.NullCount == fs.ValueCount:
		obs = append(obs, "all values null")
	case *fs.NullCount > 0 && fs.NullPercent != nil:
		obs = append(obs, fmt.Sprintf("nulls: %d (%.1f%%)", *fs.NullCount, *fs.NullPercent))
	case *fs.NullCount > 0:
		// no values to take a percentage of
		obs = append(obs, fmt.Sprintf("nulls: %d", *fs.NullCount))
	}

	if looksLikeKey(node.Name) && allDistinct(chunks) && fs.NullCount != nil && *fs.NullCount == 0 {
		obs = append(obs, "possible unique key")
	}
	if looksLikeUUID(node, chunks) {
		obs = append(obs, "possible UUID")
	} else if looksLikeISOTimestamp(node, chunks) {
		obs = append(obs, "possible ISO timestamp")
	}

	for _, cs := range chunks {
		if cs.StatsUnreliable {
			obs = append(obs, "statistics unreliable")
			break
		}
	}
	return obs
}

// numericRange merges min/max across row groups for plain numeric columns
func numericRange(chunks []*domain.ColumnChunkStats) (string, string, bool) {
	if len(chunks) == 0 {
		return "", "", false
	}
	var lo, hi float64
	var loText, hiText string
	for i, cs := range chunks {
		if cs.StatsUnreliable || cs.Min == nil || cs.Max == nil {
			return "", "", false
		}
		if lt := cs.LogicalType; lt != nil && !(lt.Name == domain.LogicalInteger && lt.IsSigned) {
			return "", "", false
		}
		mn, ok1 := asFloat(cs.Min)
		mx, ok2 := asFloat(cs.Max)
		if !ok1 || !ok2 {
			return "", "", false
		}
		if i == 0 || mn < lo {
			lo, loText = mn, cs.MinText
		}
		if i == 0 || mx > hi {
			hi, hiText = mx, cs.MaxText
		}
	}
	return loText, hiText, true
}

func asFloat(v domain.Value) (float64, bool) {
	switch n := v.(type) {
	case domain.Int32Value:
		return float64(n), true
	case domain.Int64Value:
		return float64(n), true
	case domain.FloatValue:
		return float64(n), true
	case domain.DoubleValue:
		return float64(n), true
	default:
		return 0, false
	}
}

func looksLikeKey(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, "id") || strings.Contains(lower, "code") || strings.Contains(lower, "codigo")
}

// allDistinct reports whether every row group declares as many distinct
// values as values
func allDistinct(chunks []*domain.ColumnChunkStats) bool {
	if len(chunks) == 0 {
		return false
	}
	for _, cs := range chunks {
		if cs.DistinctCount == nil || *cs.DistinctCount != cs.ValueCount {
			return false
		}
	}
	return true
}

func looksLikeUUID(node *domain.SchemaNode, chunks []*domain.ColumnChunkStats) bool {
	if node.LogicalType != nil && node.LogicalType.Name == domain.LogicalUUID {
		return true
	}
	if node.PhysicalType != domain.PhysicalByteArray || len(chunks) == 0 {
		return false
	}
	for _, cs := range chunks {
		if !uuidShaped(cs.MinText) || !uuidShaped(cs.MaxText) {
			return false
		}
	}
	return true
}

func uuidShaped(s string) bool {
	return len(s) == 36 && strings.Count(s, "-") == 4
}

func looksLikeISOTimestamp(node *domain.SchemaNode, chunks []*domain.ColumnChunkStats) bool {
	if node.PhysicalType != domain.PhysicalByteArray {
		return false
	}
	if strings.HasSuffix(strings.ToLower(node.Name), "_iso") {
		return true
	}
	if len(chunks) == 0 {
		return false
	}
	for _, cs := range chunks {
		for _, s := range []string{cs.MinText, cs.MaxText} {
			if !strings.Contains(s, "T") || !strings.HasSuffix(s, "Z") {
				return false
			}
		}
	}
	return true
}
