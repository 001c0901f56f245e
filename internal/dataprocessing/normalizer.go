package dataprocessing

import (
	"fmt"
	"strings"

	"pqmeta/internal/parquetfmt"
	"pqmeta/pkg/contracts/domain"
)

// maxSchemaDepth bounds group nesting in a schema
const maxSchemaDepth = 256

// leaf pairs a schema node with the element it came from
type leaf struct {
	node    *domain.SchemaNode
	element *parquetfmt.SchemaElement
}

// Normalize converts decoded footer metadata into a FileReport. Statistics
// stay per row group; inconsistencies in sizes and counts are recorded as
// anomalies. Only a malformed schema or a row group that does not match it
// produces a NormalizeError.
func Normalize(name string, size int64, block parquetfmt.FooterBlock, meta *parquetfmt.FileMetaData) (*domain.FileReport, error) {
	if meta == nil {
		return nil, schemaError("", "no metadata")
	}

	root, leaves, err := buildSchema(meta.Schema)
	if err != nil {
		return nil, err
	}

	report := &domain.FileReport{
		FileName:      name,
		RowCount:      meta.NumRows,
		TotalSize:     size,
		FooterLength:  block.Length,
		FormatVersion: meta.Version,
		Schema:        root,
		RowGroups:     make([]domain.RowGroupInfo, 0, len(meta.RowGroups)),
		Columns:       make([]domain.ColumnChunkStats, 0, len(meta.RowGroups)*len(leaves)),
	}
	if meta.CreatedBy != nil {
		report.CreatedBy = *meta.CreatedBy
	}
	for _, kv := range meta.KeyValueMetadata {
		report.KeyValueMetadata = append(report.KeyValueMetadata, domain.KeyValue{Key: kv.Key, Value: kv.Value})
	}

	byPath := make(map[string]int, len(leaves))
	for i, l := range leaves {
		byPath[l.node.Path] = i
	}

	var rows int64
	for rgIdx := range meta.RowGroups {
		rg := &meta.RowGroups[rgIdx]
		if len(rg.Columns) != len(leaves) {
			return nil, rowGroupError("row group %d has %d column chunks, schema has %d columns",
				rgIdx, len(rg.Columns), len(leaves))
		}
		rows += rg.NumRows
		report.RowGroups = append(report.RowGroups, domain.RowGroupInfo{
			Index:               rgIdx,
			NumRows:             rg.NumRows,
			TotalByteSize:       rg.TotalByteSize,
			TotalCompressedSize: rg.TotalCompressedSize,
			ColumnCount:         len(rg.Columns),
			Ordinal:             rg.Ordinal,
		})
		order, notes := matchColumns(rg.Columns, leaves, byPath)
		for pos := range rg.Columns {
			report.Columns = append(report.Columns, columnStats(rgIdx, &rg.Columns[pos], leaves[order[pos]], notes[pos]))
		}
	}

	if meta.NumRows < 0 {
		report.Anomalies = append(report.Anomalies, fmt.Sprintf("negative row count %d", meta.NumRows))
	}
	if len(meta.RowGroups) > 0 && rows != meta.NumRows {
		report.Anomalies = append(report.Anomalies,
			fmt.Sprintf("row groups hold %d rows, footer declares %d", rows, meta.NumRows))
	}
	return report, nil
}

// buildSchema rebuilds the tree from the depth-first element list and
// returns the leaves in physical column order.
func buildSchema(elements []parquetfmt.SchemaElement) (*domain.SchemaNode, []leaf, error) {
	if len(elements) == 0 {
		return nil, nil, schemaError("", "schema is empty")
	}
	rootEl := &elements[0]
	if rootEl.NumChildren == nil || *rootEl.NumChildren <= 0 {
		return nil, nil, schemaError(rootEl.Name, "schema root has no children")
	}

	b := &schemaBuilder{elements: elements, next: 1}
	root := &domain.SchemaNode{Name: rootEl.Name, ColumnIndex: -1}
	if err := b.children(root, int(*rootEl.NumChildren)); err != nil {
		return nil, nil, err
	}
	if b.next != len(elements) {
		return nil, nil, schemaError("", "%d schema elements left after the root's children", len(elements)-b.next)
	}
	return root, b.leaves, nil
}

type schemaBuilder struct {
	elements []parquetfmt.SchemaElement
	next     int
	leaves   []leaf
}

func (b *schemaBuilder) children(parent *domain.SchemaNode, count int) error {
	if parent.Depth >= maxSchemaDepth {
		return schemaError(parent.Path, "schema nested deeper than %d", maxSchemaDepth)
	}
	for ordinal := 0; ordinal < count; ordinal++ {
		if b.next >= len(b.elements) {
			return schemaError(parent.Path, "declares %d children but the schema ends after %d", count, ordinal)
		}
		el := &b.elements[b.next]
		b.next++

		node := &domain.SchemaNode{
			Name:        el.Name,
			Path:        joinPath(parent.Path, el.Name),
			Depth:       parent.Depth + 1,
			Ordinal:     ordinal,
			ColumnIndex: -1,
			FieldID:     el.FieldID,
			TypeLength:  el.TypeLength,
			LogicalType: annotate(el),
		}
		if el.RepetitionType != nil {
			node.Repetition = domain.Repetition(el.RepetitionType.String())
		}
		if el.ConvertedType != nil {
			node.ConvertedType = el.ConvertedType.String()
		}
		parent.Children = append(parent.Children, node)

		switch {
		case el.NumChildren != nil && *el.NumChildren > 0:
			if err := b.children(node, int(*el.NumChildren)); err != nil {
				return err
			}
		case el.Type != nil:
			node.PhysicalType = domain.PhysicalType(el.Type.String())
			if *el.Type < parquetfmt.TypeBoolean || *el.Type > parquetfmt.TypeFixedLenByteArray {
				return schemaError(node.Path, "unknown physical type %d", int32(*el.Type))
			}
			node.ColumnIndex = len(b.leaves)
			b.leaves = append(b.leaves, leaf{node: node, element: el})
		default:
			return schemaError(node.Path, "field has neither a physical type nor children")
		}
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// matchColumns maps each chunk of a row group to a leaf by path_in_schema.
// A chunk whose path is unknown keeps its position. When the result does not
// give every leaf exactly one chunk, the whole row group is matched by
// position.
func matchColumns(chunks []parquetfmt.ColumnChunk, leaves []leaf, byPath map[string]int) ([]int, [][]string) {
	order := make([]int, len(chunks))
	paths := make([]string, len(chunks))
	notes := make([][]string, len(chunks))
	for pos := range chunks {
		order[pos] = pos
		md := chunks[pos].MetaData
		if md == nil || len(md.PathInSchema) == 0 {
			continue
		}
		paths[pos] = strings.Join(md.PathInSchema, ".")
		if idx, ok := byPath[paths[pos]]; ok {
			order[pos] = idx
		} else {
			notes[pos] = append(notes[pos], fmt.Sprintf("path_in_schema %q not in schema, matched by position", paths[pos]))
		}
	}

	claimed := make([]bool, len(leaves))
	unique := true
	for _, idx := range order {
		if claimed[idx] {
			unique = false
			break
		}
		claimed[idx] = true
	}
	if unique {
		return order, notes
	}

	for pos := range order {
		if order[pos] != pos {
			notes[pos] = append(notes[pos], fmt.Sprintf("path_in_schema %q shared with another chunk, matched by position", paths[pos]))
			order[pos] = pos
		}
	}
	return order, notes
}

// columnStats normalizes one column chunk already matched to its leaf
func columnStats(rgIdx int, cc *parquetfmt.ColumnChunk, l leaf, anomalies []string) domain.ColumnChunkStats {
	md := cc.MetaData

	cs := domain.ColumnChunkStats{
		Path:           l.node.Path,
		ColumnIndex:    l.node.ColumnIndex,
		RowGroup:       rgIdx,
		PhysicalType:   l.node.PhysicalType,
		LogicalType:    l.node.LogicalType,
		DataPageOffset: cc.FileOffset,
	}

	if md == nil {
		if cc.Encrypted {
			anomalies = append(anomalies, "column metadata is encrypted")
		} else {
			anomalies = append(anomalies, "column metadata missing")
		}
		cs.Anomalies = anomalies
		return cs
	}

	physical := domain.PhysicalType(md.Type.String())
	if physical != l.node.PhysicalType {
		anomalies = append(anomalies, fmt.Sprintf("chunk type %s differs from schema type %s", physical, l.node.PhysicalType))
		cs.StatsUnreliable = true
	}
	cs.Codec = md.Codec.String()
	cs.Encodings = make([]string, len(md.Encodings))
	for i, e := range md.Encodings {
		cs.Encodings[i] = e.String()
	}
	cs.CompressedSize = md.TotalCompressedSize
	cs.UncompressedSize = md.TotalUncompressedSize
	cs.ValueCount = md.NumValues
	cs.DataPageOffset = md.DataPageOffset
	cs.DictionaryPageOffset = md.DictionaryPageOffset

	if md.TotalCompressedSize > md.TotalUncompressedSize {
		anomalies = append(anomalies, fmt.Sprintf("compressed size %d exceeds uncompressed size %d",
			md.TotalCompressedSize, md.TotalUncompressedSize))
	}
	if md.TotalCompressedSize < 0 || md.TotalUncompressedSize < 0 || md.NumValues < 0 {
		anomalies = append(anomalies, "negative size or value count")
	}

	if st := md.Statistics; st != nil {
		cs.NullCount = st.NullCount
		cs.DistinctCount = st.DistinctCount
		if st.NullCount != nil && *st.NullCount > md.NumValues {
			anomalies = append(anomalies, fmt.Sprintf("null count %d exceeds value count %d", *st.NullCount, md.NumValues))
		}
		if st.DistinctCount != nil && *st.DistinctCount > md.NumValues {
			anomalies = append(anomalies, fmt.Sprintf("distinct count %d exceeds value count %d", *st.DistinctCount, md.NumValues))
		}
		applyBounds(&cs, physical, l.element.TypeLength, st)
	}

	cs.Anomalies = anomalies
	return cs
}

// applyBounds decodes min/max. The min_value/max_value pair is preferred;
// the legacy pair is only trusted for signed sort orders.
func applyBounds(cs *domain.ColumnChunkStats, physical domain.PhysicalType, typeLength *int32, st *parquetfmt.Statistics) {
	minB, maxB := st.MinValue, st.MaxValue
	legacy := false
	if minB == nil && maxB == nil {
		minB, maxB = st.Min, st.Max
		legacy = true
	}
	if minB == nil && maxB == nil {
		return
	}
	if legacy && !signedSortOrder(physical, cs.LogicalType) {
		cs.StatsUnreliable = true
	}

	var width int32
	if typeLength != nil {
		width = *typeLength
	}
	cs.Min, cs.MinText = interpret(cs, physical, width, minB)
	cs.Max, cs.MaxText = interpret(cs, physical, width, maxB)
}

func interpret(cs *domain.ColumnChunkStats, physical domain.PhysicalType, width int32, b []byte) (domain.Value, string) {
	if b == nil {
		return nil, ""
	}
	v, err := DecodeValue(physical, width, b)
	if err != nil {
		cs.StatsUnreliable = true
		raw := domain.RawValue{Type: physical, Data: clone(b)}
		return raw, raw.String()
	}
	text, err := FormatValue(v, cs.LogicalType)
	if err != nil {
		cs.StatsUnreliable = true
		raw := domain.RawValue{Type: physical, Data: clone(b)}
		return raw, raw.String()
	}
	return v, text
}
