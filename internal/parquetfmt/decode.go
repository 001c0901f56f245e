package parquetfmt

var (
	fileMetaDataSpec = &structSpec{
		name: "FileMetaData",
		fields: map[int16]string{
			1: "version", 2: "schema", 3: "num_rows", 4: "row_groups",
			5: "key_value_metadata", 6: "created_by", 7: "column_orders",
		},
		required: []int16{1, 2, 3, 4},
	}
	schemaElementSpec = &structSpec{
		name: "SchemaElement",
		fields: map[int16]string{
			1: "type", 2: "type_length", 3: "repetition_type", 4: "name", 5: "num_children",
			6: "converted_type", 7: "scale", 8: "precision", 9: "field_id", 10: "logicalType",
		},
		required: []int16{4},
	}
	logicalTypeSpec = &structSpec{
		name: "LogicalType",
		fields: map[int16]string{
			1: "STRING", 2: "MAP", 3: "LIST", 4: "ENUM", 5: "DECIMAL", 6: "DATE", 7: "TIME",
			8: "TIMESTAMP", 10: "INTEGER", 11: "UNKNOWN", 12: "JSON", 13: "BSON", 14: "UUID",
			15: "FLOAT16", 16: "VARIANT", 17: "GEOMETRY", 18: "GEOGRAPHY",
		},
	}
	decimalSpec = &structSpec{
		name:     "DecimalType",
		fields:   map[int16]string{1: "scale", 2: "precision"},
		required: []int16{1, 2},
	}
	timeSpec = &structSpec{
		name:     "TimeType",
		fields:   map[int16]string{1: "isAdjustedToUTC", 2: "unit"},
		required: []int16{1, 2},
	}
	timeUnitSpec = &structSpec{
		name:   "TimeUnit",
		fields: map[int16]string{1: "MILLIS", 2: "MICROS", 3: "NANOS"},
	}
	intTypeSpec = &structSpec{
		name:     "IntType",
		fields:   map[int16]string{1: "bitWidth", 2: "isSigned"},
		required: []int16{1, 2},
	}
	emptySpec = &structSpec{name: "Empty"}
	rowGroupSpec = &structSpec{
		name: "RowGroup",
		fields: map[int16]string{
			1: "columns", 2: "total_byte_size", 3: "num_rows", 4: "sorting_columns",
			5: "file_offset", 6: "total_compressed_size", 7: "ordinal",
		},
		required: []int16{1, 2, 3},
	}
	sortingColumnSpec = &structSpec{
		name:     "SortingColumn",
		fields:   map[int16]string{1: "column_idx", 2: "descending", 3: "nulls_first"},
		required: []int16{1, 2, 3},
	}
	columnChunkSpec = &structSpec{
		name: "ColumnChunk",
		fields: map[int16]string{
			1: "file_path", 2: "file_offset", 3: "meta_data", 4: "offset_index_offset",
			5: "offset_index_length", 6: "column_index_offset", 7: "column_index_length",
			8: "crypto_metadata", 9: "encrypted_column_metadata",
		},
		required: []int16{2},
	}
	columnMetaDataSpec = &structSpec{
		name: "ColumnMetaData",
		fields: map[int16]string{
			1: "type", 2: "encodings", 3: "path_in_schema", 4: "codec", 5: "num_values",
			6: "total_uncompressed_size", 7: "total_compressed_size", 8: "key_value_metadata",
			9: "data_page_offset", 10: "index_page_offset", 11: "dictionary_page_offset",
			12: "statistics", 14: "bloom_filter_offset", 15: "bloom_filter_length",
		},
		required: []int16{1, 2, 3, 4, 5, 6, 7, 9},
	}
	statisticsSpec = &structSpec{
		name: "Statistics",
		fields: map[int16]string{
			1: "max", 2: "min", 3: "null_count", 4: "distinct_count",
			5: "max_value", 6: "min_value", 7: "is_max_value_exact", 8: "is_min_value_exact",
		},
	}
	keyValueSpec = &structSpec{
		name:     "KeyValue",
		fields:   map[int16]string{1: "key", 2: "value"},
		required: []int16{1},
	}
	columnOrderSpec = &structSpec{
		name:   "ColumnOrder",
		fields: map[int16]string{1: "TYPE_ORDER"},
	}
)

// DecodeFileMetaData decodes a footer produced by ReadFooter. Unknown fields
// are skipped; structural violations yield a FormatError of kind
// corrupt_footer. Trailing bytes after the root struct are ignored.
func DecodeFileMetaData(footer []byte) (*FileMetaData, error) {
	r := newCompactReader(footer)
	meta := &FileMetaData{}
	if err := r.readFileMetaData(meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func (r *compactReader) readFileMetaData(m *FileMetaData) error {
	return r.readStruct(fileMetaDataSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			m.Version, err = r.readI32Field(typ)
		case 2:
			err = r.readList(typ, ctStruct, func(int) error {
				var se SchemaElement
				if err := r.readSchemaElement(&se); err != nil {
					return err
				}
				m.Schema = append(m.Schema, se)
				return nil
			})
		case 3:
			m.NumRows, err = r.readI64Field(typ)
		case 4:
			err = r.readList(typ, ctStruct, func(int) error {
				var rg RowGroup
				if err := r.readRowGroup(&rg); err != nil {
					return err
				}
				m.RowGroups = append(m.RowGroups, rg)
				return nil
			})
		case 5:
			m.KeyValueMetadata, err = r.readKeyValueList(typ)
		case 6:
			var s string
			if s, err = r.readStringField(typ); err == nil {
				m.CreatedBy = &s
			}
		case 7:
			err = r.readList(typ, ctStruct, func(int) error {
				var co ColumnOrder
				err := r.readStruct(columnOrderSpec, func(id int16, typ byte) error {
					if id == 1 {
						if err := r.expect(typ, ctStruct); err != nil {
							return err
						}
						co.TypeDefined = true
						return r.readEmpty()
					}
					return r.skip(typ)
				})
				m.ColumnOrders = append(m.ColumnOrders, co)
				return err
			})
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readEmpty() error {
	return r.readStruct(emptySpec, func(_ int16, typ byte) error {
		return r.skip(typ)
	})
}

func (r *compactReader) readOptI32(typ byte, dst **int32) error {
	v, err := r.readI32Field(typ)
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func (r *compactReader) readOptI64(typ byte, dst **int64) error {
	v, err := r.readI64Field(typ)
	if err != nil {
		return err
	}
	*dst = &v
	return nil
}

func (r *compactReader) readSchemaElement(se *SchemaElement) error {
	return r.readStruct(schemaElementSpec, func(id int16, typ byte) error {
		switch id {
		case 1:
			v, err := r.readI32Field(typ)
			if err != nil {
				return err
			}
			t := Type(v)
			se.Type = &t
		case 2:
			return r.readOptI32(typ, &se.TypeLength)
		case 3:
			v, err := r.readI32Field(typ)
			if err != nil {
				return err
			}
			rep := FieldRepetitionType(v)
			se.RepetitionType = &rep
		case 4:
			name, err := r.readStringField(typ)
			if err != nil {
				return err
			}
			se.Name = name
		case 5:
			return r.readOptI32(typ, &se.NumChildren)
		case 6:
			v, err := r.readI32Field(typ)
			if err != nil {
				return err
			}
			ct := ConvertedType(v)
			se.ConvertedType = &ct
		case 7:
			return r.readOptI32(typ, &se.Scale)
		case 8:
			return r.readOptI32(typ, &se.Precision)
		case 9:
			return r.readOptI32(typ, &se.FieldID)
		case 10:
			if err := r.expect(typ, ctStruct); err != nil {
				return err
			}
			lt := &LogicalType{}
			if err := r.readLogicalType(lt); err != nil {
				return err
			}
			se.LogicalType = lt
		default:
			return r.skip(typ)
		}
		return nil
	})
}

var logicalKinds = map[int16]LogicalKind{
	1: LogicalString, 2: LogicalMap, 3: LogicalList, 4: LogicalEnum, 5: LogicalDecimal,
	6: LogicalDate, 7: LogicalTime, 8: LogicalTimestamp, 10: LogicalInteger, 11: LogicalNull,
	12: LogicalJSON, 13: LogicalBSON, 14: LogicalUUID, 15: LogicalFloat16, 16: LogicalVariant,
	17: LogicalGeometry, 18: LogicalGeography,
}

func (r *compactReader) readLogicalType(lt *LogicalType) error {
	return r.readStruct(logicalTypeSpec, func(id int16, typ byte) error {
		if typ != ctStruct {
			if _, known := logicalKinds[id]; known {
				return r.expect(typ, ctStruct)
			}
			return r.skip(typ)
		}
		kind, known := logicalKinds[id]
		if !known {
			lt.Kind = LogicalUnrecognized
			return r.skip(typ)
		}
		lt.Kind = kind
		switch kind {
		case LogicalDecimal:
			lt.Decimal = &DecimalType{}
			return r.readDecimalType(lt.Decimal)
		case LogicalTime:
			lt.Time = &TimeType{}
			return r.readTimeType(lt.Time)
		case LogicalTimestamp:
			lt.Timestamp = &TimeType{}
			return r.readTimeType(lt.Timestamp)
		case LogicalInteger:
			lt.Integer = &IntType{}
			return r.readIntType(lt.Integer)
		default:
			return r.readEmpty()
		}
	})
}

func (r *compactReader) readDecimalType(d *DecimalType) error {
	return r.readStruct(decimalSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			d.Scale, err = r.readI32Field(typ)
		case 2:
			d.Precision, err = r.readI32Field(typ)
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readTimeType(t *TimeType) error {
	return r.readStruct(timeSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			t.IsAdjustedToUTC, err = r.readBoolField(typ)
		case 2:
			if err = r.expect(typ, ctStruct); err != nil {
				return err
			}
			err = r.readStruct(timeUnitSpec, func(id int16, typ byte) error {
				switch id {
				case 1:
					t.Unit = UnitMillis
				case 2:
					t.Unit = UnitMicros
				case 3:
					t.Unit = UnitNanos
				default:
					return r.skip(typ)
				}
				if err := r.expect(typ, ctStruct); err != nil {
					return err
				}
				return r.readEmpty()
			})
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readIntType(it *IntType) error {
	return r.readStruct(intTypeSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			if err = r.expect(typ, ctByte); err != nil {
				return err
			}
			it.BitWidth, err = r.readI8()
		case 2:
			it.IsSigned, err = r.readBoolField(typ)
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readRowGroup(rg *RowGroup) error {
	return r.readStruct(rowGroupSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			err = r.readList(typ, ctStruct, func(int) error {
				var cc ColumnChunk
				if err := r.readColumnChunk(&cc); err != nil {
					return err
				}
				rg.Columns = append(rg.Columns, cc)
				return nil
			})
		case 2:
			rg.TotalByteSize, err = r.readI64Field(typ)
		case 3:
			rg.NumRows, err = r.readI64Field(typ)
		case 4:
			err = r.readList(typ, ctStruct, func(int) error {
				var sc SortingColumn
				if err := r.readSortingColumn(&sc); err != nil {
					return err
				}
				rg.SortingColumns = append(rg.SortingColumns, sc)
				return nil
			})
		case 5:
			err = r.readOptI64(typ, &rg.FileOffset)
		case 6:
			err = r.readOptI64(typ, &rg.TotalCompressedSize)
		case 7:
			if err = r.expect(typ, ctI16); err != nil {
				return err
			}
			var v int16
			if v, err = r.readI16(); err == nil {
				rg.Ordinal = &v
			}
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readSortingColumn(sc *SortingColumn) error {
	return r.readStruct(sortingColumnSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			sc.ColumnIdx, err = r.readI32Field(typ)
		case 2:
			sc.Descending, err = r.readBoolField(typ)
		case 3:
			sc.NullsFirst, err = r.readBoolField(typ)
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readColumnChunk(cc *ColumnChunk) error {
	return r.readStruct(columnChunkSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			var s string
			if s, err = r.readStringField(typ); err == nil {
				cc.FilePath = &s
			}
		case 2:
			cc.FileOffset, err = r.readI64Field(typ)
		case 3:
			if err = r.expect(typ, ctStruct); err != nil {
				return err
			}
			cc.MetaData = &ColumnMetaData{}
			err = r.readColumnMetaData(cc.MetaData)
		case 4:
			err = r.readOptI64(typ, &cc.OffsetIndexOffset)
		case 5:
			err = r.readOptI32(typ, &cc.OffsetIndexLength)
		case 6:
			err = r.readOptI64(typ, &cc.ColumnIndexOffset)
		case 7:
			err = r.readOptI32(typ, &cc.ColumnIndexLength)
		case 8, 9:
			cc.Encrypted = true
			err = r.skip(typ)
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readColumnMetaData(md *ColumnMetaData) error {
	return r.readStruct(columnMetaDataSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			var v int32
			if v, err = r.readI32Field(typ); err == nil {
				md.Type = Type(v)
			}
		case 2:
			err = r.readList(typ, ctI32, func(int) error {
				v, err := r.readVarint32()
				if err != nil {
					return err
				}
				md.Encodings = append(md.Encodings, Encoding(v))
				return nil
			})
		case 3:
			err = r.readList(typ, ctBinary, func(int) error {
				s, err := r.readString()
				if err != nil {
					return err
				}
				md.PathInSchema = append(md.PathInSchema, s)
				return nil
			})
		case 4:
			var v int32
			if v, err = r.readI32Field(typ); err == nil {
				md.Codec = CompressionCodec(v)
			}
		case 5:
			md.NumValues, err = r.readI64Field(typ)
		case 6:
			md.TotalUncompressedSize, err = r.readI64Field(typ)
		case 7:
			md.TotalCompressedSize, err = r.readI64Field(typ)
		case 8:
			md.KeyValueMetadata, err = r.readKeyValueList(typ)
		case 9:
			md.DataPageOffset, err = r.readI64Field(typ)
		case 10:
			err = r.readOptI64(typ, &md.IndexPageOffset)
		case 11:
			err = r.readOptI64(typ, &md.DictionaryPageOffset)
		case 12:
			if err = r.expect(typ, ctStruct); err != nil {
				return err
			}
			md.Statistics = &Statistics{}
			err = r.readStatistics(md.Statistics)
		case 14:
			err = r.readOptI64(typ, &md.BloomFilterOffset)
		case 15:
			err = r.readOptI32(typ, &md.BloomFilterLength)
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readStatistics(s *Statistics) error {
	return r.readStruct(statisticsSpec, func(id int16, typ byte) error {
		var err error
		switch id {
		case 1:
			s.Max, err = r.readBinaryField(typ)
		case 2:
			s.Min, err = r.readBinaryField(typ)
		case 3:
			err = r.readOptI64(typ, &s.NullCount)
		case 4:
			err = r.readOptI64(typ, &s.DistinctCount)
		case 5:
			s.MaxValue, err = r.readBinaryField(typ)
		case 6:
			s.MinValue, err = r.readBinaryField(typ)
		case 7:
			var b bool
			if b, err = r.readBoolField(typ); err == nil {
				s.IsMaxValueExact = &b
			}
		case 8:
			var b bool
			if b, err = r.readBoolField(typ); err == nil {
				s.IsMinValueExact = &b
			}
		default:
			err = r.skip(typ)
		}
		return err
	})
}

func (r *compactReader) readKeyValueList(typ byte) ([]KeyValue, error) {
	var out []KeyValue
	err := r.readList(typ, ctStruct, func(int) error {
		var kv KeyValue
		err := r.readStruct(keyValueSpec, func(id int16, typ byte) error {
			switch id {
			case 1:
				k, err := r.readStringField(typ)
				kv.Key = k
				return err
			case 2:
				v, err := r.readStringField(typ)
				if err == nil {
					kv.Value = &v
				}
				return err
			default:
				return r.skip(typ)
			}
		})
		if err != nil {
			return err
		}
		out = append(out, kv)
		return nil
	})
	return out, err
}
