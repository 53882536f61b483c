// Package domain models rainfall stations awaiting a network code.
//
// # Station Codes
//
// A rainfall station code has the shape 0 LL OO NNN, rendered without
// separators:
//
//	0    fixed leading digit for stations off the watercourse
//	LL   latitude band: floor(|lat|), plus 80 at or north of the equator
//	OO   longitude band: floor(|lon|)
//	NNN  sequence within the 1°x1° cell, 001 to 999
//
// Bands are zero-padded to two digits and widen to three past 99, so codes
// run from eight to ten digits. Everything before the sequence is the
// quadrant prefix, so two observers can infer the rough position of a
// station from its code alone:
//
//	lat -20.5, lon -43.2  →  prefix 02043   →  first code 02043001
//	lat   5.2, lon -60.9  →  prefix 08560   →  first code 08560001
//	lat  25.0, lon -120   →  prefix 0105120 →  first code 0105120001
//
// Sequence allocation against persisted stations lives in the pipeline
// package; this package supplies the arithmetic ([QuadrantPrefix],
// [QuadrantRange], [RenderCode], [QuadrantOf]) and the per-run
// [SequenceCache].
//
// # Intake Conventions
//
// Intake tables are maintained by hand. Column names are matched
// case-insensitively with spaces ignored ("Descarga Liquida" and
// "DescargaLiquida" are the same column). Flags use the token vocabulary
//
//	true:  SIM, S, TRUE, 1, YES
//	false: NÃO, NAO, N, FALSE, 0, NO
//
// and anything else is unknown (nil). Numeric code columns that do not parse
// are nil. Coordinates are the exception: a malformed or out-of-range
// coordinate aborts the whole import, see [ParseCoordinate] and
// [ValidateCoordinates].
//
// # Enrichment
//
// [EnrichWithBoundaries] fills null sub-basin/basin and municipality/state
// codes from the first reference polygon containing the station. Supplied
// values are never overwritten.
//
// # Export Schema
//
// [CanonicalColumns] is the fixed column order expected downstream.
// [CanonicalRow] places each record field at its position, nil where the record
// has nothing, and never emits extra columns.
package domain
