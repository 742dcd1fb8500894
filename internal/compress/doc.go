// Package compress implements the compressed-data envelope of save files.
//
// Two forms exist:
//
//   - A single LZ4 block. The block does not describe its own decompressed
//     length, so callers pass the size recorded in the meta block.
//   - A chunked stream used by Microsoft saves and SaveWizard exports. The
//     stream starts with the 9 byte magic "HGSAVEV2\x00" followed by chunks
//     of [u32 uncompressed][u32 compressed][compressed bytes]. Every chunk
//     except the last decompresses to exactly [MaxChunkSize] bytes.
//
// SaveWizard output wraps a chunked stream in an additional signature, see
// [WrapSaveWizard].
package compress
