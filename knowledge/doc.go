// Package knowledge holds the passage corpus retrieval searches over.
//
// A knowledge file is a JSON array of {text, fields, embedding} objects,
// optionally compressed with zstd (".zst") or lz4 (".lz4"). Older files
// carry the topic list under "domains" or "topics"; all three keys are
// accepted on read.
//
// Store loads the file once per Store and keeps one roaring bitmap per
// topic, so topic filtering is a bitmap union rather than a corpus scan.
// Build produces knowledge files from text chunks.
package knowledge
