// Package mmap maps read-only files into memory.
//
// LocalStore uses it to read knowledge files without copying them through
// kernel buffers before decoding.
//
//	m, err := mmap.Open("knowledge.json.zst")
//	if err != nil { ... }
//	defer m.Close()
//	_ = m.Advise(mmap.AccessSequential)
//	data := m.Bytes()
//
// Unix platforms use mmap(2) and madvise(2). Windows uses
// CreateFileMapping/MapViewOfFile and ignores access hints.
//
// Bytes must not be used after Close returns.
package mmap
