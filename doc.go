// Package wpkgar provides the in-memory container engine used by package
// tooling: a single [File] abstraction that reads and writes ar, tar (with
// GNU long-name and PAX extensions), the wpkgar installed-package index
// format, a human-readable meta manifest format, and plain OS directory
// trees, on top of a pooled block buffer ([block.Manager]).
//
// # Quick start
//
// Build a tar archive in memory and write it out:
//
//	f := wpkgar.New()
//	if err := f.Create(wpkgar.Tar); err != nil {
//	    return err
//	}
//	info := fileinfo.New()
//	info.SetFilename("usr/share/doc/readme.txt")
//	info.SetSize(int64(len(data)))
//	payload := wpkgar.New()
//	_ = payload.Create(wpkgar.Other)
//	_, _ = payload.WriteAt(data, 0)
//	if err := f.AppendFile(info, payload); err != nil {
//	    return err
//	}
//	if err := f.CloseArchive(); err != nil {
//	    return err
//	}
//	err := f.WriteFile("readme.tar")
//
// Iterate an archive loaded from disk or HTTP:
//
//	f := wpkgar.New()
//	if err := f.ReadFile("http://mirror.example.com/pkg.tar.gz"); err != nil {
//	    return err
//	}
//	dir, err := f.DirRewind()
//	if err != nil {
//	    return err
//	}
//	for {
//	    info, data, err := dir.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// The engine is single-threaded by design; the block pool it draws from is
// safe to share across engines.
package wpkgar
