package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rpcpool/go-pak/archive"
	"github.com/rpcpool/go-pak/pakhandle"
)

// dumpHeader is the JSON shape of a container's header: 32-bit
// identifiers as lowercase hex strings, matching the entry dump below.
type dumpHeader struct {
	Magic        string `json:"magic"`
	MajorVersion uint8  `json:"major_version"`
	MinorVersion uint8  `json:"minor_version"`
	Feature      uint16 `json:"feature"`
	TotalFiles   uint32 `json:"total_files"`
	Hash         string `json:"hash"`
}

// dumpEntry is the JSON shape of one archive entry. The offset is a
// plain integer so that dumps stay comparable across the chunk-index
// change (an offset that is really a chunk-table index would otherwise
// look like a huge file offset if hex-encoded alongside the hashes).
type dumpEntry struct {
	Hash             string `json:"hash"`
	Offset           uint64 `json:"offset"`
	CompressedSize   uint64 `json:"compressed_size"`
	UncompressedSize uint64 `json:"uncompressed_size"`
	Compression      uint8  `json:"compression"`
	Encryption       uint8  `json:"encryption"`
	ChunkIndexed     bool   `json:"chunk_indexed"`
	Checksum         string `json:"checksum"`
}

type dumpFile struct {
	Header  dumpHeader  `json:"header"`
	Entries []dumpEntry `json:"entries"`
}

func newCmd_DumpInfo() *cli.Command {
	return &cli.Command{
		Name:  "dump-info",
		Usage: "dump a PAK container's header and entry table as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project name or file-name list path (accepted but not used; the dump lists hashes only)"},
			&cli.StringFlag{Name: "input", Required: true, Usage: "path to the .pak file"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "path to write the JSON dump to"},
			&cli.BoolFlag{Name: "override", Usage: "overwrite the output file if it already exists"},
		},
		Action: func(c *cli.Context) error {
			h, err := pakhandle.Open(c.String("input"), true)
			if err != nil {
				return fmt.Errorf("open pak: %w", err)
			}
			defer h.Close()

			a := h.Archive()
			out := dumpFile{
				Header:  headerToDump(a),
				Entries: make([]dumpEntry, 0, len(a.Entries)),
			}
			for _, e := range a.Entries {
				out.Entries = append(out.Entries, entryToDump(e))
			}

			flags := os.O_WRONLY | os.O_CREATE
			if c.Bool("override") {
				flags |= os.O_TRUNC
			} else {
				flags |= os.O_EXCL
			}
			f, err := os.OpenFile(c.String("output"), flags, 0o644)
			if err != nil {
				return fmt.Errorf("open output %s: %w", c.String("output"), err)
			}
			defer f.Close()

			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("write json dump: %w", err)
			}

			fmt.Println("Done.")
			return nil
		},
	}
}

func headerToDump(a *archive.Archive) dumpHeader {
	hdr := a.Header
	return dumpHeader{
		Magic:        string(hdr.Magic[:]),
		MajorVersion: hdr.MajorVersion,
		MinorVersion: hdr.MinorVersion,
		Feature:      hdr.Feature,
		TotalFiles:   hdr.TotalFiles,
		Hash:         fmt.Sprintf("%08x", hdr.Hash),
	}
}

func entryToDump(e archive.Entry) dumpEntry {
	return dumpEntry{
		Hash:             fmt.Sprintf("%016x", e.Hash()),
		Offset:           e.Offset,
		CompressedSize:   e.CompressedSize,
		UncompressedSize: e.UncompressedSize,
		Compression:      uint8(e.Attributes.Compression),
		Encryption:       uint8(e.Attributes.Encryption),
		ChunkIndexed:     e.Attributes.OffsetIsChunkIndex,
		Checksum:         fmt.Sprintf("%016x", e.Checksum),
	}
}
