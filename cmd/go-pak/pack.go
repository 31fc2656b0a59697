package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"

	"github.com/rpcpool/go-pak/hasher"
	"github.com/rpcpool/go-pak/spec"
	"github.com/rpcpool/go-pak/writer"
)

func newCmd_Pack() *cli.Command {
	return &cli.Command{
		Name:  "pack",
		Usage: "build a v4.0 PAK container from a directory tree",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Required: true, Usage: "directory to pack"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "path to write the .pak file to"},
			&cli.BoolFlag{Name: "override", Usage: "overwrite the output file if it already exists"},
		},
		Action: func(c *cli.Context) error {
			root := c.String("input")

			paths, err := walkFiles(root)
			if err != nil {
				return fmt.Errorf("walk %s: %w", root, err)
			}
			klog.Infof("Packing %s files from %s", humanize.Comma(int64(len(paths))), root)

			flags := os.O_RDWR | os.O_CREATE
			if c.Bool("override") {
				flags |= os.O_TRUNC
			} else {
				flags |= os.O_EXCL
			}
			out, err := os.OpenFile(c.String("output"), flags, 0o644)
			if err != nil {
				return fmt.Errorf("open output %s: %w", c.String("output"), err)
			}
			defer out.Close()

			w, err := writer.New(out, len(paths))
			if err != nil {
				return fmt.Errorf("start writer: %w", err)
			}

			progress := mpb.New(mpb.WithWidth(60), mpb.WithRefreshRate(150*time.Millisecond))
			var bar *mpb.Bar
			if len(paths) > 0 {
				bar = progress.AddBar(int64(len(paths)),
					mpb.PrependDecorators(decor.Name("pack ")),
					mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
				)
			}

			packErr := func() error {
				for _, rel := range paths {
					if err := packFile(w, root, rel); err != nil {
						return fmt.Errorf("pack %s: %w", rel, err)
					}
					bar.Increment()
				}
				return nil
			}()
			if bar != nil && !bar.Completed() {
				bar.Abort(true)
			}
			progress.Wait()
			if packErr != nil {
				return packErr
			}

			if err := w.Finish(); err != nil {
				return fmt.Errorf("finish writer: %w", err)
			}
			w.Close()

			fmt.Println("Done.")
			return nil
		},
	}
}

// walkFiles returns every regular file under root, relative to root,
// with forward slashes, in a stable (lexical walk) order.
func walkFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	return paths, err
}

func packFile(w *writer.Writer, root, rel string) error {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return fmt.Errorf("open source file: %w", err)
	}
	defer f.Close()

	if err := w.StartFile(hasher.HashMixed(rel), spec.Attributes{}); err != nil {
		return fmt.Errorf("start entry: %w", err)
	}

	buf := make([]byte, 256*1024)
	for {
		n, rerr := f.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return fmt.Errorf("write entry bytes: %w", werr)
			}
		}
		if rerr != nil {
			if errors.Is(rerr, io.EOF) {
				break
			}
			return fmt.Errorf("read source file: %w", rerr)
		}
	}
	return nil
}
