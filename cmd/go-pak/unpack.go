package main

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"k8s.io/klog/v2"

	"github.com/rpcpool/go-pak/extractor"
	"github.com/rpcpool/go-pak/pakhandle"
)

func newCmd_Unpack() *cli.Command {
	return &cli.Command{
		Name:  "unpack",
		Usage: "extract a PAK container to a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Usage: "project name (resolved against assets/filelist/) or a path to a file-name list"},
			&cli.StringFlag{Name: "input", Required: true, Usage: "path to the .pak file"},
			&cli.StringFlag{Name: "output", Required: true, Usage: "directory to extract into"},
			&cli.StringFlag{Name: "backend", Value: "mmap", Usage: "backing store: mmap|legacy"},
			&cli.StringSliceFlag{Name: "filter", Usage: "only extract paths matching this regex (repeatable)"},
			&cli.BoolFlag{Name: "ignore-error", Usage: "continue extracting after a per-entry error"},
			&cli.BoolFlag{Name: "override", Usage: "overwrite files that already exist"},
			&cli.BoolFlag{Name: "skip-unknown", Usage: "skip entries with no known name"},
		},
		Action: func(c *cli.Context) error {
			useMmap := c.String("backend") != "legacy"

			h, err := pakhandle.Open(c.String("input"), useMmap)
			if err != nil {
				return fmt.Errorf("open pak: %w", err)
			}
			defer h.Close()

			names, err := loadNames(c.Context, c.String("project"))
			if err != nil {
				return fmt.Errorf("load project list: %w", err)
			}

			var filters []*regexp.Regexp
			for _, pat := range c.StringSlice("filter") {
				re, err := regexp.Compile(pat)
				if err != nil {
					return fmt.Errorf("compile filter %q: %w", pat, err)
				}
				filters = append(filters, re)
			}

			progress := mpb.New(mpb.WithWidth(60), mpb.WithRefreshRate(150*time.Millisecond))
			var bar *mpb.Bar

			report, err := extractor.Run(h, extractor.Options{
				OutputDir:       c.String("output"),
				Names:           names,
				Filters:         filters,
				Overwrite:       c.Bool("override"),
				SkipUnknown:     c.Bool("skip-unknown"),
				ContinueOnError: c.Bool("ignore-error"),
				Parallel:        true,
				OnEvent: func(ev extractor.Event) {
					switch ev.Kind {
					case extractor.EventStart:
						if ev.Total > 0 {
							bar = progress.AddBar(int64(ev.Total),
								mpb.PrependDecorators(decor.Name("unpack ")),
								mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
							)
						}
					case extractor.EventFileDone:
						if bar != nil {
							bar.Increment()
						}
					}
				},
			})
			if bar != nil && !bar.Completed() {
				bar.Abort(true)
			}
			progress.Wait()
			if err != nil {
				return fmt.Errorf("extract: %w", err)
			}

			klog.Infof("Extracted %s files", humanize.Comma(int64(report.Extracted)))

			if len(report.Failed) == 0 {
				fmt.Println("Done.")
				return nil
			}

			fmt.Printf("Done with %d errors\n", len(report.Failed))
			printFailures(report.Failed)
			if !c.Bool("ignore-error") {
				return fmt.Errorf("%d entries failed to extract", len(report.Failed))
			}
			return nil
		},
	}
}

// printFailures prints the extraction error list per spec: the full
// list under 30 entries, otherwise a bounded head.
func printFailures(failed []extractor.FailedEntry) {
	const headLimit = 30
	n := len(failed)
	if n < headLimit {
		for _, f := range failed {
			fmt.Printf("  %s: %s\n", f.Path, f.Message)
		}
		return
	}
	for _, f := range failed[:headLimit] {
		fmt.Printf("  %s: %s\n", f.Path, f.Message)
	}
	klog.Warningf("%d more errors omitted", n-headLimit)
}
